package core

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var jsonNull = []byte("null")

// Number is a decimal value the backend may serialize either as a JSON number or as a string ("1500.00").
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrapf(err, "parsing number %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n Number) Float() float64 { return float64(n) }

// Date is a calendar date (no time of day), serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates `t` to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, errors.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return jsonNull, nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ref is a foreign key the backend may serialize either as a bare id or as the embedded object.
type Ref struct {
	ID  int
	Obj json.RawMessage // embedded object, if any
}

func NewRef(id int) Ref { return Ref{ID: id} }

func (r Ref) IsZero() bool { return r.ID == 0 }

// String returns "#<id>", or "" for a zero Ref.
func (r Ref) String() string {
	if r.ID == 0 {
		return ""
	}
	return "#" + strconv.Itoa(r.ID)
}

// Decode decodes the embedded object into `v`; it reports false when only the id was sent.
func (r Ref) Decode(v interface{}) bool {
	if len(r.Obj) == 0 {
		return false
	}
	return json.Unmarshal(r.Obj, v) == nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID == 0 {
		return jsonNull, nil
	}
	return json.Marshal(r.ID)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref{}
	switch {
	case len(data) == 0 || bytes.Equal(data, jsonNull):
		return nil
	case data[0] == '{':
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.ID
		r.Obj = append(json.RawMessage(nil), data...)
		return nil
	default:
		var n Number
		if err := n.UnmarshalJSON(data); err != nil {
			return errors.Wrap(err, "decoding reference id")
		}
		r.ID = int(n)
		return nil
	}
}

// Ordering is one `ordering` query term understood by the backend, eg. "-created_at".
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// JoinOrderings renders `ords` as one `ordering` value ("name,-created_at").
func JoinOrderings(ords ...Ordering) string {
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ",")
}

// OrderingParam is the query parameter carrying orderings.
const OrderingParam = "ordering"

// Filter holds list query parameters, eg. {"student": "12"}. Empty values are not sent.
type Filter map[string]string

// WithOrdering returns a copy of the filter sorting results by `ords`.
func (f Filter) WithOrdering(ords ...Ordering) Filter {
	ff := make(Filter, len(f)+1)
	for k, v := range f {
		ff[k] = v
	}
	ff[OrderingParam] = JoinOrderings(ords...)
	return ff
}

// Values encodes the filter as query values.
func (f Filter) Values() url.Values {
	v := make(url.Values, len(f))
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f[k] != "" {
			v.Set(k, f[k])
		}
	}
	return v
}
