package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindUnknown Kind = iota
	NetworkUnreachable
	Unauthorized
	ValidationRejected
	ServerFault
)

func (k Kind) String() string {
	switch k {
	case NetworkUnreachable:
		return "network unreachable"
	case Unauthorized:
		return "unauthorized"
	case ValidationRejected:
		return "validation rejected"
	case ServerFault:
		return "server fault"
	default:
		return "unknown"
	}
}

// Error is returned by every failed backend call.
// Status is 0 when no response was received.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Fields  []core.FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError converts the rejected fields into a core.ValidationError.
func (e *Error) ValidationError() *core.ValidationError {
	var err error
	if e.Message != "" {
		err = errors.New(e.Message)
	}
	return &core.ValidationError{Err: err, Fields: e.Fields}
}

func KindOf(err error) Kind {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr.Kind
	}
	return KindUnknown
}

func IsUnauthorized(err error) bool       { return KindOf(err) == Unauthorized }
func IsNetworkUnreachable(err error) bool { return KindOf(err) == NetworkUnreachable }
func IsValidationRejected(err error) bool { return KindOf(err) == ValidationRejected }

func kindOfStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status >= 500:
		return ServerFault
	case status >= 400:
		return ValidationRejected
	default:
		return KindUnknown
	}
}

// message keys of DRF error bodies; the others are field errors.
var messageKeys = [...]string{"detail", "non_field_errors", "error", "message"}

// newResponseError decodes a DRF error body: {"detail": "..."} or {"field": ["msg", ...], ...}.
func newResponseError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Kind: kindOfStatus(status), Status: status}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		e.Message = http.StatusText(status)
		return e
	}

	for _, key := range messageKeys {
		if raw, ok := payload[key]; ok {
			if msgs := decodeMessages(raw); len(msgs) > 0 && e.Message == "" {
				e.Message = strings.Join(msgs, " ")
			}
			delete(payload, key)
		}
	}

	flds := make([]string, 0, len(payload))
	for fld := range payload {
		flds = append(flds, fld)
	}
	sort.Strings(flds)
	for _, fld := range flds {
		for _, msg := range decodeMessages(payload[fld]) {
			e.Fields = append(e.Fields, core.FieldError{Field: fld, Error: msg})
		}
	}

	if e.Message == "" && len(e.Fields) == 0 {
		e.Message = http.StatusText(status)
	}
	return e
}

func decodeMessages(raw json.RawMessage) []string {
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		if msg == "" {
			return nil
		}
		return []string{msg}
	}
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err == nil {
		return msgs
	}
	return []string{string(raw)}
}
