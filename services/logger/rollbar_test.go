package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "PORTAL : ", 0), &core.Config{Env: "test"})

	usr := user.User{ID: 3, Email: "t@test.cd", Role: user.RoleTeacher}
	logger.Error("loading grades", errors.New("backend down"), usr, map[string]interface{}{"path": "/academics/grades/"})

	out := buf.String()
	assert.Contains(t, out, "PORTAL : loading grades")
	assert.Contains(t, out, "backend down")
	assert.Contains(t, out, "user: 3 <t@test.cd> (teacher)")
	assert.Contains(t, out, "map[path:/academics/grades/]")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewDiscardLogger()
	err := errors.New("boom")
	extras := map[string]interface{}{"a": 1}

	args := logger.prepare("msg", []interface{}{err, user.User{ID: 1}, user.User{ID: 2}, extras})
	assert.Equal(t, []interface{}{"msg", err, extras}, args, "users are reported as the person")
}
