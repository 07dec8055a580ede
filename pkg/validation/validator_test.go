package validation

import (
	"sync"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var initOnce sync.Once

type sample struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

func bindErr(t *testing.T, body string) error {
	t.Helper()
	initOnce.Do(Init)
	var s sample
	return binding.JSON.BindBody([]byte(body), &s)
}

func TestToDetailsUsesJSONFieldNames(t *testing.T) {
	err := bindErr(t, `{"email":"nope","password":"123","role":"root"}`)
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 6 characters long", details["password"])
	assert.Equal(t, "must be one of: admin, user", details["role"])
}

func TestToDetailsMissingFields(t *testing.T) {
	err := bindErr(t, `{}`)
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "is required", details["email"])
	assert.Equal(t, "is required", details["password"])
	assert.NotContains(t, details, "role")
}

func TestToDetailsInvalidJSON(t *testing.T) {
	err := bindErr(t, `{not json`)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
}

func TestToDetailsNil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}
