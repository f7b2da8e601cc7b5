package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

func TestDecodeJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"great course"}`))

	var req submitRequest
	require.NoError(t, DecodeJSON(r, &req))
	assert.Equal(t, "great course", req.Text)
}

func TestDecodeJSONMalformedBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":`))

	var req submitRequest
	assert.Error(t, DecodeJSON(r, &req))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(submitRequest{Text: "great course"}))
	assert.Error(t, ValidateRequest(submitRequest{}), "missing required field must fail validation")
}
