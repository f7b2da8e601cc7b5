package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is the process-wide validator; handlers run their decoded
// request structs through it rather than each holding an instance.
var validate = validator.New()

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ValidateRequest checks v against its struct validation tags.
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}
