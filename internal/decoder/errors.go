package decoder

import "codeberg.org/mutker/minerdriver/internal/errors"

const (
	ErrMalformedJSON  = errors.ErrorCode("protocol_malformed_json")
	ErrMissingResult  = errors.ErrorCode("protocol_missing_result")
	ErrShortResult    = errors.ErrorCode("protocol_short_result")
	ErrFieldType      = errors.ErrorCode("protocol_field_type")
	ErrFieldArity     = errors.ErrorCode("protocol_field_arity")
	ErrFieldNotNumber = errors.ErrorCode("protocol_field_not_numeric")
	ErrHealthMismatch = errors.ErrorCode("protocol_health_mismatch")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrMalformedJSON:  "Reply is not valid JSON",
		ErrMissingResult:  "Reply has no result array",
		ErrShortResult:    "Result array is too short",
		ErrFieldType:      "Result field is neither string nor number",
		ErrFieldArity:     "Result field has the wrong number of entries",
		ErrFieldNotNumber: "Result field entry is not numeric",
		ErrHealthMismatch: "Temperature/fan entries do not match GPU count",
	})
}

// fieldError locates a protocol violation inside the result array.
type fieldError struct {
	Index int
	Field string
	Value string
}

func (f fieldError) String() string {
	return "result[" + itoa(f.Index) + "] " + f.Field + " " + quote(f.Value)
}
