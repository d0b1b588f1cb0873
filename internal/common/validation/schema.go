// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// judgmentResponseSchema constrains what the external judgment service may
// return. Anything outside this shape is treated as a failed call.
const judgmentResponseSchema = `{
	"type": "object",
	"properties": {
		"decision": {
			"type": "string",
			"enum": ["approve", "reject"]
		},
		"rationale": {
			"type": "string",
			"minLength": 1
		},
		"confidence": {
			"type": "number",
			"minimum": 0,
			"maximum": 1
		}
	},
	"required": ["decision", "rationale"],
	"additionalProperties": true
}`

var judgmentSchemaLoader = gojsonschema.NewStringLoader(judgmentResponseSchema)

// ValidateJudgmentResponse checks a raw judgment-service response body
// against the expected schema and returns a descriptive error on mismatch.
func ValidateJudgmentResponse(body []byte) error {
	result, err := gojsonschema.Validate(judgmentSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("judgment response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("judgment response failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}
