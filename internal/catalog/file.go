// internal/catalog/file.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	pkgerrors "gatekeeper/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// fileSchema constrains externally supplied catalog files before any question
// reaches an applicant.
const fileSchema = `{
	"type": "object",
	"required": ["questions"],
	"additionalProperties": false,
	"properties": {
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["key", "prompt", "maxLen"],
				"additionalProperties": false,
				"properties": {
					"key":    {"type": "string", "minLength": 1, "pattern": "^[a-zA-Z][a-zA-Z0-9_]*$"},
					"prompt": {"type": "string", "minLength": 1},
					"maxLen": {"type": "integer", "minimum": 1, "maximum": 4000},
					"check": {
						"type": "object",
						"required": ["type", "n"],
						"additionalProperties": false,
						"properties": {
							"type": {"type": "string", "enum": ["exactDigits", "minLines"]},
							"n":    {"type": "integer", "minimum": 1}
						}
					}
				}
			}
		}
	}
}`

type fileQuestion struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
	MaxLen int    `json:"maxLen"`
	Check  *struct {
		Type string `json:"type"`
		N    int    `json:"n"`
	} `json:"check,omitempty"`
}

type catalogFile struct {
	Questions []fileQuestion `json:"questions"`
}

// LoadFile reads a catalog JSON file, validates it against the schema, and
// builds the catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse validates raw catalog JSON against the schema and builds the catalog.
func Parse(data []byte) (*Catalog, error) {
	schemaLoader := gojsonschema.NewStringLoader(fileSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, pkgerrors.NewCatalogInvalidError(err.Error())
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return nil, pkgerrors.NewCatalogInvalidError(details)
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, pkgerrors.NewCatalogInvalidError(err.Error())
	}

	questions := make([]Question, 0, len(cf.Questions))
	for _, fq := range cf.Questions {
		q := Question{Key: fq.Key, Prompt: fq.Prompt, MaxLen: fq.MaxLen}
		if fq.Check != nil {
			switch fq.Check.Type {
			case "exactDigits":
				q.Validator = ExactDigits(fq.Check.N)
			case "minLines":
				q.Validator = MinLines(fq.Check.N)
			}
		}
		questions = append(questions, q)
	}
	return New(questions)
}
