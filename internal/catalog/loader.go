package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// fileSchema describes the catalog file. The document is YAML on disk and
// is checked against this schema after decoding.
const fileSchema = `{
  "type": "object",
  "required": ["categories"],
  "additionalProperties": false,
  "properties": {
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "diagnosis", "phrases"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "diagnosis": {
            "type": "string",
            "enum": [
              "Infected",
              "Requires Immediate Medical Attention",
              "Medical Consultation Recommended"
            ]
          },
          "phrases": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          }
        }
      }
    }
  }
}`

type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

// Load reads a catalog from a YAML file. An empty path returns the built-in
// catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog categories: %w", err)
	}

	return New(file.Categories)
}

func validateDocument(doc map[string]interface{}) error {
	if doc == nil {
		return fmt.Errorf("%w: document is empty", ErrEmptyCatalog)
	}

	schemaLoader := gojsonschema.NewStringLoader(fileSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("catalog validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidCategory, strings.Join(errs, "; "))
	}

	return nil
}

// Marshal renders the catalog in the file format accepted by Parse.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(catalogFile{Categories: c.Categories()})
}
