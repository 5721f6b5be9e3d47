package api

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const tenantSchemaURL = "tenant.json"

// tenantSchema describes the body of tenant create and update requests.
// Integration types are not enumerated: unknown types are accepted and
// skipped at scrape time.
const tenantSchema = `{
  "type": "object",
  "required": ["name"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "integrations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "config"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"},
          "authMethod": {"enum": ["basic", "bearer", "api_key", "oauth"]},
          "config": {
            "type": "object",
            "required": ["baseUrl"],
            "properties": {
              "baseUrl": {"type": "string", "minLength": 1},
              "username": {"type": "string"},
              "apiToken": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

type bodyValidator struct {
	schema *jsonschema.Schema
}

func newTenantValidator() (*bodyValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(tenantSchema))
	if err != nil {
		return nil, fmt.Errorf("parse tenant schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(tenantSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add tenant schema: %w", err)
	}
	schema, err := c.Compile(tenantSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile tenant schema: %w", err)
	}
	return &bodyValidator{schema: schema}, nil
}

func (v *bodyValidator) Validate(body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.schema.Validate(inst)
}
