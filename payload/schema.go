package payload

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "usersync://schema/sync-payload.json"

// Schema is the JSON Schema every encoded SyncPayload satisfies.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": [
    "eventId", "eventType", "userId", "username", "email", "firstName",
    "lastName", "realmId", "realmName", "clientId", "ipAddress",
    "timestamp", "sessionId"
  ],
  "properties": {
    "eventId":   {"type": "string"},
    "eventType": {"type": "string"},
    "userId":    {"type": "string"},
    "username":  {"type": "string"},
    "email":     {"type": "string"},
    "firstName": {"type": "string"},
    "lastName":  {"type": "string"},
    "realmId":   {"type": "string"},
    "realmName": {"type": "string"},
    "clientId":  {"type": "string"},
    "ipAddress": {"type": "string"},
    "timestamp": {"type": "integer"},
    "sessionId": {"type": "string"},
    "attributes": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks an encoded payload against Schema.
func Validate(body []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("payload: schema compilation error: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := s.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
