// Package validation enforces the POST /transactions request shape
// with a JSON Schema, grounded on the teacher's
// core/validation/medical_validator.go (gojsonschema.Validate against a
// loaded schema, plus a handful of hand-written checks schema alone
// can't express), generalized from the teacher's fixed medical-record
// schema to the transaction submission envelope of spec.md §6.
package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

// transactionRequestSchemaV1 mirrors the POST /transactions request
// body from spec.md §6. Overridable via TRANSACTION_SCHEMA_PATH for
// operators who want to tighten it per deployment, the same escape
// hatch the teacher's MEDICAL_SCHEMA_PATH env var offers.
const transactionRequestSchemaV1 = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["type", "patientId", "provider", "priority"],
	"properties": {
		"id": {"type": "string"},
		"type": {"type": "string", "minLength": 1},
		"patientId": {"type": "string", "minLength": 1},
		"provider": {"type": "string", "minLength": 1},
		"providerId": {"type": "string"},
		"priority": {"type": "string", "enum": ["Tier-1", "Tier-2", "Tier-3"]},
		"status": {"type": "string"},
		"signature": {"type": "string"},
		"payload": {"type": "object"},
		"actorId": {"type": "string"},
		"actorType": {"type": "string"},
		"details": {"type": "string", "maxLength": 1024}
	}
}`

// TransactionRequest is the decoded POST /transactions envelope.
type TransactionRequest struct {
	ID         string                 `json:"id,omitempty"`
	Type       string                 `json:"type"`
	PatientID  string                 `json:"patientId"`
	Provider   string                 `json:"provider"`
	ProviderID string                 `json:"providerId,omitempty"`
	Priority   string                 `json:"priority"`
	Status     string                 `json:"status,omitempty"`
	Signature  string                 `json:"signature,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ActorID    string                 `json:"actorId,omitempty"`
	ActorType  string                 `json:"actorType,omitempty"`
	Details    string                 `json:"details,omitempty"`
}

func schemaLoader() gojsonschema.JSONLoader {
	if path := os.Getenv("TRANSACTION_SCHEMA_PATH"); path != "" {
		return gojsonschema.NewReferenceLoader("file://" + path)
	}
	return gojsonschema.NewStringLoader(transactionRequestSchemaV1)
}

// ValidateTransactionRequest validates raw against the schema and the
// checks a schema can't express, returning the decoded request on
// success.
func ValidateTransactionRequest(raw []byte) (TransactionRequest, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return TransactionRequest{}, fmt.Errorf("invalid JSON: payload must be an object: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader(), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return TransactionRequest{}, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for _, e := range result.Errors() {
			msg += e.String() + "; "
		}
		return TransactionRequest{}, fmt.Errorf("request failed schema validation: %s", msg)
	}

	var req TransactionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return TransactionRequest{}, fmt.Errorf("decode request: %w", err)
	}

	if utf8.RuneCountInString(req.Details) > 1024 {
		return TransactionRequest{}, fmt.Errorf("details exceeds 1024 characters")
	}

	return req, nil
}
