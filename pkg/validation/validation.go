// Package validation checks service payloads received by the catalog API.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/ritzau/service-catalog/pkg/model"
	"github.com/ritzau/service-catalog/pkg/store"
)

// Issue codes
const (
	CodeInvalidType  = "invalid_type"
	CodeUnrecognized = "unrecognized_keys"
	CodeTooSmall     = "too_small"
	CodeInvalidJSON  = "invalid_json"
)

// Issue is a single problem found in a payload.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is returned when a payload fails validation
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Path == "" {
			msgs[i] = issue.Message
		} else {
			msgs[i] = issue.Path + ": " + issue.Message
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

var topLevelKeys = map[string]bool{
	"name": true, "domain": true, "team": true, "owner": true, "repo": true, "vision": true,
	"contracts": true, "dependencies": true, "events": true,
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}

	// Report json member names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// RejectMetadata fails with store.ErrMetadataProvided when body is an object
// carrying a top-level metadata member.
func RejectMetadata(body []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return nil
	}
	if _, ok := members["metadata"]; ok {
		return store.ErrMetadataProvided
	}
	return nil
}

// DecodeServiceInput decodes and validates a client service payload.
// Unknown top-level members are rejected while nested objects pass extra
// members through. Names are trimmed.
func DecodeServiceInput(body []byte) (model.Service, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil || members == nil {
		return model.Service{}, rootError(body, err)
	}

	var unknown []string
	for key := range members {
		if !topLevelKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return model.Service{}, &Error{Issues: []Issue{{
			Code:    CodeUnrecognized,
			Message: fmt.Sprintf("Unrecognized key(s) in object: '%s'", strings.Join(unknown, "', '")),
		}}}
	}

	var svc model.Service
	if err := json.Unmarshal(body, &svc); err != nil {
		return model.Service{}, decodeError(err)
	}
	svc.Normalize()

	if err := validate.Struct(&svc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.Service{}, fmt.Errorf("validate service: %w", err)
		}
		return model.Service{}, fromValidationErrors(verrs)
	}
	return svc, nil
}

func rootError(body []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || !json.Valid(body) {
		return &Error{Issues: []Issue{{Code: CodeInvalidJSON, Message: "Malformed JSON body"}}}
	}
	return &Error{Issues: []Issue{{
		Code:    CodeInvalidType,
		Message: "Expected object, received " + jsonKind(body),
	}}}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &Error{Issues: []Issue{{
			Path:    typeErr.Field,
			Code:    CodeInvalidType,
			Message: fmt.Sprintf("Expected %s, received %s", goKind(typeErr.Type), typeErr.Value),
		}}}
	}
	return &Error{Issues: []Issue{{Code: CodeInvalidJSON, Message: err.Error()}}}
}

func fromValidationErrors(verrs validator.ValidationErrors) *Error {
	out := &Error{Issues: make([]Issue, 0, len(verrs))}
	for _, fe := range verrs {
		// Namespace is "Service.dependencies.critical[0].name"
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}

		issue := Issue{Path: path, Code: fe.Tag(), Message: fe.Error()}
		if fe.Tag() == "notblank" {
			issue.Code = CodeTooSmall
			issue.Message = "String must contain at least 1 character(s)"
		}
		out.Issues = append(out.Issues, issue)
	}
	return out
}

func jsonKind(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "unknown"
	}
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return "object"
}

func goKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map, reflect.Ptr:
		return "object"
	case reflect.Bool:
		return "boolean"
	}
	return t.Kind().String()
}
