// Package catalog parses service metadata files into typed records.
//
// Parsing is lenient per record: an array element that cannot be decoded into a
// Service is skipped and reported as a RecordError instead of failing the file.
// Records without a name are kept here; the graph indexer decides to skip them.
// Names are kept exactly as written; only the catalog API trims its input.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/service-catalog/pkg/model"
)

// ErrNotArray is returned when the document root is not a list of services.
var ErrNotArray = errors.New("expected JSON array")

// RecordError describes an element of the input that was skipped.
type RecordError struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error message next to the index.
func (e RecordError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index   int    `json:"index"`
		Message string `json:"message"`
	}{e.Index, e.Err.Error()})
}

// Catalog is the result of parsing a metadata document.
type Catalog struct {
	Services []model.Service `json:"services"`
	Skipped  []RecordError   `json:"skipped,omitempty"`
}

// Parse decodes a JSON array of service records.
func Parse(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding metadata array: %w", err)
	}

	cat := &Catalog{Services: make([]model.Service, 0, len(raw))}
	for i, elem := range raw {
		svc, err := decodeRecord(elem)
		if err != nil {
			cat.Skipped = append(cat.Skipped, RecordError{Index: i, Err: err})
			continue
		}
		cat.Services = append(cat.Services, svc)
	}
	return cat, nil
}

// ParseYAML decodes a YAML sequence of service records.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding metadata yaml: %w", err)
	}
	if _, ok := doc.([]any); !ok {
		return nil, ErrNotArray
	}

	// Re-encode as JSON so both formats share one decoding path
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting yaml to json: %w", err)
	}
	return Parse(asJSON)
}

// ParseFile reads and parses a metadata file based on its extension.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func decodeRecord(elem json.RawMessage) (model.Service, error) {
	var svc model.Service
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return svc, errors.New("record is not an object")
	}
	if err := json.Unmarshal(trimmed, &svc); err != nil {
		return svc, err
	}
	return svc, nil
}
