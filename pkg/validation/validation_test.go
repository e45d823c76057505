package validation

import (
	"errors"
	"testing"

	"github.com/ritzau/service-catalog/pkg/store"
)

func TestRejectMetadata(t *testing.T) {
	err := RejectMetadata([]byte(`{"name":"a","metadata":{"version":"v9"}}`))
	if !errors.Is(err, store.ErrMetadataProvided) {
		t.Errorf("Expected ErrMetadataProvided, got %v", err)
	}

	err = RejectMetadata([]byte(`{"name":"","colour":1,"metadata":null}`))
	if !errors.Is(err, store.ErrMetadataProvided) {
		t.Errorf("Expected ErrMetadataProvided for an otherwise invalid body, got %v", err)
	}

	if err := RejectMetadata([]byte(`{"name":"a"}`)); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := RejectMetadata([]byte(`[{"metadata":{}}]`)); err != nil {
		t.Errorf("Non-objects are left to DecodeServiceInput, got %v", err)
	}
}

func TestDecodeServiceInput(t *testing.T) {
	body := `{
		"name": "  domaina.orders ",
		"team": "Newton",
		"contracts": [{"role": "api", "protocol": "rest", "sla": "99.9"}],
		"dependencies": {
			"critical": [{"name": "billing", "timeoutMs": 200}],
			"non-critical": [{"name": " auth "}]
		},
		"events": {"producing": [{"name": "OrderPlaced", "schema": {"v": 1}}]}
	}`

	svc, err := DecodeServiceInput([]byte(body))
	if err != nil {
		t.Fatalf("DecodeServiceInput() error = %v", err)
	}

	if svc.Name != "domaina.orders" {
		t.Errorf("Expected trimmed name, got %q", svc.Name)
	}
	if got := svc.Dependencies.NonCritical[0].Name; got != "auth" {
		t.Errorf("Expected trimmed dependency name, got %q", got)
	}
	if _, ok := svc.Dependencies.Critical[0].Extra["timeoutMs"]; !ok {
		t.Error("Expected extra dependency members to pass through")
	}
	if _, ok := svc.Contracts[0].Extra["sla"]; !ok {
		t.Error("Expected extra contract members to pass through")
	}
	if _, ok := svc.Events.Producing[0].Extra["schema"]; !ok {
		t.Error("Expected extra event members to pass through")
	}
}

func TestDecodeServiceInputIssues(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPath string
		wantCode string
	}{
		{"missing name", `{"team":"Newton"}`, "name", CodeTooSmall},
		{"blank name", `{"name":"   "}`, "name", CodeTooSmall},
		{"blank dependency", `{"name":"a","dependencies":{"critical":[{"name":""}]}}`, "dependencies.critical[0].name", CodeTooSmall},
		{"blank event", `{"name":"a","events":{"consuming":[{"name":"E"},{"name":" "}]}}`, "events.consuming[1].name", CodeTooSmall},
		{"unknown member", `{"name":"a","owner":"x","colour":"red"}`, "", CodeUnrecognized},
		{"wrong type", `{"name":"a","team":42}`, "team", CodeInvalidType},
		{"array body", `[{"name":"a"}]`, "", CodeInvalidType},
		{"null body", `null`, "", CodeInvalidType},
		{"malformed", `{"name":`, "", CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeServiceInput([]byte(tt.body))

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if len(verr.Issues) == 0 {
				t.Fatal("Expected at least one issue")
			}
			issue := verr.Issues[0]
			if issue.Path != tt.wantPath || issue.Code != tt.wantCode {
				t.Errorf("issue = %+v, want path %q code %q", issue, tt.wantPath, tt.wantCode)
			}
		})
	}
}

func TestUnknownMembersAreListed(t *testing.T) {
	_, err := DecodeServiceInput([]byte(`{"name":"a","zeta":1,"alpha":2}`))

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	want := "Unrecognized key(s) in object: 'alpha', 'zeta'"
	if verr.Issues[0].Message != want {
		t.Errorf("message = %q, want %q", verr.Issues[0].Message, want)
	}
}

func TestNotBlankIsRegistered(t *testing.T) {
	if err := validate.Var("  ", "notblank"); err == nil {
		t.Error("Expected a blank string to fail notblank")
	}
	if err := validate.Var("a", "notblank"); err != nil {
		t.Errorf("Expected a non-blank string to pass, got %v", err)
	}
}
