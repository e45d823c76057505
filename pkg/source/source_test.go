package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBundledDataset(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	status := l.Status()
	if status.Source != KindBundled {
		t.Errorf("Expected bundled source, got %s", status.Source)
	}
	if status.Count == 0 || len(l.Services()) != status.Count {
		t.Errorf("Expected bundled services, got count %d / %d", status.Count, len(l.Services()))
	}
	if status.Skipped != 0 {
		t.Errorf("Bundled data should have no skipped records, got %d", status.Skipped)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "services.json")
	if err := os.WriteFile(path, []byte(`[{"name":"a"},{"name":"b"},42]`), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(WithFile(path))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	status := l.Status()
	if status.Source != KindFile || status.Count != 2 || status.Skipped != 1 {
		t.Errorf("Unexpected status %+v", status)
	}

	// A broken rewrite keeps the previous dataset
	if err := os.WriteFile(path, []byte(`{"name":"a"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.ReloadFile(); err == nil {
		t.Error("Expected an error for a non-array file")
	}
	if got := len(l.Services()); got != 2 {
		t.Errorf("Expected previous 2 services to remain, got %d", got)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	yaml := "- name: a\n  dependencies:\n    critical:\n      - name: b\n- name: b\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(WithFile(path))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.ReloadFile(); err != nil {
		t.Fatalf("ReloadFile() error = %v", err)
	}
	services := l.Services()
	if len(services) != 2 || services[0].Dependencies.Critical[0].Name != "b" {
		t.Errorf("Unexpected services %+v", services)
	}
}

func TestRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"name":"remote"}]`))
		case "/object":
			_, _ = w.Write([]byte(`{"services":[]}`))
		case "/slow":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		default:
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	l, err := New(WithTimeout(100 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	var notified []Status
	l.OnLoad(func(s Status) { notified = append(notified, s) })

	status, err := l.Refresh(context.Background(), server.URL+"/ok")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if status.Source != KindURL || status.Count != 1 || status.FetchError != "" {
		t.Errorf("Unexpected status %+v", status)
	}

	failures := []struct {
		path string
		want string
	}{
		{"/missing", "HTTP 503"},
		{"/object", "expected JSON array"},
		{"/slow", "request timed out"},
	}
	for _, f := range failures {
		status, err := l.Refresh(context.Background(), server.URL+f.path)
		if err == nil {
			t.Errorf("%s: expected error", f.path)
			continue
		}
		if status.FetchError != f.want {
			t.Errorf("%s: FetchError = %q, want %q", f.path, status.FetchError, f.want)
		}
		if services := l.Services(); len(services) != 1 || services[0].Name != "remote" {
			t.Errorf("%s: expected last good dataset to remain, got %+v", f.path, services)
		}
	}

	if len(notified) != 4 {
		t.Errorf("Expected 4 notifications, got %d", len(notified))
	}
}

func TestRefreshWithoutURL(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Refresh(context.Background(), ""); err == nil {
		t.Error("Expected an error without any url")
	}
}
