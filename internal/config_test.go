package internal

import (
	"strings"
	"testing"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestAuthConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"empty mode normalises to disabled", AuthConfig{}, false},
		{"disabled", AuthConfig{Mode: AuthModeDisabled}, false},
		{"token with token", AuthConfig{Mode: AuthModeToken, Token: "secret"}, false},
		{"token without token", AuthConfig{Mode: AuthModeToken}, true},
		{"unknown mode", AuthConfig{Mode: "basic"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestAuthEnabled(t *testing.T) {
	if (&AuthConfig{Mode: AuthModeDisabled}).AuthEnabled() {
		t.Error("disabled mode reported enabled")
	}
	if !(&AuthConfig{Mode: AuthModeToken, Token: "x"}).AuthEnabled() {
		t.Error("token mode reported disabled")
	}
}

func TestHTTPConfigValidate(t *testing.T) {
	if err := (&HTTPConfig{Port: 8080}).Validate(); err != nil {
		t.Errorf("valid port rejected: %v", err)
	}
	if err := (&HTTPConfig{Port: 0}).Validate(); err == nil {
		t.Error("zero port accepted")
	}
	if err := (&HTTPConfig{Port: 70000}).Validate(); err == nil {
		t.Error("out-of-range port accepted")
	}
}

func TestInboxConfigValidate(t *testing.T) {
	if err := (&InboxConfig{Path: "./inbox", DebounceMS: 500}).Validate(); err != nil {
		t.Errorf("valid inbox rejected: %v", err)
	}
	if err := (&InboxConfig{DebounceMS: 500}).Validate(); err == nil {
		t.Error("missing path accepted")
	}
	if err := (&InboxConfig{Path: "./inbox", DebounceMS: 120_000}).Validate(); err == nil {
		t.Error("excessive debounce accepted")
	}
}

func TestSyncConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sync.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero workers accepted")
	}

	cfg = NewDefaultConfig()
	cfg.Sync.Handwritten.Folder = ""
	err := cfg.Validate()
	if err == nil {
		t.Error("module without folder accepted")
	} else if !strings.Contains(err.Error(), "Folder") {
		t.Errorf("error does not name the field: %v", err)
	}
}

func TestTemplateOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sync.Memo.Template = "/etc/templates/memo.tmpl"
	cfg.Sync.Handwritten.IndexTemplate = "/etc/templates/index.tmpl"
	overrides := cfg.TemplateOverrides()
	if overrides["memo"] != "/etc/templates/memo.tmpl" {
		t.Errorf("overrides = %v", overrides)
	}
	if overrides["handwritten-index"] != "/etc/templates/index.tmpl" {
		t.Errorf("overrides = %v", overrides)
	}
	if overrides["handwritten-page"] != "" {
		t.Errorf("unset override should be empty, got %q", overrides["handwritten-page"])
	}
}
