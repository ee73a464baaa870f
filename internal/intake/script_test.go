package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spec-kit/support-bot/internal/domain"
)

func TestCategoryTable(t *testing.T) {
	t.Parallel()

	script := DefaultScript()
	valid := map[string]domain.Category{
		"1":   domain.CategoryHardware,
		"2":   domain.CategoryNetwork,
		"3":   domain.CategoryAccountPassword,
		"4":   domain.CategorySoftware,
		"5":   domain.CategoryOthers,
		" 3 ": domain.CategoryAccountPassword,
	}
	for reply, want := range valid {
		got, ok := script.Category(reply)
		if !ok || got != want {
			t.Fatalf("Category(%q): got=%q ok=%v want=%q", reply, got, ok, want)
		}
	}
	for _, reply := range []string{"", "0", "6", "12", "one", "exit", "Hardware", "1️⃣"} {
		if got, ok := script.Category(reply); ok {
			t.Fatalf("Category(%q) should be invalid, got=%q", reply, got)
		}
	}
}

func TestLoadScriptOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "script.yaml")
	body := `
intent_menu: "Hi! Reply 1 or 2."
categories:
  - key: "a"
    label: Printer
  - key: "b"
    label: Email
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if script.IntentMenu != "Hi! Reply 1 or 2." {
		t.Fatalf("intent menu not overridden: %q", script.IntentMenu)
	}
	if script.Cancelled != DefaultScript().Cancelled {
		t.Fatalf("unset key lost its default: %q", script.Cancelled)
	}
	if got, ok := script.Category("B"); !ok || got != "Email" {
		t.Fatalf("custom category mismatch: got=%q ok=%v", got, ok)
	}
	if _, ok := script.Category("1"); ok {
		t.Fatalf("default categories should be replaced")
	}
}

func TestLoadScriptRejectsBadCategories(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"duplicate": "categories:\n  - {key: \"1\", label: A}\n  - {key: \" 1\", label: B}\n",
		"reserved":  "categories:\n  - {key: EXIT, label: A}\n",
		"no label":  "categories:\n  - {key: \"1\"}\n",
		"empty":     "categories: []\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "script.yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadScript(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	script := DefaultScript()
	if got := withAttempts(script.IntentRetry, 2); !strings.HasPrefix(got, "Invalid response. You have 2 attempts left.") {
		t.Fatalf("unexpected retry text: %q", got)
	}
	if got := withTicket(script.TicketCreated, "#007"); !strings.Contains(got, "Your ticket number is #007.") {
		t.Fatalf("unexpected confirmation: %q", got)
	}
}
