package linkedin

import (
	"strings"
	"testing"
)

func TestCanonicalProfileURL(t *testing.T) {
	if got := CanonicalProfileURL("abc123"); got != "https://www.linkedin.com/in/abc123" {
		t.Fatalf("unexpected canonical url %q", got)
	}
	if got := CanonicalProfileURL(""); got != "" {
		t.Fatalf("empty subject must yield empty url, got %q", got)
	}
}

func TestAuthURLCarriesState(t *testing.T) {
	c := New("client-id", "client-secret", "http://localhost/callback")
	url := c.AuthURL("state-xyz")
	if !strings.Contains(url, "state=state-xyz") {
		t.Fatalf("auth url missing state: %s", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Fatalf("auth url missing client id: %s", url)
	}
}

func TestConfigured(t *testing.T) {
	if New("", "", "").Configured() {
		t.Fatal("empty credentials must not report configured")
	}
	if !New("id", "secret", "").Configured() {
		t.Fatal("credentials present must report configured")
	}
}
