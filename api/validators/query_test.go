package validators

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=20&bad=x&big=900", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 200); err != nil || v != 20 {
		t.Fatalf("expected 20, got %d (%v)", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 50, 1, 200); err != nil || v != 50 {
		t.Fatalf("expected default, got %d (%v)", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 50, 1, 200); err == nil {
		t.Fatalf("expected error for non numeric value")
	}
	if _, err := ParseQueryInt(req, "big", 50, 1, 200); err == nil {
		t.Fatalf("expected error for out of range value")
	}
}

func TestParseQueryUUID(t *testing.T) {
	req := httptest.NewRequest("GET", "/?userId=6f1c2e8a-4b0d-4f55-9e43-3a1d5c7b9e10&bad=nope", nil)
	id, err := ParseQueryUUID(req, "userId")
	if err != nil || id == nil || id.String() != "6f1c2e8a-4b0d-4f55-9e43-3a1d5c7b9e10" {
		t.Fatalf("unexpected result %v (%v)", id, err)
	}
	if id, err := ParseQueryUUID(req, "missing"); err != nil || id != nil {
		t.Fatalf("expected nil for absent parameter")
	}
	if _, err := ParseQueryUUID(req, "bad"); err == nil {
		t.Fatalf("expected error for malformed uuid")
	}
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest("GET", "/?from=2024-03-01&to=2024-03-02T10:00:00Z&bad=yesterday", nil)
	from, err := ParseQueryTime(req, "from")
	if err != nil || !from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v (%v)", from, err)
	}
	to, err := ParseQueryTime(req, "to")
	if err != nil || to.Hour() != 10 {
		t.Fatalf("unexpected to %v (%v)", to, err)
	}
	if _, err := ParseQueryTime(req, "bad"); err == nil {
		t.Fatalf("expected error for unparseable time")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  Basmati Rice  ", 5); got != "Basma" {
		t.Fatalf("unexpected %q", got)
	}
}
