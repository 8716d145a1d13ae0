package postgres

import (
	"regexp"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator(t *testing.T) {
	gen := NewULIDGenerator()
	a, b := gen.Generate(), gen.Generate()

	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if _, err := ulid.Parse(a); err != nil {
		t.Fatalf("expected a valid ULID, got %s: %v", a, err)
	}
}

func TestReferenceGenerator(t *testing.T) {
	gen := &ReferenceGenerator{now: func() time.Time { return time.UnixMilli(36 * 36) }}

	ref := gen.Generate("JE")
	if !regexp.MustCompile(`^JE-100-[0-9A-Z]{5}$`).MatchString(ref) {
		t.Fatalf("unexpected reference format: %s", ref)
	}

	seen := map[string]bool{}
	for range 50 {
		seen[gen.Generate("JE")] = true
	}
	if len(seen) < 45 {
		t.Fatalf("expected random suffixes to vary, got %d distinct of 50", len(seen))
	}
}
