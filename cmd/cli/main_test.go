package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	if err := printJSON(&out, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("printJSON: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}
}

func TestParseParams(t *testing.T) {
	q, err := parseParams([]string{"asOf=2025-01-31", "storeId=s1"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if q.Get("asOf") != "2025-01-31" || q.Get("storeId") != "s1" {
		t.Fatalf("unexpected values %v", q)
	}

	if _, err := parseParams([]string{"novalue"}); err == nil {
		t.Fatal("expected an error for a parameter without '='")
	}
}

func TestTokenIssue(t *testing.T) {
	out, err := execute(t, "token", "issue", "--secret", "s3cret", "--user", "alice", "--role", "Viewer")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != "alice" || claims.Role != domain.RoleViewer {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := execute(t, "token", "issue", "--secret", "s3cret", "--user", "alice", "--role", "owner"); err == nil {
		t.Fatal("expected an unknown role to be rejected")
	}
}

func TestReportCommand(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balanced":true}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--token", "tok", "report", "trial-balance", "-p", "asOf=2025-01-31")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if gotPath != "/api/v1/reports/trial-balance" || gotQuery != "asOf=2025-01-31" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if !strings.Contains(out, `"balanced": true`) {
		t.Fatalf("expected pretty-printed body, got %s", out)
	}

	if _, err := execute(t, "--url", srv.URL, "report", "nonexistent"); err == nil {
		t.Fatal("expected an unknown report name to be rejected")
	}
}

func TestAPIErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"ledger is inconsistent"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "ledger", "consistency")
	if err == nil || !strings.Contains(err.Error(), "409 ledger is inconsistent") {
		t.Fatalf("expected the API error, got %v", err)
	}
}

func TestDBCommandsRequireURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := execute(t, "db", "status"); err == nil {
		t.Fatal("expected an error without a database url")
	}
}
