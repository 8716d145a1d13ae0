package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/iho/gobooks/migrations"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	if len(ups) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for version := range ups {
		if !downs[version] {
			t.Errorf("migration %s has no down script", version)
		}
	}
}

func TestNewMigrateRejectsBadURL(t *testing.T) {
	if _, err := newMigrate("not-a-url", ""); err == nil {
		t.Fatal("expected error for an invalid database URL")
	}
}
