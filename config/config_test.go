package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/feathersql/feather/config"
)

func TestLoadDefaultsMaxConnections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feather.yaml")
	content := "database: ./app.db\nmigrations: ./migrations/*.sql\nqueries: ./queries/*.sql\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	proj, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if proj.MaxConnections != config.DefaultMaxConnections {
		t.Fatalf("expected default max_connections %d, got %d", config.DefaultMaxConnections, proj.MaxConnections)
	}
	if proj.Database != "./app.db" {
		t.Fatalf("unexpected database: %q", proj.Database)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feather.yaml")
	content := "database: ./app.db\nbogus_field: 1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected an error for an unknown manifest field")
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feather.yaml")
	if err := os.WriteFile(path, []byte("migrations: ./migrations/*.sql\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected an error for a manifest missing database")
	}
}

func TestMigrationFilesSortedByName(t *testing.T) {
	dir := t.TempDir()
	migDir := filepath.Join(dir, "migrations")
	if err := os.Mkdir(migDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "0010_c.sql"} {
		if err := os.WriteFile(filepath.Join(migDir, name), []byte("-- noop"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	proj := &config.Project{Database: "./app.db", Migrations: "migrations/*.sql"}
	files, err := proj.MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 migration files, got %d", len(files))
	}
	if filepath.Base(files[0]) != "0001_a.sql" || filepath.Base(files[2]) != "0010_c.sql" {
		t.Fatalf("expected sorted order, got %v", files)
	}
}
