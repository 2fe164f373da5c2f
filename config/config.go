// Package config loads a feather project manifest: the YAML file naming a
// database path, a pool connection limit, and the migration/query globs a
// project's CLI and pool construction read from. Grounded on the teacher's
// database/database.go YAML config loading (gopkg.in/yaml.v3, strict
// decoding via dec.KnownFields(true)), generalized from sqldef's
// dump/skip-table options to feather's pool/migration/query manifest shape
// (spec SPEC_FULL.md "AMBIENT STACK / Configuration").
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultMaxConnections is used when a manifest omits max_connections.
const DefaultMaxConnections = 5

// Project is a parsed feather.yaml manifest.
type Project struct {
	Database       string `yaml:"database"`
	MaxConnections int    `yaml:"max_connections"`
	Migrations     string `yaml:"migrations"`
	Queries        string `yaml:"queries"`
}

// Load reads and strictly decodes a feather.yaml manifest at path, filling
// MaxConnections with DefaultMaxConnections when the manifest omits it.
func Load(path string) (*Project, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(buf)
}

func parse(buf []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	var p Project
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if p.Database == "" {
		return nil, fmt.Errorf("config: %q is required", "database")
	}
	if p.MaxConnections == 0 {
		p.MaxConnections = DefaultMaxConnections
	}
	return &p, nil
}

// MigrationFiles expands p.Migrations (a glob relative to dir, the
// manifest's own directory) into a sorted list of migration file paths.
// Sorting is by filename so numbered migrations (0001_x.sql, 0002_y.sql...)
// apply in order regardless of filesystem enumeration order.
func (p *Project) MigrationFiles(dir string) ([]string, error) {
	return globSorted(dir, p.Migrations)
}

// QueryFiles expands p.Queries the same way MigrationFiles expands
// p.Migrations.
func (p *Project) QueryFiles(dir string) ([]string, error) {
	return globSorted(dir, p.Queries)
}

func globSorted(dir, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config: glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}
