// Package migration applies the SQL files that AutoMigrate cannot express
// (indexes, views). Each file runs once and is recorded in
// schema_migrations.
package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the migrations shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type Runner struct {
	db     *gorm.DB
	files  fs.FS
	logger *logrus.Logger
}

func NewRunner(db *gorm.DB, files fs.FS, logger *logrus.Logger) *Runner {
	return &Runner{
		db:     db,
		files:  files,
		logger: logger,
	}
}

// Run applies pending migrations in file name order. It returns the
// number of files applied.
func (r *Runner) Run(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)

	if err := db.Exec(createVersionTable).Error; err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var versions []string
	if err := db.Table("schema_migrations").Pluck("version", &versions).Error; err != nil {
		return 0, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	names, err := fs.Glob(r.files, "*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := r.apply(db, name); err != nil {
			return count, fmt.Errorf("failed to run migration %s: %w", name, err)
		}
		count++
		r.logger.WithField("file", name).Info("Migration applied")
	}

	if count == 0 {
		r.logger.Debug("No pending migrations")
	}
	return count, nil
}

func (r *Runner) apply(db *gorm.DB, name string) error {
	content, err := fs.ReadFile(r.files, name)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i, stmt := range splitStatements(string(content)) {
			r.logger.WithFields(logrus.Fields{
				"file":      name,
				"statement": i + 1,
			}).Debug("Executing SQL statement")

			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", name).Error
	})
}

// splitStatements drops comment lines and splits on semicolons. Files with
// dollar-quoted bodies are kept whole since their semicolons are not
// statement boundaries.
func splitStatements(sql string) []string {
	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	cleaned := strings.TrimSpace(strings.Join(lines, "\n"))

	if strings.Contains(cleaned, "$$") {
		if cleaned == "" {
			return nil
		}
		return []string{cleaned}
	}

	var out []string
	for _, stmt := range strings.Split(cleaned, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
