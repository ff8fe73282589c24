package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tironinho/kronos-sub000/pkg/questdb"
)

// Migration represents one schema migration, loaded from a pair of
// <id>.up.sql / <id>.down.sql files.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Runner applies and reverts schema migrations against QuestDB. Applied
// migrations are recorded in the schema_migrations table.
type Runner struct {
	client       questdb.Client
	migrationDir string
}

// NewRunner creates a migration runner over the given directory.
func NewRunner(client questdb.Client, migrationDir string) *Runner {
	return &Runner{
		client:       client,
		migrationDir: migrationDir,
	}
}

// EnsureMigrationTable creates the schema_migrations table if it is missing.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id STRING,
			name STRING,
			applied_at TIMESTAMP
		) TIMESTAMP(applied_at) PARTITION BY DAY;
	`
	return r.client.Exec(ctx, createTableSQL)
}

// AppliedMigrations returns the set of migration ids already applied.
func (r *Runner) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := r.client.Query(ctx, "SELECT id FROM schema_migrations ORDER BY applied_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

// LoadMigrations reads every *.up.sql file in the migration directory, in
// lexical order.
func (r *Runner) LoadMigrations() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.migrationDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(upFiles)

	var migrations []Migration
	for _, upFile := range upFiles {
		migration, err := r.loadPair(upFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", upFile, err)
		}
		migrations = append(migrations, migration)
	}
	return migrations, nil
}

func (r *Runner) loadPair(upFilePath string) (Migration, error) {
	upContent, err := os.ReadFile(upFilePath)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(filepath.Base(upFilePath), ".up.sql")
	name := id
	if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
		name = parts[1]
	}

	var downSQL string
	downFilePath := strings.Replace(upFilePath, ".up.sql", ".down.sql", 1)
	if downContent, err := os.ReadFile(downFilePath); err == nil {
		downSQL = strings.TrimSpace(string(downContent))
	}

	return Migration{
		ID:      id,
		Name:    name,
		UpSQL:   strings.TrimSpace(string(upContent)),
		DownSQL: downSQL,
	}, nil
}

// MigrateUp applies pending migrations. steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toApply []Migration
	for _, migration := range migrations {
		if !applied[migration.ID] {
			toApply = append(toApply, migration)
		}
	}
	if steps > 0 && len(toApply) > steps {
		toApply = toApply[:steps]
	}

	for _, migration := range toApply {
		if migration.UpSQL == "" {
			continue
		}
		if err := r.client.Exec(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.ID, err)
		}
		if err := r.client.Exec(ctx,
			"INSERT INTO schema_migrations VALUES ($1, $2, $3)",
			migration.ID, migration.Name, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
		}
	}

	return nil
}

// MigrateDown reverts the most recent applied migrations, newest first.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, migration := range toRevert {
		if migration.DownSQL == "" {
			return fmt.Errorf("no DOWN SQL found for migration %s", migration.ID)
		}
		if err := r.client.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", migration.ID, err)
		}
		if err := r.client.Exec(ctx,
			"DELETE FROM schema_migrations WHERE id = $1", migration.ID); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", migration.ID, err)
		}
	}

	return nil
}
