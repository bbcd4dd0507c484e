package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"daycare-backend-go/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

type migration struct {
	Name string
	Path string
}

// Apply runs every pending migration for the store's dialect. Safe to call on
// every startup.
func Apply(ctx context.Context, store *db.Store) error {
	if err := ensureTable(ctx, store); err != nil {
		return err
	}
	migs, err := listMigrations(files, "sql/"+string(store.Dialect()))
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(ctx, store)
	if err != nil {
		return err
	}
	for _, mig := range migs {
		if applied[mig.Name] {
			continue
		}
		if err := applyMigration(ctx, store, mig); err != nil {
			return err
		}
	}
	return nil
}

func ensureTable(ctx context.Context, store *db.Store) error {
	return store.ExecScript(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  name TEXT PRIMARY KEY,
  version TEXT NULL,
  applied_at TEXT NOT NULL
)`)
}

func listMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	migs := make([]migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		migs = append(migs, migration{
			Name: name,
			Path: path.Join(dir, name),
		})
	}
	sort.Slice(migs, func(i, j int) bool {
		iVersion, iOk := parseVersionNumber(migs[i].Name)
		jVersion, jOk := parseVersionNumber(migs[j].Name)
		switch {
		case iOk && jOk && iVersion != jVersion:
			return iVersion < jVersion
		case iOk != jOk:
			return iOk
		default:
			return migs[i].Name < migs[j].Name
		}
	})
	return migs, nil
}

func appliedMigrations(ctx context.Context, store *db.Store) (map[string]bool, error) {
	rows := []string{}
	if err := store.Select(ctx, &rows, `SELECT name FROM schema_migrations`); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(rows))
	for _, name := range rows {
		names[name] = true
	}
	return names, nil
}

func applyMigration(ctx context.Context, store *db.Store, mig migration) error {
	content, err := fs.ReadFile(files, mig.Path)
	if err != nil {
		return err
	}
	return store.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", mig.Name, err)
		}
		_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name, version, applied_at) VALUES (?, ?, ?)`,
			mig.Name, nullIfEmpty(parseVersion(mig.Name)), time.Now().UTC().Format(time.RFC3339))
		return err
	})
}

func parseVersion(name string) string {
	if !strings.HasPrefix(name, "V") {
		return ""
	}
	parts := strings.SplitN(name[1:], "__", 2)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func parseVersionNumber(name string) (int, bool) {
	raw := parseVersion(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func nullIfEmpty(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
