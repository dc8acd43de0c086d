package relay

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// MigrationFiles contains the SQL migrations for the dead-letter table,
// one directory per database driver (mysql, postgres, sqlite3).
//
// Table names carry a {{prefix}} placeholder. Use Migrations to get the
// statements with the prefix filled in, or apply them with
// adapters/relica.ApplyMigrations.
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// Migrations returns the migration scripts for driverName in apply order,
// with {{prefix}} replaced by prefix.
func Migrations(driverName, prefix string) ([]string, error) {
	dir := "migrations/" + driverName
	entries, err := fs.ReadDir(MigrationFiles, dir)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, fmt.Sprintf("no migrations for driver %q", driverName), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(MigrationFiles, dir+"/"+name)
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to read migration "+name, err)
		}
		scripts = append(scripts, strings.ReplaceAll(string(data), "{{prefix}}", prefix))
	}
	return scripts, nil
}
