package relica

import (
	"context"
	"database/sql"
	"strings"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
)

// ApplyMigrations creates the dead-letter table for driverName
// ("mysql", "postgres" or "sqlite3"). Statements are idempotent.
func ApplyMigrations(ctx context.Context, db *sql.DB, driverName, prefix string) error {
	scripts, err := relay.Migrations(driverName, prefix)
	if err != nil {
		return err
	}

	for _, script := range scripts {
		for _, stmt := range strings.Split(script, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to apply migration", err)
			}
		}
	}
	return nil
}
