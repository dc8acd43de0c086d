// Package relica provides a durable dead-letter sink using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    relay "github.com/RCK777-BALL/WorkPro3-sub006"
//	    "github.com/RCK777-BALL/WorkPro3-sub006/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/workpro?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create the dead-letter table (driverName is "mysql", "postgres" or "sqlite3")
//	if err := relica.ApplyMigrations(ctx, db, "mysql", relica.DefaultTablePrefix); err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := relay.NewService(
//	    relay.WithBroker(broker),
//	    relay.WithLogger(logger),
//	    relay.WithDeadLetterRepository(relica.NewDeadLetterRepository(db, "mysql")),
//	)
package relica
