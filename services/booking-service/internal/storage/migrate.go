package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/NahunMenem/TurnosLu/libs/db"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables and indexes the store needs. Every statement is
// idempotent, so it runs on each start.
func Migrate(ctx context.Context, pool *db.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
