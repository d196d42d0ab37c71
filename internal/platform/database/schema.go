package database

import (
	"context"
	"fmt"
	"log"
)

const accountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id              UUID PRIMARY KEY,
    username        TEXT NOT NULL UNIQUE,
    email           TEXT NOT NULL DEFAULT '',
    first_name      TEXT NOT NULL DEFAULT '',
    last_name       TEXT NOT NULL DEFAULT '',
    hashed_password TEXT NOT NULL,
    is_approved     BOOLEAN NOT NULL DEFAULT FALSE,
    is_staff        BOOLEAN NOT NULL DEFAULT FALSE,
    is_superuser    BOOLEAN NOT NULL DEFAULT FALSE,
    date_joined     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accounts_is_staff ON accounts (is_staff) WHERE is_staff;
CREATE INDEX IF NOT EXISTS idx_accounts_date_joined ON accounts (date_joined DESC);
`

// EnsureSchema creates the accounts table and its indexes if they are missing.
func EnsureSchema(ctx context.Context) {
	if _, err := DB.ExecContext(ctx, accountsSchema); err != nil {
		log.Fatalf("Error ensuring database schema: %v", err)
	}
	fmt.Println("Database schema ensured.")
}
