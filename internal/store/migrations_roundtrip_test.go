package store

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"hypda/entry/db"
)

// Runs against a real server only when HYPDA_TEST_DATABASE_URL is set.
func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("HYPDA_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("HYPDA_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	migrations := db.Migrations()
	first, err := ApplyMigrationsFS(ctx, conn, migrations)
	if err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if again, err := ApplyMigrationsFS(ctx, conn, migrations); err != nil || again != 0 {
		t.Fatalf("second pass should be a no-op, applied=%d err=%v", again, err)
	}

	store := NewPostgresStore(conn)
	if _, err := store.InsertReview(ctx, "Peer reviewed"); err != nil {
		t.Fatalf("insert review: %v", err)
	}
	if reviews, err := store.ListReviews(ctx); err != nil || len(reviews) != 1 {
		t.Fatalf("list reviews: %v %+v", err, reviews)
	}

	if err := applyDownMigrations(ctx, conn, migrations); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if second, err := ApplyMigrationsFS(ctx, conn, migrations); err != nil || second != first {
		t.Fatalf("apply up migrations (pass 2): applied=%d err=%v", second, err)
	}
}

func applyDownMigrations(ctx context.Context, conn *sql.DB, migrations fs.FS) error {
	downs, err := fs.Glob(migrations, "*.down.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(downs)))

	for _, name := range downs {
		contents, err := fs.ReadFile(migrations, name)
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(string(contents)); text != "" {
			if _, err := conn.ExecContext(ctx, text); err != nil {
				return err
			}
		}
	}
	return nil
}
