package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"voice-bridge/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Runs only against a real database: JOURNAL_TEST_DSN="host=... dbname=...".
func TestPostgresRepo_AppendIntegration(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_DSN")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_DSN not set")
	}
	ctx := context.Background()

	db, err := utils.OpenPostgres(ctx, "pgx", dsn, utils.PostgresPoolConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	svc := NewService(repo)
	sid := "CA-it-" + time.Now().UTC().Format("150405.000000000")
	if err := svc.Append(ctx, Entry{CallSid: sid, Action: "gather_default", InputText: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM call_turns WHERE call_sid = $1`, sid).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}
