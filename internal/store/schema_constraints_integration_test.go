package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// TestRatingBoundsEnforcedByDatabase verifies that the user_skills rating
// CHECK constraint rejects out-of-range values even if application-level
// clamping is bypassed.
func TestRatingBoundsEnforcedByDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	databaseURL := getTestDatabaseURL(t)
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, claimed)
		VALUES ('usr_rating_test', 'Rating Test', FALSE)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO expertise_areas (id, name) VALUES ('are_rating_test', 'Rating Test Area')
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		t.Fatalf("insert test area: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO skills (id, name, expertise_area_id) VALUES ('skl_rating_test', 'Rating Test Skill', 'are_rating_test')
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		t.Fatalf("insert test skill: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO user_skills (user_id, skill_id, rating)
		VALUES ('usr_rating_test', 'skl_rating_test', 9)
	`)
	if err == nil {
		t.Fatal("expected rating 9 to violate the CHECK constraint, but insert succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "23514" {
		t.Fatalf("expected SQLSTATE 23514 (check_violation), got: %s", pgErr.SQLState())
	}

	// Cleanup
	_, _ = db.ExecContext(ctx, `DELETE FROM users WHERE id = 'usr_rating_test'`)
	_, _ = db.ExecContext(ctx, `DELETE FROM expertise_areas WHERE id = 'are_rating_test'`)
}

// TestOAuthAccountUniquenessEnforcedByDatabase verifies that a provider
// subject cannot be linked to two directory profiles at once.
func TestOAuthAccountUniquenessEnforcedByDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	databaseURL := getTestDatabaseURL(t)
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	for _, id := range []string{"usr_oauth_a", "usr_oauth_b"} {
		_, err = db.ExecContext(ctx, `
			INSERT INTO users (id, display_name, claimed)
			VALUES ($1, 'OAuth Test', TRUE)
			ON CONFLICT (id) DO NOTHING
		`, id)
		if err != nil {
			t.Fatalf("insert test user %s: %v", id, err)
		}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO oauth_accounts (id, provider, provider_account_id, user_id)
		VALUES ('oaa_uniq_1', 'linkedin', 'subject-uniq-test', 'usr_oauth_a')
	`)
	if err != nil {
		t.Fatalf("insert first oauth account: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO oauth_accounts (id, provider, provider_account_id, user_id)
		VALUES ('oaa_uniq_2', 'linkedin', 'subject-uniq-test', 'usr_oauth_b')
	`)
	if err == nil {
		t.Fatal("expected duplicate (provider, provider_account_id) to be rejected, but insert succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "23505" {
		t.Fatalf("expected SQLSTATE 23505 (unique_violation), got: %s", pgErr.SQLState())
	}

	// Cleanup cascades the oauth rows.
	_, _ = db.ExecContext(ctx, `DELETE FROM users WHERE id IN ('usr_oauth_a', 'usr_oauth_b')`)
}

// TestInitMigrationKeepsRatingCheck guards against the rating bounds being
// dropped from the schema without a matching application change.
func TestInitMigrationKeepsRatingCheck(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	expectedSnippets := []string{
		"CHECK (rating BETWEEN 1 AND 5)",
		"UNIQUE (provider, provider_account_id)",
		"PRIMARY KEY (user_id, skill_id)",
	}
	for _, snippet := range expectedSnippets {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
}

// getTestDatabaseURL returns the database URL for integration tests,
// skipping when no test database is configured.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("DPN_TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("DPN_TEST_DATABASE_URL is not set")
	}
	return url
}
