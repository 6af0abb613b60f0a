package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"citas/backend/internal/domain"
	"citas/backend/internal/store"
)

func TestPostgresIntegration_AppointmentCRUDAndDatetimeUniqueness(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("CITAS_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CITAS_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "citas_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(cleanupCtx)
	})

	// Single connection in the pool, so search_path sticks for the session.
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	repo := NewAppointmentRepo(db)

	monday := time.Date(2022, 4, 4, 8, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, domain.Appointment{
		Name:     "Ana",
		Email:    "ana@x.com",
		Datetime: monday,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected assigned id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected audit timestamps, got %+v", created)
	}

	_, err = repo.Create(ctx, domain.Appointment{
		Name:     "Bob",
		Email:    "b@x.com",
		Datetime: monday,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("same-instant create err = %v, want %v", err, store.ErrConflict)
	}

	second, err := repo.Create(ctx, domain.Appointment{
		Name:     "Bob",
		Email:    "b@x.com",
		Datetime: monday.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rows, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0].Datetime.Before(rows[1].Datetime) {
		t.Fatalf("rows not ordered by datetime: %v, %v", rows[0].Datetime, rows[1].Datetime)
	}

	newName := "Roberto"
	updated, err := repo.Update(ctx, second.ID, store.AppointmentPatch{Name: &newName})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Name != "Roberto" {
		t.Fatalf("updated name = %q, want %q", updated.Name, "Roberto")
	}
	if updated.Email != "b@x.com" {
		t.Fatalf("update touched email: %q", updated.Email)
	}

	takenSlot := monday
	_, err = repo.Update(ctx, second.ID, store.AppointmentPatch{Datetime: &takenSlot})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("update onto taken slot err = %v, want %v", err, store.ErrConflict)
	}

	_, err = repo.Update(ctx, uuid.MustParse("00000000-0000-0000-0000-0000000009ff"), store.AppointmentPatch{Name: &newName})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing id err = %v, want %v", err, store.ErrNotFound)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v, want %v", err, store.ErrNotFound)
	}

	rows, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != second.ID {
		t.Fatalf("rows after delete = %+v, want only %s", rows, second.ID)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
