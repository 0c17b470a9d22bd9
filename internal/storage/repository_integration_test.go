//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "jpticker",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=jpticker sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", host, port.Port(), "jpticker")
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("dialect: %v", err)
	}
	// internal/storage → ../../db/migrations
	path := filepath.Join("..", "..", "db", "migrations")
	if err := goose.Up(db, path); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
}

func TestTickerRepository_ReplaceAndList_Integration(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()

	db := openDB(t, dsn)
	defer func() { _ = db.Close() }()
	runMigrations(t, db)

	repo := NewTickerRepository(db)
	ctx := context.Background()

	first := []models.TickerRecord{
		{Code: "9984", Name: "ソフトバンクグループ", Aliases: []string{"ソフトバンクG"}},
		{Code: "7203", Name: "トヨタ自動車", Kana: "トヨタジドウシャ", Aliases: []string{"トヨタ", "TOYOTA"}, Market: "プライム（内国株式）"},
	}
	if err := repo.ReplaceTickers(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.ListTickers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Code != "7203" || got[1].Code != "9984" {
		t.Fatalf("expected rows ordered by code, got %+v", got)
	}
	if got[0].Kana != "トヨタジドウシャ" || len(got[0].Aliases) != 2 || got[0].Aliases[1] != "TOYOTA" {
		t.Fatalf("round trip lost fields: %+v", got[0])
	}

	// A second publish replaces the table content entirely.
	if err := repo.ReplaceTickers(ctx, []models.TickerRecord{{Code: "6758", Name: "ソニーグループ"}}); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	got, err = repo.ListTickers(ctx)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if len(got) != 1 || got[0].Code != "6758" {
		t.Fatalf("expected only 6758, got %+v", got)
	}
}
