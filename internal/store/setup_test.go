package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safar/go-travel-store/internal/models"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(20)

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func createTestUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, NewUser{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		FullName:     "Test " + username,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

// createTestTour inserts a tour. A zero discounted price stores NULL.
func createTestTour(t *testing.T, db *sql.DB, name string, price, discounted int64) int64 {
	t.Helper()
	var disc any
	if discounted > 0 {
		disc = decimal.NewFromInt(discounted)
	}
	var id int64
	err := db.QueryRow(
		`INSERT INTO tours (name, price, discounted_price) VALUES ($1, $2, $3) RETURNING id`,
		name, decimal.NewFromInt(price), disc).Scan(&id)
	if err != nil {
		t.Fatalf("Create tour: %v", err)
	}
	return id
}

func createTestBooking(t *testing.T, db *sql.DB, userID int64, price int64, participants int) *models.Booking {
	t.Helper()
	tourID := createTestTour(t, db, fmt.Sprintf("Tour for user %d", userID), price, 0)
	b, err := CreateBooking(context.Background(), db, userID, BookingInput{
		TargetType:   models.ItemTour,
		TargetID:     tourID,
		BookingDate:  models.NewDate(2030, time.June, 1),
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	return b
}
