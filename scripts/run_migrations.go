package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down] [migrations-dir]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}
	migrationDir := "migrations"
	if len(os.Args) > 2 {
		migrationDir = os.Args[2]
	}

	logger, err := logging.New(os.Getenv("LOG_LEVEL"), false)
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer logger.Sync()

	// Only the database settings are needed here.
	_ = godotenv.Load()
	var dbCfg config.DatabaseConfig
	if err := envconfig.Process("", &dbCfg); err != nil {
		logger.Fatal("Failed to load database config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewConnection(ctx, &dbCfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	files, err := os.ReadDir(migrationDir)
	if err != nil {
		logger.Fatal("Failed to read migration directory", zap.String("dir", migrationDir), zap.Error(err))
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(migrationFiles)))
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			logger.Fatal("Failed to read migration file", zap.String("file", filename), zap.Error(err))
		}

		logger.Info("Running migration", zap.String("file", filename))
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			logger.Fatal("Failed to execute migration", zap.String("file", filename), zap.Error(err))
		}
	}

	logger.Info("Migrations complete", zap.Int("count", len(migrationFiles)), zap.String("direction", direction))
}
