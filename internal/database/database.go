package database

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	_ "github.com/lib/pq"
)

// NewDB creates a new database connection. An explicit URL wins; otherwise
// DATABASE_URL is taken from the environment or a .env file found by walking
// up from the working directory.
func NewDB(url string) (*sql.DB, error) {
	if url == "" {
		loaded, err := loadDatabaseURL()
		if err != nil {
			return nil, fmt.Errorf("failed to get database URL: %w", err)
		}
		url = loaded
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

// InitSchema creates the feed tables if they do not exist
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS threads (
			thread_id         TEXT PRIMARY KEY,
			status            TEXT NOT NULL DEFAULT 'pending',
			category          TEXT NOT NULL,
			headline          TEXT NOT NULL,
			summary           TEXT NOT NULL,
			source_urls       JSONB NOT NULL DEFAULT '[]',
			submitted_by      TEXT NOT NULL,
			validation_notes  TEXT,
			validated_at      TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			closed_at         TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS updates (
			update_id         TEXT PRIMARY KEY,
			thread_id         TEXT NOT NULL REFERENCES threads(thread_id),
			author_address    TEXT NOT NULL,
			body              TEXT NOT NULL,
			source_urls       JSONB NOT NULL DEFAULT '[]',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS reactions (
			reaction_id       TEXT PRIMARY KEY,
			update_id         TEXT NOT NULL REFERENCES updates(update_id),
			author_address    TEXT NOT NULL,
			kind              TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (update_id, author_address)
		);

		CREATE TABLE IF NOT EXISTS posts (
			post_id           TEXT PRIMARY KEY,
			external_id       TEXT,
			thread_id         TEXT REFERENCES threads(thread_id),
			kind              TEXT NOT NULL,
			body              TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func loadDatabaseURL() (string, error) {
	if direct := strings.TrimSpace(os.Getenv("DATABASE_URL")); direct != "" {
		return direct, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	envPath, err := findEnvFile(wd)
	if err != nil {
		return "", err
	}

	file, err := os.Open(envPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", envPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eqIdx := strings.IndexRune(line, '=')
		if eqIdx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:eqIdx])
		if key != "DATABASE_URL" {
			continue
		}

		value := strings.TrimSpace(line[eqIdx+1:])
		value = strings.Trim(value, "\"'")
		value = strings.TrimFunc(value, unicode.IsSpace)
		if value == "" {
			return "", errors.New("DATABASE_URL is empty in .env")
		}
		return value, nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", envPath, err)
	}

	return "", errors.New("DATABASE_URL not found in environment or .env")
}

func findEnvFile(start string) (string, error) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf(".env not found starting from %s", start)
}
