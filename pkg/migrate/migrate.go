package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where migrations live in the source tree. Passing it to Run
// uses the copy compiled into the binary so deployed services need no checkout.
const DefaultDir = "pkg/migrate/migrations"

const dialect = "postgres"

//go:embed migrations/*.sql
var embedded embed.FS

// source resolves dir to the filesystem goose should read and the path inside it.
func source(dir string) (fs.FS, string, error) {
	if dir == "" {
		return nil, "", fmt.Errorf("dir is required")
	}
	if dir == DefaultDir {
		return embedded, "migrations", nil
	}
	return os.DirFS(dir), ".", nil
}

func prepare(db *sql.DB, dir string) (string, func(), error) {
	if db == nil {
		return "", nil, fmt.Errorf("db is required")
	}
	fsys, path, err := source(dir)
	if err != nil {
		return "", nil, err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", nil, fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	return path, func() { goose.SetBaseFS(nil) }, nil
}

// Run executes a goose command (up, down, status, redo, ...) against db.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	path, reset, err := prepare(db, dir)
	if err != nil {
		return err
	}
	defer reset()

	if err := goose.RunContext(ctx, command, db, path, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	path, reset, err := prepare(db, dir)
	if err != nil {
		return err
	}
	defer reset()

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, path, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, path, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
