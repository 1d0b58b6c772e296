package main

import (
	"cmp"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"nbp-rates/internal/config"
	"nbp-rates/internal/db"
	"nbp-rates/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"

	usage = "usage: go run ./cmd/migrate [up|down|version] [steps]"
)

// Files are named NNNN_name.up.sql and NNNN_name.down.sql.
var migrationFileRe = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadConfigFunc = config.Load
	openPool       = db.InitPostgres
	exitFunc       = os.Exit
)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("migrate failed", "error", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New(usage)
	}
	command := args[0]
	steps := 1
	switch command {
	case cmdUp, cmdVersion:
	case cmdDown:
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid down steps: %q", args[1])
			}
			steps = n
		}
	default:
		return fmt.Errorf("unknown command %q. %s", command, usage)
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}

	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)

	if strings.TrimSpace(cfg.Storage.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}

	pool, err := openPool(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := ensureMigrationTable(ctx, pool); err != nil {
		return errors.Wrap(err, "ensure schema_migrations table")
	}

	switch command {
	case cmdUp:
		applied, err := applyUp(ctx, pool, migrations)
		if err != nil {
			return errors.Wrap(err, "apply migrations up")
		}
		slog.Info("migrations up complete", "applied", applied)
	case cmdDown:
		rolledBack, err := applyDown(ctx, pool, migrations, steps)
		if err != nil {
			return errors.Wrap(err, "apply migrations down")
		}
		slog.Info("migrations down complete", "rolled_back", rolledBack)
	case cmdVersion:
		version, name, err := currentVersion(ctx, pool)
		if err != nil {
			return errors.Wrap(err, "read current version")
		}
		if version == 0 {
			slog.Info("no migrations applied")
			return nil
		}
		slog.Info("current version", "version", version, "name", name)
	}
	return nil
}

func ensureMigrationTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*migration)

	for _, p := range paths {
		matches := migrationFileRe.FindStringSubmatch(p)
		if matches == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		name := matches[2]
		direction := matches[3]

		sqlBytes, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		m, ok := index[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			index[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, m.Name, name)
		}

		switch direction {
		case "up":
			if m.UpSQL != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			m.UpSQL = sqlText
		case "down":
			if m.DownSQL != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			m.DownSQL = sqlText
		default:
			return nil, fmt.Errorf("invalid direction in migration: %s", p)
		}
	}

	migrations := make([]migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

func loadAppliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int64]struct{}, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}

	applied := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

func applyUp(ctx context.Context, pool *pgxpool.Pool, migrations []migration) (int, error) {
	appliedSet, err := loadAppliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	appliedCount := 0
	for _, m := range migrations {
		if _, ok := appliedSet[m.Version]; ok {
			continue
		}

		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("version %d up failed: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return fmt.Errorf("record version %d failed: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return appliedCount, err
		}

		slog.Info("applied migration", "version", m.Version, "name", m.Name)
		appliedCount++
	}
	return appliedCount, nil
}

func applyDown(ctx context.Context, pool *pgxpool.Pool, migrations []migration, steps int) (int, error) {
	versions, err := latestAppliedVersions(ctx, pool, steps)
	if err != nil {
		return 0, err
	}

	plan, err := planDown(migrations, versions)
	if err != nil {
		return 0, err
	}

	rolledBack := 0
	for _, m := range plan {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.DownSQL); err != nil {
				return fmt.Errorf("version %d down failed: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
				return fmt.Errorf("delete version %d failed: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return rolledBack, err
		}

		slog.Info("rolled back migration", "version", m.Version, "name", m.Name)
		rolledBack++
	}
	return rolledBack, nil
}

func latestAppliedVersions(ctx context.Context, pool *pgxpool.Pool, steps int) ([]int64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be > 0")
	}

	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// planDown maps applied versions, newest first, to their migrations.
func planDown(migrations []migration, versions []int64) ([]migration, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	plan := make([]migration, 0, len(versions))
	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("cannot find migration source for applied version %d", version)
		}
		plan = append(plan, m)
	}
	return plan, nil
}

func currentVersion(ctx context.Context, pool *pgxpool.Pool) (int64, string, error) {
	var version int64
	var name string
	err := pool.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if err == nil {
		return version, name, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	return 0, "", err
}
