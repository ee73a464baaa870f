package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RunMigrations executes the SQL files in <dir>/postgres against the pool.
// Every migration is written to be re-runnable.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	files, err := migrationFiles(dir, "postgres")
	if err != nil {
		return err
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		logger.Info("applying migration", zap.String("file", filepath.Base(file)))
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(file), err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(files)))
	return nil
}

// RunSQLMigrations executes the SQL files in <dir>/<dialect> statement by
// statement, since the mysql driver rejects multi-statement Exec calls.
func RunSQLMigrations(ctx context.Context, db *sql.DB, dir, dialect string, logger *zap.Logger) error {
	files, err := migrationFiles(dir, dialect)
	if err != nil {
		return err
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		logger.Info("applying migration", zap.String("file", filepath.Base(file)), zap.String("dialect", dialect))
		for _, stmt := range splitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", filepath.Base(file), err)
			}
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(files)), zap.String("dialect", dialect))
	return nil
}

func migrationFiles(dir, dialect string) ([]string, error) {
	root := filepath.Join(dir, dialect)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(root, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements splits on semicolons ending a line and drops "--"
// comment lines.
func splitStatements(content string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
