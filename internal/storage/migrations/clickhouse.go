package migrations

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	chstore "rugal-dominion/internal/storage/clickhouse"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouse creates the audit database if needed and applies the ClickHouse schema.
// It returns a connection bound to that database along with the files it ran.
func RunClickhouse(ctx context.Context, dsn string, opts ...Option) (*chstore.Conn, []string, error) {
	r := newRunner(opts)

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	migs, err := Load(Clickhouse)
	if err != nil {
		return nil, nil, err
	}
	// Reject bad files before touching the server.
	plans := make([][]string, len(migs))
	for i, m := range migs {
		if err := checkSplittable(m.SQL); err != nil {
			return nil, nil, fmt.Errorf("migration %s: %w", m.Name, err)
		}
		plans[i] = splitStatements(m.SQL)
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		admin.Close()
		return nil, nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := admin.Close(); err != nil {
		return nil, nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	applied := make([]string, 0, len(migs))
	for i, m := range migs {
		// The driver runs one statement per Exec.
		for _, stmt := range plans[i] {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		applied = append(applied, m.Name)
		r.logger.Printf("clickhouse migration %s applied (%d statements)", m.Name, len(plans[i]))
	}
	return conn, applied, nil
}

// splitStatements drops blank and "--" comment lines, then splits on ';'.
// Semicolons inside quotes are not supported; checkSplittable guards that.
func splitStatements(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// checkSplittable fails when a quoted literal or a block comment holds a ';'.
func checkSplittable(sql string) error {
	inQuote := false
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; {
		case c == '\'':
			if inQuote && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inQuote = !inQuote
		case !inQuote && c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return fmt.Errorf("unterminated block comment")
			}
			if strings.Contains(sql[i+2:i+2+end], ";") {
				return fmt.Errorf("semicolon inside block comment")
			}
			i += end + 3
		case inQuote && c == ';':
			return fmt.Errorf("semicolon inside string literal")
		}
	}
	if inQuote {
		return fmt.Errorf("unterminated string literal")
	}
	return nil
}

// databaseFromDSN extracts the target database, which must be a plain identifier
// because it is interpolated into CREATE DATABASE.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	if !identPattern.MatchString(db) {
		return "", fmt.Errorf("clickhouse database %q is not a plain identifier", db)
	}
	return db, nil
}
