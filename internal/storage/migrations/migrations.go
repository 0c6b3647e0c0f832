// Package migrations applies the embedded schema for the leaderboard and audit stores.
package migrations

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sort"
	"strings"
)

// Engine names a migration set. It doubles as the directory inside the embedded FS.
type Engine string

const (
	Postgres   Engine = "postgres"
	Clickhouse Engine = "clickhouse"
)

//go:embed postgres/*.sql clickhouse/*.sql
var sqlFS embed.FS

// Option configures a migration run.
type Option func(*runner)

type runner struct {
	logger *log.Logger
}

// WithLogger reports each applied file to l.
func WithLogger(l *log.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

func newRunner(opts []Option) *runner {
	r := &runner{logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Migration is one embedded SQL file.
type Migration struct {
	Name string
	SQL  string
}

// Load returns the non-empty migrations for engine in lexical file order.
func Load(engine Engine) ([]Migration, error) {
	return load(sqlFS, engine)
}

func load(fsys fs.FS, engine Engine) ([]Migration, error) {
	dir := string(engine)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", engine, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Name: name, SQL: string(data)})
	}
	return out, nil
}
