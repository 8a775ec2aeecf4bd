package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLStore keeps templates in a SQLite database.
type SQLStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// OpenSQLStore opens (creating it if needed) the template database at dataSource.
// Use ":memory:" for a private in-memory database.
func OpenSQLStore(dataSource string, log *zap.SugaredLogger) (*SQLStore, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", dataSource)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" would see its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// migrate creates the templates table if it doesn't exist.
func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS templates (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL
	)`)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Put creates or replaces a template.
func (s *SQLStore) Put(ctx context.Context, name, body string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("empty template name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (name, body) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body`, name, body)
	if err != nil {
		return fmt.Errorf("put template %q: %w", name, err)
	}
	return nil
}

// Get returns the body of the named template, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, name string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE name = ?`, strings.TrimSpace(name)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get template %q: %w", name, err)
	}
	return body, nil
}

// Delete removes a template. Deleting a missing template returns ErrNotFound.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Names returns the names of all templates, sorted.
func (s *SQLStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan template name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Lookup returns the named template. Database errors are logged and reported as
// a missing template.
func (s *SQLStore) Lookup(name string) (string, bool) {
	body, err := s.Get(context.Background(), name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warnw("reading template", "template", name, "error", err)
		}
		return "", false
	}
	return body, true
}

// Import copies every template of a FileStore into the database.
func (s *SQLStore) Import(ctx context.Context, fs *FileStore) (int, error) {
	names, err := fs.Names()
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", fs.Dir(), err)
	}
	for i, name := range names {
		body, err := fs.Get(name)
		if err != nil {
			return i, fmt.Errorf("read template %q: %w", name, err)
		}
		if err := s.Put(ctx, name, body); err != nil {
			return i, err
		}
	}
	return len(names), nil
}
