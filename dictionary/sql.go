package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// SQLSource reads (word, freq) rows from a table, ordered by id. The
// frequency column is read as text so that bad rows are reported the same way
// as bad file lines, with the row number standing in for the line number.
type SQLSource struct {
	db    *sql.DB
	table string
}

// NewSQLSource returns a Source over table in db.
func NewSQLSource(db *sql.DB, table string) (*SQLSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid dictionary table name %q", table)
	}
	return &SQLSource{db: db, table: table}, nil
}

func (s *SQLSource) Name() string {
	return "sql:" + s.table
}

func (s *SQLSource) Open(ctx context.Context) (LineReader, error) {
	query := fmt.Sprintf("SELECT word, freq::text FROM %s ORDER BY id", s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	return &rowReader{rows: rows}, nil
}

type rowReader struct {
	rows *sql.Rows
	line string
	err  error
}

func (r *rowReader) Scan() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	var word, freq sql.NullString
	if err := r.rows.Scan(&word, &freq); err != nil {
		r.err = fmt.Errorf("scanning row: %w", err)
		return false
	}
	r.line = word.String + " " + freq.String
	return true
}

func (r *rowReader) Text() string {
	return r.line
}

func (r *rowReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *rowReader) Close() error {
	return r.rows.Close()
}
