// Reading rows from the original MySQL database.

package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNoTable is returned by a Source when a table does not exist.
var ErrNoTable = errors.New("table does not exist")

// Source yields the rows of a legacy table with normalised column names.
type Source interface {
	Rows(ctx context.Context, table string) ([]Row, error)
}

// DSN builds a MySQL DSN for the importer. Times are parsed into time.Time.
func DSN(addr, user, password, dbName string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = dbName
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// SQLSource reads from a database/sql connection.
type SQLSource struct {
	db *sql.DB
}

// OpenSQL connects to MySQL and checks the connection.
func OpenSQL(ctx context.Context, dsn string) (*SQLSource, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	return &SQLSource{db: db}, nil
}

// Close closes the connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Rows implements Source.
func (s *SQLSource) Rows(ctx context.Context, table string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM `"+table+"`") //nolint:gosec // G202: table names are constants
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1146 {
			return nil, fmt.Errorf("%s: %w", table, ErrNoTable)
		}
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = values[i]
		}
		out = append(out, NormalizeRow(m))
	}
	return out, rows.Err()
}
