package driver

import (
	"database/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// NewSQLiteConn Returns a SQLite connection, used for local development and tests
func NewSQLiteConn(dsn string, cfg *DBConfig) (ITransactionalDB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers, a single connection also keeps ":memory:" databases alive
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLWrapper{db: conn, dialect: DialectSQLite, adapter: sqliteAdapter}, nil
}

func sqliteAdapter(query string) string {
	query = DollarPlaceholderPattern.ReplaceAllString(query, "?")
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}
