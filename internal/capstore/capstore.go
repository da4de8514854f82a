// Package capstore is a pluggable backend for the `storage` capability,
// letting a host run a space against a real database while iterating
// instead of the Err("unmocked_call") result internal/eval falls back to
// outside a test's with_responses block. Compile output never depends on this
// package: storage is a capability a PEPL program requests, mediated by
// whatever host embeds it, never a compiler concern.
package capstore

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pepl/internal/eval"
	"pepl/internal/value"
)

// Store is a `storage` capability host backed by a SQL key/value table,
// one row per key, value stored as the string argument passed to
// storage.set, unchanged. The driver is selected by a DSN scheme
// prefix: `sqlite://` (the pure-Go default), `postgres://`, `mysql://`,
// `sqlserver://`.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	table string
}

// Open parses dsn's scheme to pick a driver, opens the connection, and
// ensures the key/value table exists. table defaults to "pepl_storage"
// when empty, letting several spaces share one database under distinct
// table names.
func Open(dsn, table string) (*Store, error) {
	if table == "" {
		table = "pepl_storage"
	}
	driver, rest, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, rest)
	if err != nil {
		return nil, fmt.Errorf("capstore: opening %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("capstore: pinging %s: %w", driver, err)
	}
	s := &Store{db: db, table: table}
	if err := s.ensureTable(driver); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func splitDSN(dsn string) (driver, rest string, err error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", "", fmt.Errorf("capstore: dsn %q has no scheme (expected sqlite://, postgres://, mysql://, or sqlserver://)", dsn)
	}
	switch scheme {
	case "sqlite", "sqlite3":
		return "sqlite", rest, nil
	case "postgres", "postgresql":
		return "postgres", "postgres://" + rest, nil
	case "mysql":
		return "mysql", rest, nil
	case "sqlserver", "mssql":
		return "sqlserver", "sqlserver://" + rest, nil
	default:
		return "", "", fmt.Errorf("capstore: unsupported dsn scheme %q", scheme)
	}
}

func (s *Store) ensureTable(driver string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (k TEXT PRIMARY KEY, v TEXT NOT NULL)`, s.table)
	_, err := s.db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("capstore: creating table: %w", err)
	}
	return nil
}

// Close releases the underlying *sql.DB.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v string
	err := s.db.QueryRow(fmt.Sprintf("SELECT v FROM %s WHERE k = ?", s.table), key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) set(key, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(fmt.Sprintf(
		"INSERT INTO %s (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v", s.table,
	), key, v)
	return err
}

func (s *Store) remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE k = ?", s.table), key)
	return err
}

func (s *Store) listKeys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(fmt.Sprintf("SELECT k FROM %s ORDER BY k", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Call implements eval.CapabilityHost for the storage module only; any
// other module falls through to "unmocked_call" the same way a space
// with no host at all behaves, so a space that requests several
// capabilities can still run with just a Store wired in for storage.
func (s *Store) Call(module, fn string, args []value.Value) value.Value {
	if module != "storage" {
		return value.ErrResult(value.Str("unmocked_call"))
	}
	switch fn {
	case "get":
		key, _ := args[0].(value.Str)
		v, ok, err := s.get(string(key))
		if err != nil {
			return value.ErrResult(value.Str(err.Error()))
		}
		if !ok {
			return value.ErrResult(value.Str("not_found"))
		}
		return value.OkResult(value.Str(v))
	case "set":
		key, _ := args[0].(value.Str)
		v, _ := args[1].(value.Str)
		if err := s.set(string(key), string(v)); err != nil {
			return value.ErrResult(value.Str(err.Error()))
		}
		return value.OkResult(value.Bool(true))
	case "remove":
		key, _ := args[0].(value.Str)
		if err := s.remove(string(key)); err != nil {
			return value.ErrResult(value.Str(err.Error()))
		}
		return value.OkResult(value.Bool(true))
	case "list_keys":
		keys, err := s.listKeys()
		if err != nil {
			return value.ErrResult(value.Str(err.Error()))
		}
		elems := make([]value.Value, len(keys))
		for i, k := range keys {
			elems[i] = value.Str(k)
		}
		return value.OkResult(value.NewList(elems))
	default:
		return value.ErrResult(value.Str("unmocked_call"))
	}
}

var _ eval.CapabilityHost = (*Store)(nil)
