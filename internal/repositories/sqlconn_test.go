package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type statement struct {
	sql  string
	args []any
}

// queryResult is the canned answer for queries whose SQL contains match.
type queryResult struct {
	match   string
	columns []string
	rows    [][]driver.Value
}

// sqlScript records what a repository sends to the database and answers
// from canned results. It stands in for postgres underneath the real gorm
// dialector, so the SQL and the transaction boundaries are the ones
// production issues.
type sqlScript struct {
	mu sync.Mutex

	queries      []queryResult
	failExec     string
	rowsAffected int64

	statements []statement
	commits    int
	rollbacks  int
}

func newScriptedDB(t *testing.T, script *sqlScript) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:             sql.OpenDB(scriptConnector{script}),
		WithoutReturning: true,
	}), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open scripted db: %v", err)
	}
	return db
}

func (s *sqlScript) record(query string, args []driver.NamedValue) {
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	s.statements = append(s.statements, statement{sql: query, args: values})
}

// find returns the first recorded statement containing fragment.
func (s *sqlScript) find(fragment string) (statement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statements {
		if strings.Contains(st.sql, fragment) {
			return st, true
		}
	}
	return statement{}, false
}

type scriptConnector struct{ script *sqlScript }

func (c scriptConnector) Connect(context.Context) (driver.Conn, error) {
	return &scriptConn{script: c.script}, nil
}

func (c scriptConnector) Driver() driver.Driver { return scriptDriver{} }

type scriptDriver struct{}

func (scriptDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through the connector")
}

type scriptConn struct{ script *sqlScript }

func (c *scriptConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements are not scripted")
}

func (c *scriptConn) Close() error { return nil }

func (c *scriptConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *scriptConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return scriptTx{script: c.script}, nil
}

// CheckNamedValue keeps arguments as the repository passed them.
func (c *scriptConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *scriptConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s := c.script
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(query, args)
	if s.failExec != "" && strings.Contains(query, s.failExec) {
		return nil, errors.New("connection reset by peer")
	}
	return driver.RowsAffected(s.rowsAffected), nil
}

func (c *scriptConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s := c.script
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(query, args)
	for _, q := range s.queries {
		if strings.Contains(query, q.match) {
			return &scriptRows{columns: q.columns, rows: q.rows}, nil
		}
	}
	return &scriptRows{}, nil
}

type scriptTx struct{ script *sqlScript }

func (t scriptTx) Commit() error {
	t.script.mu.Lock()
	defer t.script.mu.Unlock()
	t.script.commits++
	return nil
}

func (t scriptTx) Rollback() error {
	t.script.mu.Lock()
	defer t.script.mu.Unlock()
	t.script.rollbacks++
	return nil
}

type scriptRows struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *scriptRows) Columns() []string { return r.columns }

func (r *scriptRows) Close() error { return nil }

func (r *scriptRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
