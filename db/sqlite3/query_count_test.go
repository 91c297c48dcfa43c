package sqlite3_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/inkpress/inkpress/db/sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingConnector wraps the sqlite driver and counts every statement sent to
// the database, so tests can pin down how many round-trips an operation costs.
type countingConnector struct {
	dsn     string
	driver  driver.Driver
	queries *atomic.Int64
}

var _ driver.Connector = (*countingConnector)(nil)

func (c *countingConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	return &countingConn{Conn: conn, queries: c.queries}, nil
}

func (c *countingConnector) Driver() driver.Driver {
	return c.driver
}

type countingConn struct {
	driver.Conn

	queries *atomic.Int64
}

func (c *countingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	c.queries.Add(1)

	return qc.QueryContext(ctx, query, args)
}

func (c *countingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	c.queries.Add(1)

	return ec.ExecContext(ctx, query, args)
}

// PrepareContext covers drivers that take the prepared-statement fallback path.
func (c *countingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	c.queries.Add(1)

	if pc, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return pc.PrepareContext(ctx, query)
	}

	return c.Conn.Prepare(query)
}

func newCountingTestDB(t *testing.T, queries *atomic.Int64) *sql.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")

	base, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)

	drv := base.Driver()
	require.NoError(t, base.Close())

	db := sql.OpenDB(&countingConnector{dsn: dsn, driver: drv, queries: queries})
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	return db
}

func TestPostDetailQueryCountIndependentOfComments(t *testing.T) {
	t.Parallel()

	var queries atomic.Int64

	db := newCountingTestDB(t, &queries)
	ctx := context.Background()

	postRepo := sqlite3.NewPostRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, "Hi")

	detailQueries := func() int64 {
		queries.Store(0)

		_, err := postRepo.Find(ctx, post.ID)
		require.NoError(t, err)

		_, err = commentRepo.ListForPost(ctx, post.ID)
		require.NoError(t, err)

		return queries.Load()
	}

	withoutComments := detailQueries()

	for i := 1; i <= 3; i++ {
		createTestComment(t, db, post.ID, user.ID, fmt.Sprintf("comment %d", i))
	}

	withComments := detailQueries()

	// one query for the post, one joined query for all of its comments
	assert.Equal(t, int64(2), withoutComments)
	assert.Equal(t, withoutComments, withComments)
}
