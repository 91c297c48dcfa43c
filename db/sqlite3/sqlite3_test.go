package sqlite3_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkpress/inkpress/auth"
	"github.com/inkpress/inkpress/contents"
	"github.com/inkpress/inkpress/db/sqlite3"
	"github.com/inkpress/inkpress/discuss"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	return db
}

func createTestUser(t *testing.T, db *sql.DB, username string) *auth.User {
	t.Helper()

	user := &auth.User{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		RegisteredAt: time.Now(),
	}

	require.NoError(t, sqlite3.NewUserRepository(db).Insert(context.Background(), user))

	return user
}

func createTestPost(t *testing.T, db *sql.DB, title string) *contents.Post {
	t.Helper()

	post := &contents.Post{
		Title:       title,
		Content:     "content of " + title,
		PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, sqlite3.NewPostRepository(db).Insert(context.Background(), post))

	return post
}

func createTestComment(t *testing.T, db *sql.DB, postID, authorID int64, content string) *discuss.Comment {
	t.Helper()

	comment := &discuss.Comment{
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	require.NoError(t, sqlite3.NewCommentRepository(db).Insert(context.Background(), comment))

	return comment
}
