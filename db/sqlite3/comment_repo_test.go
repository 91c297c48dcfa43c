package sqlite3_test

import (
	"context"
	"testing"
	"time"

	"github.com/inkpress/inkpress/auth"
	"github.com/inkpress/inkpress/contents"
	"github.com/inkpress/inkpress/db/sqlite3"
	"github.com/inkpress/inkpress/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepositoryInsertThenFind(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, "a post")

	comment := createTestComment(t, db, post.ID, user.ID, "Nice!")
	assert.NotZero(t, comment.ID)

	found, err := repo.Find(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nice!", found.Content)
	assert.Equal(t, post.ID, found.PostID)
	assert.Equal(t, user.ID, found.AuthorID)
}

func TestCommentRepositoryInsertUnknownPost(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")

	err := repo.Insert(ctx, &discuss.Comment{
		PostID:    999,
		AuthorID:  user.ID,
		Content:   "orphan",
		CreatedAt: time.Now(),
	})

	var postNotFoundErr *contents.PostNotFoundError
	require.ErrorAs(t, err, &postNotFoundErr)
	assert.Equal(t, int64(999), postNotFoundErr.ID)
}

func TestCommentRepositoryInsertUnknownAuthor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	post := createTestPost(t, db, "a post")

	err := repo.Insert(ctx, &discuss.Comment{
		PostID:    post.ID,
		AuthorID:  999,
		Content:   "orphan",
		CreatedAt: time.Now(),
	})

	var userNotFoundErr *auth.UserNotFoundError
	require.ErrorAs(t, err, &userNotFoundErr)
	assert.Equal(t, int64(999), userNotFoundErr.ID)
}

func TestCommentRepositoryListForPostJoinsAuthors(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, "a post")
	other := createTestPost(t, db, "another post")

	createTestComment(t, db, post.ID, alice.ID, "first")
	createTestComment(t, db, post.ID, bob.ID, "second")
	createTestComment(t, db, other.ID, alice.ID, "elsewhere")

	comments, err := repo.ListForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	// creation order, each row carrying its author's username
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "alice", comments[0].AuthorUsername)
	assert.Equal(t, "second", comments[1].Content)
	assert.Equal(t, "bob", comments[1].AuthorUsername)
}

func TestCommentRepositoryCountForPosts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, "a post")
	other := createTestPost(t, db, "another post")
	silent := createTestPost(t, db, "no comments here")

	createTestComment(t, db, post.ID, user.ID, "one")
	createTestComment(t, db, post.ID, user.ID, "two")
	createTestComment(t, db, other.ID, user.ID, "elsewhere")

	counts, err := repo.CountForPosts(ctx, []int64{post.ID, other.ID, silent.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[post.ID])
	assert.Equal(t, 1, counts[other.ID])

	// commentless posts have no row, the zero map value stands in
	assert.Equal(t, 0, counts[silent.ID])

	counts, err = repo.CountForPosts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestDeletePostCascadesToComments(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	postRepo := sqlite3.NewPostRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, "doomed")
	kept := createTestPost(t, db, "kept")

	doomed1 := createTestComment(t, db, post.ID, user.ID, "one")
	doomed2 := createTestComment(t, db, post.ID, user.ID, "two")
	surviving := createTestComment(t, db, kept.ID, user.ID, "still here")

	require.NoError(t, postRepo.Delete(ctx, post.ID))

	var commentNotFoundErr *discuss.CommentNotFoundError

	_, err := commentRepo.Find(ctx, doomed1.ID)
	require.ErrorAs(t, err, &commentNotFoundErr)

	_, err = commentRepo.Find(ctx, doomed2.ID)
	require.ErrorAs(t, err, &commentNotFoundErr)

	found, err := commentRepo.Find(ctx, surviving.ID)
	require.NoError(t, err)
	assert.Equal(t, "still here", found.Content)
}

func TestDeleteUserCascadesToComments(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	userRepo := sqlite3.NewUserRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, "a post")

	aliceComment := createTestComment(t, db, post.ID, alice.ID, "by alice")
	bobComment := createTestComment(t, db, post.ID, bob.ID, "by bob")

	require.NoError(t, userRepo.Delete(ctx, alice.ID))

	var commentNotFoundErr *discuss.CommentNotFoundError

	_, err := commentRepo.Find(ctx, aliceComment.ID)
	require.ErrorAs(t, err, &commentNotFoundErr)

	found, err := commentRepo.Find(ctx, bobComment.ID)
	require.NoError(t, err)
	assert.Equal(t, "by bob", found.Content)

	// the post itself is untouched
	_, err = sqlite3.NewPostRepository(db).Find(ctx, post.ID)
	require.NoError(t, err)
}
