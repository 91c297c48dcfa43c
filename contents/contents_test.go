package contents_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkpress/inkpress/contents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostRepo struct {
	mu    sync.Mutex
	seq   int64
	posts map[int64]*contents.Post

	lastListParams *contents.ListPostsParams
}

var _ contents.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*contents.Post)}
}

func (repo *fakePostRepo) Insert(_ context.Context, post *contents.Post) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.seq++
	post.ID = repo.seq

	clone := *post
	repo.posts[post.ID] = &clone

	return nil
}

func (repo *fakePostRepo) Find(_ context.Context, postID int64) (*contents.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	post, ok := repo.posts[postID]
	if !ok {
		return nil, &contents.PostNotFoundError{ID: postID}
	}

	clone := *post

	return &clone, nil
}

func (repo *fakePostRepo) List(_ context.Context, params *contents.ListPostsParams) ([]*contents.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.lastListParams = params

	posts := make([]*contents.Post, 0, len(repo.posts))
	for id := repo.seq; id >= 1; id-- {
		if post, ok := repo.posts[id]; ok {
			clone := *post
			posts = append(posts, &clone)
		}
	}

	if params.Offset > 0 {
		if params.Offset >= uint64(len(posts)) {
			return []*contents.Post{}, nil
		}

		posts = posts[params.Offset:]
	}

	if params.Limit > 0 && int64(len(posts)) > params.Limit {
		posts = posts[:params.Limit]
	}

	return posts, nil
}

func (repo *fakePostRepo) Delete(_ context.Context, postID int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.posts[postID]; !ok {
		return &contents.PostNotFoundError{ID: postID}
	}

	delete(repo.posts, postID)

	return nil
}

func TestCreatePostValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		title   string
		content string
	}{
		{
			name:    "empty title",
			title:   "",
			content: "some content",
		},
		{
			name:    "title too long",
			title:   strings.Repeat("x", contents.MaxTitleLength+1),
			content: "some content",
		},
		{
			name:    "empty content",
			title:   "Hello",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := contents.NewService(newFakePostRepo())

			_, err := svc.CreatePost(context.Background(), contents.CreatePostRequest{
				Title:       tt.title,
				Content:     tt.content,
				PublishDate: time.Now(),
			})

			var validationErr *contents.ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCreatePostTitleAtLengthBound(t *testing.T) {
	t.Parallel()

	svc := contents.NewService(newFakePostRepo())

	_, err := svc.CreatePost(context.Background(), contents.CreatePostRequest{
		Title:       strings.Repeat("x", contents.MaxTitleLength),
		Content:     "some content",
		PublishDate: time.Now(),
	})
	require.NoError(t, err)
}

func TestCreatePostThenGetReturnsIdenticalValues(t *testing.T) {
	t.Parallel()

	svc := contents.NewService(newFakePostRepo())
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, contents.CreatePostRequest{
		Title:       "Hi",
		Content:     "World",
		PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	found, err := svc.GetPost(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Title, found.Title)
	assert.Equal(t, created.Content, found.Content)
	assert.True(t, created.PublishDate.Equal(found.PublishDate))
}

func TestCreatePostNormalizesPublishDate(t *testing.T) {
	t.Parallel()

	svc := contents.NewService(newFakePostRepo())

	post, err := svc.CreatePost(context.Background(), contents.CreatePostRequest{
		Title:       "Hi",
		Content:     "World",
		PublishDate: time.Date(2024, 1, 1, 15, 42, 7, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, post.PublishDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRecentPostsPassesLimit(t *testing.T) {
	t.Parallel()

	repo := newFakePostRepo()
	svc := contents.NewService(repo)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			Title:       "Post",
			Content:     "Content",
			PublishDate: time.Now(),
		})
		require.NoError(t, err)
	}

	posts, err := svc.RecentPosts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, posts, 5)

	// newest first
	assert.Equal(t, int64(7), posts[0].ID)
	assert.Equal(t, int64(3), posts[4].ID)
}

func TestListPostsPagination(t *testing.T) {
	t.Parallel()

	svc := contents.NewService(newFakePostRepo())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			Title:       "Post",
			Content:     "Content",
			PublishDate: time.Now(),
		})
		require.NoError(t, err)
	}

	posts, err := svc.ListPosts(ctx, contents.ListPostsParams{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(4), posts[0].ID)
	assert.Equal(t, int64(3), posts[1].ID)

	all, err := svc.ListPosts(ctx, contents.ListPostsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestDeletePostNotFound(t *testing.T) {
	t.Parallel()

	svc := contents.NewService(newFakePostRepo())

	err := svc.DeletePost(context.Background(), 42)

	var notFoundErr *contents.PostNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}
