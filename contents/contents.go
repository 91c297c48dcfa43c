package contents

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds post titles, in characters.
const MaxTitleLength = 60

type Service struct {
	postRepo PostRepository
}

func NewService(postRepo PostRepository) *Service {
	return &Service{
		postRepo: postRepo,
	}
}

type CreatePostRequest struct {
	Title       string
	Content     string
	PublishDate time.Time
}

// CreatePost stores a new post. Callers are the trusted administrative
// surface; readers never reach this.
func (svc *Service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	if utf8.RuneCountInString(req.Title) > MaxTitleLength {
		return nil, &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength),
		}
	}

	if req.Content == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	post := &Post{
		Title:       req.Title,
		Content:     req.Content,
		PublishDate: dateOnly(req.PublishDate),
	}

	err := svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// dateOnly drops the time-of-day; publish dates are calendar dates.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (svc *Service) GetPost(ctx context.Context, postID int64) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// RecentPosts returns the most recently created posts, newest first.
func (svc *Service) RecentPosts(ctx context.Context, limit int64) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, &ListPostsParams{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}

	return posts, nil
}

func (svc *Service) ListPosts(ctx context.Context, params ListPostsParams) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

// DeletePost removes the post and, via the store's cascade rule, every
// comment referencing it, as one atomic unit.
func (svc *Service) DeletePost(ctx context.Context, postID int64) error {
	err := svc.postRepo.Delete(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return nil
}
