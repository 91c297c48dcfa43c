package discuss

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	commentRepo CommentRepository
}

func NewService(commentRepo CommentRepository) *Service {
	return &Service{
		commentRepo: commentRepo,
	}
}

type CreateCommentRequest struct {
	PostID   int64
	AuthorID int64
	Content  string
}

// CreateComment stores a comment on a post. A post or author id that does not
// resolve surfaces as the owning package's not-found error, translated from
// the store's foreign key check.
func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	if req.Content == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	comment := &Comment{
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	err := svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) GetComment(ctx context.Context, commentID int64) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a post's comments in creation order, each already
// joined with its author's username.
func (svc *Service) ListComments(ctx context.Context, postID int64) ([]*CommentWithAuthor, error) {
	comments, err := svc.commentRepo.ListForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// CountComments returns comment counts keyed by post id, from a single store
// query however many posts are asked about. Posts without comments are absent
// from the map.
func (svc *Service) CountComments(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	counts, err := svc.commentRepo.CountForPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	return counts, nil
}
