package discuss

import (
	"context"
	"fmt"
	"time"
)

type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// CommentWithAuthor carries the author's username alongside the comment so
// listing a post's discussion does not need a lookup per comment.
type CommentWithAuthor struct {
	Comment

	AuthorUsername string
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, commentID int64) (comment *Comment, err error)
	ListForPost(ctx context.Context, postID int64) (comments []*CommentWithAuthor, err error)
	CountForPosts(ctx context.Context, postIDs []int64) (counts map[int64]int, err error)
}

type CommentNotFoundError struct {
	ID int64
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %d not found", err.ID)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}
