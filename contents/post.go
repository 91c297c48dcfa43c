package contents

import (
	"context"
	"fmt"
	"time"
)

type Post struct {
	ID          int64
	Title       string
	Content     string
	PublishDate time.Time
}

type ListPostsParams struct {
	// Offset and Limit page through the descending-id order. A Limit of zero
	// or less returns everything from Offset on.
	Offset uint64
	Limit  int64
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID int64) (post *Post, err error)
	List(ctx context.Context, params *ListPostsParams) (posts []*Post, err error)
	Delete(ctx context.Context, postID int64) (err error)
}

type PostNotFoundError struct {
	ID int64
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %d not found", err.ID)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}
