package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/inkpress/inkpress/auth"
	"github.com/inkpress/inkpress/contents"
	"github.com/inkpress/inkpress/discuss"
)

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID        = "id"
	commentFieldPostID    = "post_id"
	commentFieldAuthorID  = "author_id"
	commentFieldContent   = "content"
	commentFieldCreatedAt = "created_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldPostID,
		commentFieldAuthorID,
		commentFieldContent,
		commentFieldCreatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.Content,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(commentFieldPostID, commentFieldAuthorID, commentFieldContent, commentFieldCreatedAt).
		Values(comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return repo.resolveCommentReferences(ctx, comment)
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	comment.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

// resolveCommentReferences decides which reference caused a foreign key
// rejection; sqlite's error does not name the failing constraint.
func (repo *CommentRepository) resolveCommentReferences(ctx context.Context, comment *discuss.Comment) error {
	var exists int

	q := sq.Select("COUNT(1)").
		From(tablePosts).
		Where(sq.Eq{postFieldID: comment.PostID}).
		RunWith(repo.db)

	err := q.QueryRowContext(ctx).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check post reference: %w", err)
	}

	if exists == 0 {
		return &contents.PostNotFoundError{ID: comment.PostID}
	}

	return &auth.UserNotFoundError{ID: comment.AuthorID}
}

func (repo *CommentRepository) Find(ctx context.Context, commentID int64) (*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: commentID})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	comment, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &discuss.CommentNotFoundError{ID: commentID}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	return comment, nil
}

// ListForPost fetches a post's comments joined with their authors in one
// query, so rendering a discussion costs the same number of round-trips no
// matter how many comments it has.
func (repo *CommentRepository) ListForPost(ctx context.Context, postID int64) ([]*discuss.CommentWithAuthor, error) {
	q := sq.Select(
		"c."+commentFieldID,
		"c."+commentFieldPostID,
		"c."+commentFieldAuthorID,
		"c."+commentFieldContent,
		"c."+commentFieldCreatedAt,
		"u."+userFieldUsername,
	).
		From(tableComments + " AS c").
		Join(tableUsers + " AS u ON u." + userFieldID + " = c." + commentFieldAuthorID).
		Where(sq.Eq{"c." + commentFieldPostID: postID}).
		OrderBy("c." + commentFieldID + " ASC")

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comments := make([]*discuss.CommentWithAuthor, 0)

	for rows.Next() {
		var comment discuss.CommentWithAuthor

		err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
			&comment.AuthorUsername,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}

		comments = append(comments, &comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return comments, nil
}

// CountForPosts counts comments for any number of posts in one grouped query.
// Posts with no comments have no row and so no map entry.
func (repo *CommentRepository) CountForPosts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(postIDs))

	if len(postIDs) == 0 {
		return counts, nil
	}

	q := sq.Select(commentFieldPostID, "COUNT(1)").
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postIDs}).
		GroupBy(commentFieldPostID)

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			postID int64
			count  int
		)

		err := rows.Scan(&postID, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}

		counts[postID] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return counts, nil
}
