package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-board/internal/db"
)

type commentRepository struct {
	q db.Querier
}

func newCommentRepository(q db.Querier) commentRepository {
	return commentRepository{q: q}
}

const commentColumns = `id, todo_id, content, author, created_at, updated_at`

func (r commentRepository) Insert(ctx context.Context, c *Comment) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO comments (todo_id, content, author, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.TodoID, c.Content, c.Author, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	c.ID = id
	return nil
}

func (r commentRepository) FindByID(ctx context.Context, id int64) (*Comment, bool, error) {
	c := &Comment{}
	err := r.q.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.TodoID, &c.Content, &c.Author, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find comment %d: %w", id, err)
	}
	return c, true, nil
}

// FindByTodoID — комментарии поста, старые сверху.
func (r commentRepository) FindByTodoID(ctx context.Context, todoID int64) ([]Comment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE todo_id = ?
		ORDER BY created_at ASC, id ASC
	`, todoID)
	if err != nil {
		return nil, fmt.Errorf("list comments of todo %d: %w", todoID, err)
	}
	defer func() { _ = rows.Close() }()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TodoID, &c.Content, &c.Author, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r commentRepository) CountByTodoID(ctx context.Context, todoID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE todo_id = ?`, todoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments of todo %d: %w", todoID, err)
	}
	return n, nil
}

func (r commentRepository) UpdateContent(ctx context.Context, c *Comment) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`, c.Content, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", c.ID, err)
	}
	return nil
}

func (r commentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

// DeleteByTodoID удаляет все комментарии поста и возвращает их число.
func (r commentRepository) DeleteByTodoID(ctx context.Context, todoID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM comments WHERE todo_id = ?`, todoID)
	if err != nil {
		return 0, fmt.Errorf("delete comments of todo %d: %w", todoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete comments of todo %d: %w", todoID, err)
	}
	return n, nil
}
