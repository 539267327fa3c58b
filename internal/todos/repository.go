package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo-board/internal/db"
)

// todoRepository — SQL-запросы к таблице todos.
//
// Репозиторий не открывает транзакций сам: ему передают Querier, которым
// обычно является *sql.Tx из db.WithTx.
type todoRepository struct {
	q db.Querier
}

func newTodoRepository(q db.Querier) todoRepository {
	return todoRepository{q: q}
}

const todoColumns = `t.id, t.title, t.content, t.completed, t.author, t.view_count, t.created_at, t.updated_at`

// Insert сохраняет новый пост и проставляет ему ID.
func (r todoRepository) Insert(ctx context.Context, t *Todo) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO todos (title, content, completed, author, view_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Content, t.Completed, t.Author, t.ViewCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	t.ID = id
	return nil
}

// FindByID возвращает (todo, ok, err); ok=false, если строки нет.
func (r todoRepository) FindByID(ctx context.Context, id int64) (*Todo, bool, error) {
	t := &Todo{}
	err := r.q.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos t WHERE t.id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Content, &t.Completed, &t.Author, &t.ViewCount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find todo %d: %w", id, err)
	}
	return t, true, nil
}

// Update записывает title/content. Автор и статус этим путём не меняются.
func (r todoRepository) Update(ctx context.Context, t *Todo) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE todos SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Content, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update todo %d: %w", t.ID, err)
	}
	return nil
}

// IncrementViewCount увеличивает счётчик одним атомарным UPDATE,
// поэтому параллельные просмотры не теряются.
func (r todoRepository) IncrementViewCount(ctx context.Context, id int64, now time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE todos SET view_count = view_count + 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("increment view count %d: %w", id, err)
	}
	return nil
}

func (r todoRepository) SetCompleted(ctx context.Context, t *Todo) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE todos SET completed = ?, updated_at = ? WHERE id = ?`, t.Completed, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("set completed %d: %w", t.ID, err)
	}
	return nil
}

func (r todoRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

// FindAll — все посты, новые сверху.
func (r todoRepository) FindAll(ctx context.Context, p PageRequest) (Page[Todo], error) {
	return r.findPage(ctx, "", nil, p)
}

func (r todoRepository) FindByCompleted(ctx context.Context, completed bool, p PageRequest) (Page[Todo], error) {
	return r.findPage(ctx, "t.completed = ?", []any{completed}, p)
}

func (r todoRepository) FindByTitleContaining(ctx context.Context, s string, p PageRequest) (Page[Todo], error) {
	return r.findPage(ctx, `t.title LIKE ? ESCAPE '\'`, []any{likePattern(s)}, p)
}

func (r todoRepository) FindByContentContaining(ctx context.Context, s string, p PageRequest) (Page[Todo], error) {
	return r.findPage(ctx, `t.content LIKE ? ESCAPE '\'`, []any{likePattern(s)}, p)
}

func (r todoRepository) FindByAuthorContaining(ctx context.Context, s string, p PageRequest) (Page[Todo], error) {
	return r.findPage(ctx, `t.author LIKE ? ESCAPE '\'`, []any{likePattern(s)}, p)
}

// SearchByTitleOrContent — подстрока в заголовке или тексте.
func (r todoRepository) SearchByTitleOrContent(ctx context.Context, keyword string, p PageRequest) (Page[Todo], error) {
	pattern := likePattern(keyword)
	return r.findPage(ctx, `(t.title LIKE ? ESCAPE '\' OR t.content LIKE ? ESCAPE '\')`, []any{pattern, pattern}, p)
}

// findPage выполняет COUNT и выборку страницы с одним и тем же условием.
// Порядок всегда created_at DESC, id DESC: id разбивает равные метки времени.
func (r todoRepository) findPage(ctx context.Context, where string, args []any, p PageRequest) (Page[Todo], error) {
	if where == "" {
		where = "1 = 1"
	}

	page := Page[Todo]{Number: p.Page, Size: p.Size}

	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos t WHERE `+where, args...).Scan(&page.TotalItems); err != nil {
		return Page[Todo]{}, fmt.Errorf("count todos: %w", err)
	}

	query := `
		SELECT ` + todoColumns + `,
			(SELECT COUNT(*) FROM comments c WHERE c.todo_id = t.id) AS comment_count
		FROM todos t
		WHERE ` + where + `
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.q.QueryContext(ctx, query, append(args, p.Size, p.offset())...)
	if err != nil {
		return Page[Todo]{}, fmt.Errorf("list todos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []Todo{}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.Completed, &t.Author, &t.ViewCount,
			&t.CreatedAt, &t.UpdatedAt, &t.commentCount); err != nil {
			return Page[Todo]{}, fmt.Errorf("scan todo: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return Page[Todo]{}, fmt.Errorf("list todos: %w", err)
	}
	page.Items = items
	return page, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern строит шаблон "содержит подстроку"; спецсимволы LIKE
// в ключевом слове экранируются и совпадают буквально.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
