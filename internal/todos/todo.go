package todos

import (
	"errors"
	"time"
)

// ErrNotFound — запрошенный пост или комментарий отсутствует.
// Сервисы оборачивают его с указанием сущности и id, проверять через errors.Is.
var ErrNotFound = errors.New("not found")

// Auditing — временные метки создания и изменения.
//
// Встраивается в Todo и Comment; проставляется сервисом на каждом пути
// создания/изменения. CreatedAt после вставки не меняется.
type Auditing struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Auditing) stampCreated(now time.Time) {
	a.CreatedAt = now
	a.UpdatedAt = now
}

func (a *Auditing) touch(now time.Time) {
	a.UpdatedAt = now
}

// Todo — пост на доске.
type Todo struct {
	ID        int64
	Title     string
	Content   string
	Completed bool
	Author    string
	ViewCount int64
	Auditing

	// Comments заполняется только при просмотре поста (отдельным запросом),
	// в списках остаётся nil.
	Comments []Comment

	// commentCount приходит из списочных запросов (подзапрос COUNT).
	commentCount int
}

func (t *Todo) toggleCompleted() {
	t.Completed = !t.Completed
}

// Comment — ответ к посту; всегда принадлежит ровно одному Todo.
type Comment struct {
	ID      int64
	TodoID  int64
	Content string
	Author  string
	Auditing
}

// TodoRequest — входные данные формы создания/редактирования поста.
type TodoRequest struct {
	Title   string `form:"title" validate:"notblank,max=200"`
	Content string `form:"content" validate:"notblank"`
	Author  string `form:"author" validate:"notblank,max=50"`
}

// CommentRequest — входные данные формы комментария.
type CommentRequest struct {
	Content string `form:"content" validate:"notblank,max=500"`
	Author  string `form:"author" validate:"notblank,max=50"`
}

// TodoResponse — то, что безопасно отдавать в шаблоны.
type TodoResponse struct {
	ID           int64
	Title        string
	Content      string
	Completed    bool
	Author       string
	ViewCount    int64
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func newTodoResponse(t *Todo) TodoResponse {
	count := t.commentCount
	if t.Comments != nil {
		count = len(t.Comments)
	}
	return TodoResponse{
		ID:           t.ID,
		Title:        t.Title,
		Content:      t.Content,
		Completed:    t.Completed,
		Author:       t.Author,
		ViewCount:    t.ViewCount,
		CommentCount: count,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type CommentResponse struct {
	ID        int64
	TodoID    int64
	Content   string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newCommentResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TodoID:    c.TodoID,
		Content:   c.Content,
		Author:    c.Author,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
