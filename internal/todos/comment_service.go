package todos

import (
	"context"
	"database/sql"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"todo-board/internal/db"
)

// CommentService — операции над комментариями.
type CommentService struct {
	db     *sql.DB
	now    func() time.Time
	logger *log.Logger
}

func NewCommentService(database *sql.DB, opts ...Option) *CommentService {
	o := buildOptions(opts)
	return &CommentService{db: database, now: o.now, logger: o.logger}
}

// ListByTodo — комментарии поста в порядке создания.
func (s *CommentService) ListByTodo(ctx context.Context, todoID int64) (out []CommentResponse, err error) {
	ctx, span := startSpan(ctx, "comments.ListByTodo", attribute.Int64("todo_id", todoID))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		comments, err := newCommentRepository(q).FindByTodoID(ctx, todoID)
		if err != nil {
			return err
		}
		out = make([]CommentResponse, 0, len(comments))
		for i := range comments {
			out = append(out, newCommentResponse(&comments[i]))
		}
		return nil
	})
	return out, err
}

// Get возвращает один комментарий.
func (s *CommentService) Get(ctx context.Context, commentID int64) (resp CommentResponse, err error) {
	ctx, span := startSpan(ctx, "comments.Get", attribute.Int64("comment_id", commentID))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		c, ok, err := newCommentRepository(q).FindByID(ctx, commentID)
		if err != nil {
			return err
		}
		if !ok {
			return commentNotFound(commentID)
		}
		resp = newCommentResponse(c)
		return nil
	})
	return resp, err
}

// Create добавляет комментарий к существующему посту. Если поста нет,
// возвращается ErrNotFound и ничего не сохраняется.
func (s *CommentService) Create(ctx context.Context, todoID int64, req CommentRequest) (resp CommentResponse, err error) {
	ctx, span := startSpan(ctx, "comments.Create", attribute.Int64("todo_id", todoID))
	defer func() { endSpan(span, err) }()

	if fe := Validate(req); fe != nil {
		return CommentResponse{}, fe
	}

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		_, ok, err := newTodoRepository(q).FindByID(ctx, todoID)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(todoID)
		}

		c := &Comment{
			TodoID:  todoID,
			Content: req.Content,
			Author:  req.Author,
		}
		c.stampCreated(s.now())
		if err := newCommentRepository(q).Insert(ctx, c); err != nil {
			return err
		}
		resp = newCommentResponse(c)
		return nil
	})
	if err != nil {
		return CommentResponse{}, err
	}

	s.logger.WithFields(log.Fields{"todo_id": todoID, "comment_id": resp.ID}).Debug("comment created")
	return resp, nil
}

// Update меняет только текст комментария. Автор из запроса игнорируется
// и не проверяется.
func (s *CommentService) Update(ctx context.Context, commentID int64, req CommentRequest) (resp CommentResponse, err error) {
	ctx, span := startSpan(ctx, "comments.Update", attribute.Int64("comment_id", commentID))
	defer func() { endSpan(span, err) }()

	if fe := Validate(req).Only("content"); fe != nil {
		return CommentResponse{}, fe
	}

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newCommentRepository(q)
		c, ok, err := repo.FindByID(ctx, commentID)
		if err != nil {
			return err
		}
		if !ok {
			return commentNotFound(commentID)
		}

		c.Content = req.Content
		c.touch(s.now())
		if err := repo.UpdateContent(ctx, c); err != nil {
			return err
		}
		resp = newCommentResponse(c)
		return nil
	})
	if err != nil {
		return CommentResponse{}, err
	}

	s.logger.WithField("comment_id", commentID).Debug("comment updated")
	return resp, nil
}

// Delete удаляет комментарий; пост не затрагивается.
func (s *CommentService) Delete(ctx context.Context, commentID int64) (err error) {
	ctx, span := startSpan(ctx, "comments.Delete", attribute.Int64("comment_id", commentID))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newCommentRepository(q)
		_, ok, err := repo.FindByID(ctx, commentID)
		if err != nil {
			return err
		}
		if !ok {
			return commentNotFound(commentID)
		}
		return repo.Delete(ctx, commentID)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("comment_id", commentID).Debug("comment deleted")
	return nil
}
