package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"todo-board/internal/db"
	"todo-board/internal/telemetry"
)

// Service — бизнес-логика постов.
//
// Каждый метод — одна транзакция: чтение в read-only, изменения в read-write.
// Блокировок в процессе нет, конкурентные запросы разводит сама база.
type Service struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
	logger *log.Logger
}

// Option настраивает Service и CommentService.
type Option func(*options)

type options struct {
	limits Limits
	now    func() time.Time
	logger *log.Logger
}

// WithLimits задаёт размер страницы по умолчанию и максимальный.
func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		limits: DefaultLimits,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewService(database *sql.DB, opts ...Option) *Service {
	o := buildOptions(opts)
	return &Service{db: database, limits: o.limits, now: o.now, logger: o.logger}
}

// SearchField — по какому полю искать подстроку.
type SearchField string

const (
	SearchTitleOrContent SearchField = ""
	SearchTitle          SearchField = "title"
	SearchContent        SearchField = "content"
	SearchAuthor         SearchField = "author"
)

// ParseSearchField разбирает query-параметр field.
func ParseSearchField(s string) (SearchField, error) {
	switch f := SearchField(strings.ToLower(strings.TrimSpace(s))); f {
	case SearchTitleOrContent, SearchTitle, SearchContent, SearchAuthor:
		return f, nil
	default:
		return "", FieldErrors{{Field: "field", Message: fmt.Sprintf("Unknown search field %q.", s)}}
	}
}

// ListAll — страница постов, новые сверху.
func (s *Service) ListAll(ctx context.Context, p PageRequest) (page Page[TodoResponse], err error) {
	ctx, span := startSpan(ctx, "todos.ListAll")
	defer func() { endSpan(span, err) }()

	p = p.Normalize(s.limits)
	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		found, err := newTodoRepository(q).FindAll(ctx, p)
		if err != nil {
			return err
		}
		page = mapPage(found, newTodoResponse)
		return nil
	})
	return page, err
}

// Search ищет keyword в заголовке или тексте. Пустой (или из пробелов)
// keyword ведёт себя как ListAll.
func (s *Service) Search(ctx context.Context, keyword string, p PageRequest) (Page[TodoResponse], error) {
	return s.SearchBy(ctx, SearchTitleOrContent, keyword, p)
}

// SearchBy ищет keyword в выбранном поле.
//
// Совпадение — подстрока без учёта регистра для ASCII-букв (LIKE в SQLite);
// символы % и _ в keyword совпадают буквально.
func (s *Service) SearchBy(ctx context.Context, field SearchField, keyword string, p PageRequest) (page Page[TodoResponse], err error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.ListAll(ctx, p)
	}

	ctx, span := startSpan(ctx, "todos.Search", attribute.String("search.field", string(field)))
	defer func() { endSpan(span, err) }()

	p = p.Normalize(s.limits)
	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		repo := newTodoRepository(q)
		var found Page[Todo]
		var err error
		switch field {
		case SearchTitleOrContent:
			found, err = repo.SearchByTitleOrContent(ctx, keyword, p)
		case SearchTitle:
			found, err = repo.FindByTitleContaining(ctx, keyword, p)
		case SearchContent:
			found, err = repo.FindByContentContaining(ctx, keyword, p)
		case SearchAuthor:
			found, err = repo.FindByAuthorContaining(ctx, keyword, p)
		default:
			_, err = ParseSearchField(string(field))
		}
		if err != nil {
			return err
		}
		page = mapPage(found, newTodoResponse)
		return nil
	})
	return page, err
}

// ListByCompletion — только выполненные или только невыполненные.
func (s *Service) ListByCompletion(ctx context.Context, completed bool, p PageRequest) (page Page[TodoResponse], err error) {
	ctx, span := startSpan(ctx, "todos.ListByCompletion", attribute.Bool("todo.completed", completed))
	defer func() { endSpan(span, err) }()

	p = p.Normalize(s.limits)
	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		found, err := newTodoRepository(q).FindByCompleted(ctx, completed, p)
		if err != nil {
			return err
		}
		page = mapPage(found, newTodoResponse)
		return nil
	})
	return page, err
}

// GetByID возвращает пост для страницы просмотра.
//
// Побочный эффект: каждый вызов увеличивает view_count ровно на 1 (без учёта
// того, кто смотрит). Комментарии подгружаются отдельным запросом.
func (s *Service) GetByID(ctx context.Context, id int64) (todo *Todo, err error) {
	ctx, span := startSpan(ctx, "todos.GetByID", attribute.Int64("todo_id", id))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newTodoRepository(q)
		t, ok, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(id)
		}

		now := s.now()
		if err := repo.IncrementViewCount(ctx, id, now); err != nil {
			return err
		}
		t.ViewCount++
		t.touch(now)

		comments, err := newCommentRepository(q).FindByTodoID(ctx, id)
		if err != nil {
			return err
		}
		t.Comments = comments
		todo = t
		return nil
	})
	return todo, err
}

// Find возвращает пост без побочных эффектов (форма редактирования).
func (s *Service) Find(ctx context.Context, id int64) (todo *Todo, err error) {
	ctx, span := startSpan(ctx, "todos.Find", attribute.Int64("todo_id", id))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, true, func(q db.Querier) error {
		t, ok, err := newTodoRepository(q).FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(id)
		}
		todo = t
		return nil
	})
	return todo, err
}

// Create сохраняет новый пост: не выполнен, ноль просмотров.
func (s *Service) Create(ctx context.Context, req TodoRequest) (resp TodoResponse, err error) {
	ctx, span := startSpan(ctx, "todos.Create")
	defer func() { endSpan(span, err) }()

	if fe := Validate(req); fe != nil {
		return TodoResponse{}, fe
	}

	t := &Todo{
		Title:   req.Title,
		Content: req.Content,
		Author:  req.Author,
	}
	t.stampCreated(s.now())

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		return newTodoRepository(q).Insert(ctx, t)
	})
	if err != nil {
		return TodoResponse{}, err
	}

	span.SetAttributes(attribute.Int64("todo_id", t.ID))
	s.logger.WithField("todo_id", t.ID).Debug("todo created")
	return newTodoResponse(t), nil
}

// Update меняет только заголовок и текст; автор и статус остаются прежними.
func (s *Service) Update(ctx context.Context, id int64, req TodoRequest) (resp TodoResponse, err error) {
	ctx, span := startSpan(ctx, "todos.Update", attribute.Int64("todo_id", id))
	defer func() { endSpan(span, err) }()

	if fe := Validate(req); fe != nil {
		return TodoResponse{}, fe
	}

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newTodoRepository(q)
		t, ok, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(id)
		}

		t.Title = req.Title
		t.Content = req.Content
		t.touch(s.now())
		if err := repo.Update(ctx, t); err != nil {
			return err
		}

		n, err := newCommentRepository(q).CountByTodoID(ctx, id)
		if err != nil {
			return err
		}
		t.commentCount = n
		resp = newTodoResponse(t)
		return nil
	})
	if err != nil {
		return TodoResponse{}, err
	}

	s.logger.WithField("todo_id", id).Debug("todo updated")
	return resp, nil
}

// Delete удаляет пост вместе со всеми комментариями.
//
// Комментарии удаляются явно в той же транзакции; ON DELETE CASCADE
// в схеме остаётся страховкой для прямых удалений в обход сервиса.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := startSpan(ctx, "todos.Delete", attribute.Int64("todo_id", id))
	defer func() { endSpan(span, err) }()

	var removed int64
	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newTodoRepository(q)
		_, ok, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(id)
		}

		removed, err = newCommentRepository(q).DeleteByTodoID(ctx, id)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{"todo_id": id, "comments_removed": removed}).Debug("todo deleted")
	return nil
}

// ToggleCompletion переключает флаг выполнения.
func (s *Service) ToggleCompletion(ctx context.Context, id int64) (resp TodoResponse, err error) {
	ctx, span := startSpan(ctx, "todos.ToggleCompletion", attribute.Int64("todo_id", id))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, false, func(q db.Querier) error {
		repo := newTodoRepository(q)
		t, ok, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return todoNotFound(id)
		}

		t.toggleCompleted()
		t.touch(s.now())
		if err := repo.SetCompleted(ctx, t); err != nil {
			return err
		}

		n, err := newCommentRepository(q).CountByTodoID(ctx, id)
		if err != nil {
			return err
		}
		t.commentCount = n
		resp = newTodoResponse(t)
		return nil
	})
	if err != nil {
		return TodoResponse{}, err
	}

	s.logger.WithFields(log.Fields{"todo_id": id, "completed": resp.Completed}).Debug("todo completion toggled")
	return resp, nil
}

func todoNotFound(id int64) error {
	return fmt.Errorf("todo %d: %w", id, ErrNotFound)
}

func commentNotFound(id int64) error {
	return fmt.Errorf("comment %d: %w", id, ErrNotFound)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan закрывает спан. "Не найдено" и ошибки валидации считаются обычным исходом
// запроса, ошибкой спана помечаем только остальное.
func endSpan(span trace.Span, err error) {
	var fe FieldErrors
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.As(err, &fe) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
