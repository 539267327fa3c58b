package todos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"todo-board/internal/flash"
	appMiddleware "todo-board/internal/middleware"
)

// maxFormBytes ограничивает тело POST-формы.
const maxFormBytes = 1 << 20

// Handler — HTTP-слой доски.
//
// Здесь всё, что относится к HTTP: роуты, разбор форм, коды ответов,
// редиректы и flash-сообщения. Бизнес-логика — в Service и CommentService.
type Handler struct {
	todos    *Service
	comments *CommentService
	flash    flash.Store
	logger   *log.Logger
}

func NewHandler(todos *Service, comments *CommentService, flashStore flash.Store, logger *log.Logger) *Handler {
	return &Handler{todos: todos, comments: comments, flash: flashStore, logger: logger}
}

// Router собирает HTTP-роутер доски.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/todos", http.StatusFound)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(appMiddleware.HTMLHeaderMiddleware)

		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/new", h.createForm)

		r.Get("/{id}", h.detail)
		r.Post("/{id}", h.update)
		r.Get("/{id}/edit", h.editForm)
		r.Post("/{id}/delete", h.delete)
		r.Post("/{id}/toggle", h.toggle)

		// комментарии живут под постом, {id} здесь это id поста
		r.Post("/{id}/comments", h.createComment)
		r.Post("/{id}/comments/{commentId}", h.updateComment)
		r.Post("/{id}/comments/{commentId}/delete", h.deleteComment)
	})

	return r
}

// list обрабатывает GET /todos
//
// Фильтр completed важнее keyword, если переданы оба.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := parsePageRequest(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view := listView{
		Keyword: strings.TrimSpace(r.URL.Query().Get("keyword")),
		Field:   r.URL.Query().Get("field"),
	}

	var page Page[TodoResponse]
	if raw := r.URL.Query().Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "Invalid completed filter.")
			return
		}
		view.Completed = &completed
		page, err = h.todos.ListByCompletion(ctx, completed, p)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	} else {
		field, err := ParseSearchField(view.Field)
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		view.Field = string(field)
		page, err = h.todos.SearchBy(ctx, field, view.Keyword, p)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	view.Page = page
	view.Flash = h.popFlash(w, r)
	h.write(w, r, http.StatusOK, "list", view)
}

// detail обрабатывает GET /todos/{id}; каждый вызов засчитывает просмотр.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	todo, err := h.todos.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, "detail", detailView{Todo: todo, Flash: h.popFlash(w, r)})
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusOK, "form", formView{})
}

// editForm обрабатывает GET /todos/{id}/edit. Просмотр не засчитывается.
func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	todo, err := h.todos.Find(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, "form", formView{
		Form:   TodoRequest{Title: todo.Title, Content: todo.Content, Author: todo.Author},
		TodoID: id,
		IsEdit: true,
	})
}

// create обрабатывает POST /todos
//
// При ошибках валидации форма рисуется заново с сообщениями у полей.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseTodoForm(w, r)
	if !ok {
		return
	}

	created, err := h.todos.Create(r.Context(), req)
	if err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			h.write(w, r, http.StatusUnprocessableEntity, "form", formView{Form: req, Errors: fe})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, todoURL(created.ID), flash.Messages{flash.KeyMessage: "Post created."})
}

// update обрабатывает POST /todos/{id}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := h.parseTodoForm(w, r)
	if !ok {
		return
	}

	if _, err := h.todos.Update(r.Context(), id, req); err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			h.write(w, r, http.StatusUnprocessableEntity, "form", formView{Form: req, Errors: fe, TodoID: id, IsEdit: true})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, todoURL(id), flash.Messages{flash.KeyMessage: "Post updated."})
}

// delete обрабатывает POST /todos/{id}/delete
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, "/todos", flash.Messages{flash.KeyMessage: "Post deleted."})
}

// toggle обрабатывает POST /todos/{id}/toggle
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	updated, err := h.todos.ToggleCompletion(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := "open"
	if updated.Completed {
		status = "done"
	}
	h.redirect(w, r, todoURL(id), flash.Messages{flash.KeyMessage: "Status changed to " + status + "."})
}

func (h *Handler) parseTodoForm(w http.ResponseWriter, r *http.Request) (TodoRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form.")
		return TodoRequest{}, false
	}
	return TodoRequest{
		Title:   r.PostForm.Get("title"),
		Content: r.PostForm.Get("content"),
		Author:  r.PostForm.Get("author"),
	}, true
}

// pathID читает числовой параметр пути; при ошибке сам отвечает 400.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, http.StatusBadRequest, "Invalid ID.")
		return 0, false
	}
	return id, true
}

// parsePageRequest читает ?page=&size=. Отсутствующие значения — нули,
// их нормализует сервис.
func parsePageRequest(r *http.Request) (PageRequest, error) {
	var p PageRequest
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PageRequest{}, errors.New("Invalid page number.")
		}
		p.Page = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PageRequest{}, errors.New("Invalid page size.")
		}
		p.Size = n
	}
	return p, nil
}

func todoURL(id int64) string {
	return fmt.Sprintf("/todos/%d", id)
}

// redirect кладёт flash-сообщения и уводит на url (303, чтобы браузер сделал GET).
// Ошибка flash только логируется: действие уже выполнено.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string, msgs flash.Messages) {
	if err := h.flash.Set(w, r, msgs); err != nil {
		h.entry(r).WithError(err).Warn("flash set failed")
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) flash.Messages {
	msgs, err := h.flash.Pop(w, r)
	if err != nil {
		h.entry(r).WithError(err).Warn("flash pop failed")
		return nil
	}
	return msgs
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := render(w, status, page, data); err != nil {
		h.entry(r).WithError(err).WithField("page", page).Error("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.write(w, r, status, "error", errorView{Status: status, Message: msg})
}

// fail переводит ошибку сервиса в ответ.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.handleContextError(w, r, err) {
		return
	}
	if errors.Is(err, ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "The requested post or comment does not exist.")
		return
	}
	h.entry(r).WithError(err).Error("request failed")
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// handleContextError делает понятную обработку ошибок отмены/таймаута.
func (h *Handler) handleContextError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		// Клиент ушёл или сервер останавливается: отвечать уже некому.
		return true
	case errors.Is(err, context.DeadlineExceeded):
		h.renderError(w, r, http.StatusRequestTimeout, "The request took too long.")
		return true
	default:
		return false
	}
}

func (h *Handler) entry(r *http.Request) *log.Entry {
	e := h.logger.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path})
	if id := appMiddleware.GetRequestID(r.Context()); id != "" {
		e = e.WithField("request_id", id)
	}
	return e
}
