package todos

import (
	"errors"
	"net/http"
	"strings"

	"todo-board/internal/flash"
)

// createComment обрабатывает POST /todos/{id}/comments
//
// Комментарий живёт на странице поста, поэтому и при ошибке валидации
// уводим обратно на пост с сообщением в flash.
func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	todoID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := h.parseCommentForm(w, r)
	if !ok {
		return
	}

	if _, err := h.comments.Create(r.Context(), todoID, req); err != nil {
		if h.commentFormError(w, r, todoID, err) {
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, todoURL(todoID), flash.Messages{flash.KeyMessage: "Comment added."})
}

// updateComment обрабатывает POST /todos/{id}/comments/{commentId}
func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	todoID, commentID, ok := h.commentPath(w, r)
	if !ok {
		return
	}
	req, ok := h.parseCommentForm(w, r)
	if !ok {
		return
	}

	_, err := h.comments.Update(r.Context(), commentID, req)
	if err != nil {
		if h.commentFormError(w, r, todoID, err) {
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, todoURL(todoID), flash.Messages{flash.KeyMessage: "Comment updated."})
}

// deleteComment обрабатывает POST /todos/{id}/comments/{commentId}/delete
func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	todoID, commentID, ok := h.commentPath(w, r)
	if !ok {
		return
	}

	if err := h.comments.Delete(r.Context(), commentID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, todoURL(todoID), flash.Messages{flash.KeyMessage: "Comment deleted."})
}

// commentPath читает id поста и комментария и проверяет, что комментарий
// принадлежит этому посту. Чужой комментарий выглядит как несуществующий.
func (h *Handler) commentPath(w http.ResponseWriter, r *http.Request) (todoID, commentID int64, ok bool) {
	if todoID, ok = h.pathID(w, r, "id"); !ok {
		return 0, 0, false
	}
	if commentID, ok = h.pathID(w, r, "commentId"); !ok {
		return 0, 0, false
	}

	c, err := h.comments.Get(r.Context(), commentID)
	if err != nil {
		h.fail(w, r, err)
		return 0, 0, false
	}
	if c.TodoID != todoID {
		h.fail(w, r, commentNotFound(commentID))
		return 0, 0, false
	}
	return todoID, commentID, true
}

func (h *Handler) parseCommentForm(w http.ResponseWriter, r *http.Request) (CommentRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form.")
		return CommentRequest{}, false
	}
	return CommentRequest{
		Content: r.PostForm.Get("content"),
		Author:  r.PostForm.Get("author"),
	}, true
}

// commentFormError отправляет ошибки валидации комментария на страницу поста.
func (h *Handler) commentFormError(w http.ResponseWriter, r *http.Request, todoID int64, err error) bool {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return false
	}
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Message)
	}
	h.redirect(w, r, todoURL(todoID), flash.Messages{flash.KeyCommentError: strings.Join(msgs, " ")})
	return true
}
