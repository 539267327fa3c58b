package todos

import (
	"net/http/httptest"
	"strings"
	"testing"

	"todo-board/internal/flash"
)

func TestLayoutRendersOnlyKnownFlashKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	view := errorView{
		Status:  404,
		Message: "gone",
		Flash:   flash.Messages{flash.KeyMessage: "Post deleted.", "error": "stray"},
	}

	if err := render(rec, 404, "error", view); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `<div class="flash">Post deleted.</div>`) {
		t.Error("expected the message flash in the layout")
	}
	if strings.Contains(body, "stray") {
		t.Error("layout must not render keys handlers never set")
	}
}

func TestDetailRendersCommentError(t *testing.T) {
	rec := httptest.NewRecorder()
	view := detailView{
		Todo:  &Todo{ID: 3, Title: "t", Content: "c", Author: "a"},
		Flash: flash.Messages{flash.KeyCommentError: "Content is required."},
	}

	if err := render(rec, 200, "detail", view); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if !strings.Contains(rec.Body.String(), `<div class="flash error">Content is required.</div>`) {
		t.Error("expected comment error next to the comment form")
	}
}
