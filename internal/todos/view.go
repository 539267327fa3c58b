package todos

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"todo-board/internal/flash"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// pages — по шаблону на страницу, каждый вместе с общим layout.
var pages = map[string]*template.Template{
	"list":   parsePage("list.html"),
	"detail": parsePage("detail.html"),
	"form":   parsePage("form.html"),
	"error":  parsePage("error.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// render сначала рисует страницу в буфер: если шаблон упадёт, клиент
// получит 500, а не половину страницы с кодом 200.
func render(w http.ResponseWriter, status int, page string, data any) error {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type listView struct {
	Page      Page[TodoResponse]
	Keyword   string
	Field     string
	Completed *bool
	Flash     flash.Messages
}

// PageURL строит ссылку на соседнюю страницу с теми же фильтрами.
func (v listView) PageURL(n int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	q.Set("size", strconv.Itoa(v.Page.Size))
	if v.Completed != nil {
		q.Set("completed", strconv.FormatBool(*v.Completed))
	} else if v.Keyword != "" {
		q.Set("keyword", v.Keyword)
		if v.Field != "" {
			q.Set("field", v.Field)
		}
	}
	return "/todos?" + q.Encode()
}

type detailView struct {
	Todo  *Todo
	Flash flash.Messages
}

type formView struct {
	Form   TodoRequest
	Errors FieldErrors
	TodoID int64
	IsEdit bool
	Flash  flash.Messages
}

type errorView struct {
	Status  int
	Message string
	Flash   flash.Messages
}

func (v errorView) StatusText() string {
	return http.StatusText(v.Status)
}
