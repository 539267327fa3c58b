package todos

import "math"

// PageRequest — номер страницы (с нуля) и её размер.
type PageRequest struct {
	Page int
	Size int
}

// Limits — границы размера страницы из конфигурации.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// DefaultLimits совпадают с конфигурацией по умолчанию.
var DefaultLimits = Limits{DefaultSize: 10, MaxSize: 100}

// Normalize приводит запрос к допустимым значениям: отрицательная страница
// становится нулевой, неположительный размер — размером по умолчанию,
// слишком большой обрезается до MaxSize. Номер страницы ограничен так,
// чтобы смещение не переполнялось.
func (p PageRequest) Normalize(l Limits) PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = l.DefaultSize
	}
	if l.MaxSize > 0 && p.Size > l.MaxSize {
		p.Size = l.MaxSize
	}
	if p.Size > 0 && p.Page > math.MaxInt/p.Size {
		p.Page = math.MaxInt / p.Size
	}
	return p
}

func (p PageRequest) offset() int {
	return p.Page * p.Size
}

// Page — одна страница результатов плюс общее число элементов.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	TotalItems int
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.TotalItems + p.Size - 1) / p.Size
}

func (p Page[T]) HasPrev() bool { return p.Number > 0 }

func (p Page[T]) HasNext() bool { return p.Number+1 < p.TotalPages() }

func (p Page[T]) IsEmpty() bool { return len(p.Items) == 0 }

// mapPage переводит страницу сущностей в страницу ответов.
func mapPage[S, D any](p Page[S], fn func(*S) D) Page[D] {
	out := Page[D]{
		Items:      make([]D, 0, len(p.Items)),
		Number:     p.Number,
		Size:       p.Size,
		TotalItems: p.TotalItems,
	}
	for i := range p.Items {
		out.Items = append(out.Items, fn(&p.Items[i]))
	}
	return out
}
