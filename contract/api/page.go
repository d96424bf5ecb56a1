package api

// Direction is a sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// SortInfo describes one sort key of a page.
type SortInfo struct {
	Property   string    `json:"property"`
	Direction  Direction `json:"direction"`
	IgnoreCase bool      `json:"ignoreCase"`
}

// PageInfo describes a page of a larger result set. Page numbers start at 0.
type PageInfo struct {
	Page             int        `json:"page"`
	Size             int        `json:"size"`
	TotalElements    int64      `json:"totalElements"`
	TotalPages       int        `json:"totalPages"`
	NumberOfElements int        `json:"numberOfElements"`
	First            bool       `json:"first"`
	Last             bool       `json:"last"`
	HasNext          bool       `json:"hasNext"`
	HasPrevious      bool       `json:"hasPrevious"`
	Empty            bool       `json:"empty"`
	Sort             []SortInfo `json:"sort,omitempty"`
}

// NewPageInfo derives the page flags from the page number, page size, total
// element count and the number of elements on this page. A size of 0 means unpaged.
func NewPageInfo(page, size int, total int64, numberOfElements int, sort ...SortInfo) PageInfo {
	totalPages := 1
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}

	hasNext := page+1 < totalPages

	pi := PageInfo{
		Page:             page,
		Size:             size,
		TotalElements:    total,
		TotalPages:       totalPages,
		NumberOfElements: numberOfElements,
		First:            page == 0,
		Last:             !hasNext,
		HasNext:          hasNext,
		HasPrevious:      page > 0,
		Empty:            numberOfElements == 0,
	}

	if len(sort) > 0 {
		pi.Sort = append([]SortInfo(nil), sort...)
	}

	return pi
}

// PageResponse is one page of content with its PageInfo.
type PageResponse[T any] struct {
	Content  []T      `json:"content"`
	PageInfo PageInfo `json:"pageInfo"`
}

// PageOf pairs content with an existing PageInfo.
func PageOf[T any](content []T, info PageInfo) PageResponse[T] {
	if content == nil {
		content = []T{}
	}

	return PageResponse[T]{Content: content, PageInfo: info}
}

// Paginate builds a page from its content and paging coordinates.
func Paginate[T any](content []T, page, size int, total int64, sort ...SortInfo) PageResponse[T] {
	return PageOf(content, NewPageInfo(page, size, total, len(content), sort...))
}

// MapPage converts the content of p with fn, keeping its PageInfo.
func MapPage[T, R any](p PageResponse[T], fn func(T) R) PageResponse[R] {
	out := make([]R, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}

	return PageResponse[R]{Content: out, PageInfo: p.PageInfo}
}
