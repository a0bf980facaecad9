package query

import (
	"encoding/json"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rangePrinter = message.NewPrinter(language.English)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// MarshalJSON includes the boundary state so the dashboard can disable
// its prev and next controls without recomputing them.
func (p Pagination) MarshalJSON() ([]byte, error) {
	type alias Pagination
	return json.Marshal(struct {
		alias
		HasPrev bool `json:"hasPrev"`
		HasNext bool `json:"hasNext"`
	}{alias(p), p.HasPrev(), p.HasNext()})
}

// HasPrev reports whether a previous page exists. The control is hidden at
// the lower boundary.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists. A page at or beyond the last
// page disables the control, so no further request is issued.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// From is the ordinal of the first row on the current page, zero when the
// result set is empty.
func (p Pagination) From() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.Limit + 1
}

// To is the ordinal of the last row on the current page.
func (p Pagination) To() int {
	to := p.Page * p.Limit
	if to > p.Total {
		to = p.Total
	}
	return to
}

// RangeLabel renders the "Showing X to Y of Z" caption for the table footer.
func (p Pagination) RangeLabel() string {
	return rangePrinter.Sprintf("Showing %d to %d of %d", p.From(), p.To(), p.Total)
}
