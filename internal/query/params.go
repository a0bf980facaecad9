// Package query implements the generic paginated, filtered resource query
// layer shared by every dashboard listing: canonical filter parameters,
// cache keys, pagination metadata and request debouncing.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is applied when no page size is requested.
	DefaultLimit = 10
	// MaxLimit caps the page size accepted from the dashboard.
	MaxLimit = 100
	// AllSentinel is the dropdown value meaning "no filtering".
	AllSentinel = "all"
)

// Params is the filter object for one resource listing. Empty strings and
// the "all" sentinel mean the filter is inactive and must be omitted from
// upstream requests rather than sent as empty values.
type Params struct {
	Page         int
	Limit        int
	Search       string
	Status       string
	Availability string
	StoreID      string
	StoreIDs     []string
	DateFrom     string
	DateTo       string
}

// FromQuery parses listing parameters from a request query string.
func FromQuery(values url.Values) Params {
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	p := Params{
		Page:         page,
		Limit:        limit,
		Search:       values.Get("search"),
		Status:       values.Get("status"),
		Availability: values.Get("availability"),
		StoreID:      values.Get("storeId"),
		DateFrom:     values.Get("dateFrom"),
		DateTo:       values.Get("dateTo"),
	}
	if raw := values.Get("storeIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				p.StoreIDs = append(p.StoreIDs, id)
			}
		}
	}
	return p.Normalize()
}

// Normalize clamps page and limit and collapses sentinel filter values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Status = normalizeChoice(p.Status)
	p.Availability = normalizeChoice(p.Availability)
	p.StoreID = strings.TrimSpace(p.StoreID)
	p.DateFrom = strings.TrimSpace(p.DateFrom)
	p.DateTo = strings.TrimSpace(p.DateTo)

	if len(p.StoreIDs) > 0 {
		ids := make([]string, 0, len(p.StoreIDs))
		for _, id := range p.StoreIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		p.StoreIDs = ids
	}
	return p
}

func normalizeChoice(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == AllSentinel {
		return ""
	}
	return v
}

// Encode renders the active parameters as url.Values. Inactive filters are
// omitted entirely so the upstream API does not over-filter on empty values.
func (p Params) Encode() url.Values {
	p = p.Normalize()
	values := url.Values{}
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("limit", strconv.Itoa(p.Limit))
	if p.Search != "" {
		values.Set("search", p.Search)
	}
	if p.Status != "" {
		values.Set("status", p.Status)
	}
	if p.Availability != "" {
		values.Set("availability", p.Availability)
	}
	if p.StoreID != "" {
		values.Set("storeId", p.StoreID)
	}
	if len(p.StoreIDs) > 0 {
		values.Set("storeIds", strings.Join(p.StoreIDs, ","))
	}
	if p.DateFrom != "" {
		values.Set("dateFrom", p.DateFrom)
	}
	if p.DateTo != "" {
		values.Set("dateTo", p.DateTo)
	}
	return values
}

// Key derives the canonical cache key for a resource and parameter tuple.
// Identical tuples always address the same entry.
func Key(resource string, p Params) string {
	return resource + "?" + p.Encode().Encode()
}

// filterKey is the canonical form of just the filter fields, ignoring
// page and limit.
func (p Params) filterKey() string {
	parts := []string{
		p.Search,
		p.Status,
		p.Availability,
		p.StoreID,
		strings.Join(p.StoreIDs, ","),
		p.DateFrom,
		p.DateTo,
	}
	return strings.Join(parts, "\x1f")
}

// WithFilters merges incoming parameters onto the previous tuple. Changing
// any filter value or the page size resets pagination to page one; the
// reset policy lives here at the call site, not in the cache.
func (p Params) WithFilters(next Params) Params {
	prev := p.Normalize()
	next = next.Normalize()
	if prev.filterKey() != next.filterKey() || prev.Limit != next.Limit {
		next.Page = 1
	}
	return next
}

// Reset returns the all-empty sentinel state on page one, keeping the
// current page size.
func (p Params) Reset() Params {
	return Params{Page: 1, Limit: p.Normalize().Limit}
}

// HasFilters reports whether any filter is active.
func (p Params) HasFilters() bool {
	return p.Normalize().filterKey() != Params{}.Normalize().filterKey()
}

// ParamStore is the per-user store that remembers the last-used listing
// tuple between visits. *shared.Session satisfies it.
type ParamStore interface {
	Get(key string) string
	Set(key, value string)
}

// Remember merges the incoming tuple onto the one stored for the resource
// and stores the result for the next visit, so returning to a listing
// restores its filters and a changed filter lands on page one. When reset
// is set the stored filters are cleared instead, keeping the page size.
func Remember(store ParamStore, resource string, incoming Params, reset bool) Params {
	if store == nil {
		return incoming.Normalize()
	}
	key := "filters:" + resource
	if reset {
		incoming = incoming.Reset()
	} else if raw := store.Get(key); raw != "" {
		if values, err := url.ParseQuery(raw); err == nil {
			incoming = FromQuery(values).WithFilters(incoming)
		}
	}
	incoming = incoming.Normalize()
	store.Set(key, incoming.Encode().Encode())
	return incoming
}
