package activity

import (
	"sort"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultRecent   = 5
)

// Filter narrows the log. Empty fields impose no constraint; set fields are
// AND-combined. Unknown Action/EntityType values match nothing.
type Filter struct {
	// Search is a case-insensitive substring match on EntityName or AdminUser.
	Search     string     `form:"search"`
	Action     Action     `form:"action"`
	EntityType EntityType `form:"entity_type"`
}

func (f Filter) normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Matches reports whether e passes every set filter.
func (f Filter) Matches(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.EntityName), term) &&
			!strings.Contains(strings.ToLower(e.AdminUser), term) {
			return false
		}
	}
	return true
}

// Page is one page of filtered log entries, enough to render
// "showing From-To of TotalFiltered".
type Page struct {
	Entries       []Entry `json:"entries"`
	TotalFiltered int     `json:"totalFiltered"`
	Page          int     `json:"page"`
	PageSize      int     `json:"pageSize"`
	TotalPages    int     `json:"totalPages"`
	From          int     `json:"from"`
	To            int     `json:"to"`
}

func normalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func totalPages(total, size int) int {
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// clampPage keeps page inside [1, max(1, ceil(total/size))].
func clampPage(page, total, size int) int {
	if page < 1 {
		return 1
	}
	if last := totalPages(total, size); page > last {
		return last
	}
	return page
}

func newPage(entries []Entry, total, page, size int) Page {
	p := Page{
		Entries:       entries,
		TotalFiltered: total,
		Page:          page,
		PageSize:      size,
		TotalPages:    totalPages(total, size),
	}
	if p.Entries == nil {
		p.Entries = []Entry{}
	}
	if len(entries) > 0 {
		p.From = (page-1)*size + 1
		p.To = p.From + len(entries) - 1
	}
	return p
}

// sortNewestFirst orders by Timestamp DESC, then Seq ASC.
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Seq < b.Seq
	})
}

// filterSorted returns the entries matching f, newest first.
// The input slice is not modified.
func filterSorted(all []Entry, f Filter) []Entry {
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

func window(entries []Entry, offset, limit int) []Entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []Entry{}
	}
	end := offset + limit
	if limit <= 0 || end > len(entries) {
		end = len(entries)
	}
	out := make([]Entry, end-offset)
	copy(out, entries[offset:end])
	return out
}
