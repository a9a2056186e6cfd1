package model

// PageMeta is the pagination block of an upstream list response. Every field
// is optional because the endpoints disagree on which ones they ship; the
// feed layer resolves the next page from whatever is present.
type PageMeta struct {
	CurrentPage *int  `json:"currentPage,omitempty"`
	LastPage    *int  `json:"lastPage,omitempty"`
	Total       *int  `json:"total,omitempty"`
	PerPage     *int  `json:"perPage,omitempty"`
	HasNext     *bool `json:"hasNext,omitempty"`
}

// MapPageMeta extracts pagination fields from a meta or pagination object.
func MapPageMeta(raw Raw) PageMeta {
	var m PageMeta
	if v, ok := raw.Int("current_page", "currentPage", "page"); ok {
		m.CurrentPage = intPtr(v)
	}
	if v, ok := raw.Int("last_page", "lastPage", "total_pages"); ok {
		m.LastPage = intPtr(v)
	}
	if v, ok := raw.Int("total", "total_count"); ok {
		m.Total = intPtr(v)
	}
	if v, ok := raw.Int("per_page", "perPage", "limit"); ok {
		m.PerPage = intPtr(v)
	}
	if v, ok := raw.Bool("has_next", "hasNext", "has_more"); ok {
		m.HasNext = boolPtr(v)
	}
	if m.HasNext == nil {
		// Cursor-style responses signal continuation through the next page
		// link instead of a flag.
		if link, ok := raw.String("next_page_url", "next"); ok && link != "" {
			m.HasNext = boolPtr(true)
		}
	}
	return m
}
