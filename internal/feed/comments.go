package feed

import (
	"strings"
	"sync"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

// CommentPage is one fetched page of a comment thread.
type CommentPage struct {
	Number int
	Items  []model.Comment
	Meta   model.PageMeta
}

type threadEntry struct {
	pages []CommentPage
	err   error
}

// Threads accumulates comment pages per (article, parent, limit) key. Same
// page ordering and error-isolation rules as Store, plus the optimistic
// prepend a comment submission needs.
type Threads struct {
	mu      sync.RWMutex
	entries map[string]*threadEntry
}

func NewThreads() *Threads {
	return &Threads{entries: make(map[string]*threadEntry)}
}

// Pages returns a copy of the page sequence under key.
func (t *Threads) Pages(key string) []CommentPage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	out := make([]CommentPage, len(e.pages))
	copy(out, e.pages)
	return out
}

// AppendPage adds a fetched page at the end of key's sequence.
func (t *Threads) AppendPage(key string, page CommentPage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &threadEntry{}
		t.entries[key] = e
	}
	e.pages = append(e.pages, page)
	e.err = nil
}

// Flatten concatenates all pages' comments under key in fetch order.
func (t *Threads) Flatten(key string) []model.Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	var out []model.Comment
	for _, p := range e.pages {
		out = append(out, p.Items...)
	}
	return out
}

// Prepend inserts a freshly created comment at the head of the first page
// and bumps the total when the metadata carries one. If nothing was fetched
// yet it synthesizes a single-page entry holding just the new comment, so
// the thread renders immediately without a refetch.
func (t *Threads) Prepend(key string, comment model.Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || len(e.pages) == 0 {
		total := 1
		t.entries[key] = &threadEntry{pages: []CommentPage{{
			Number: 1,
			Items:  []model.Comment{comment},
			Meta:   model.PageMeta{Total: &total},
		}}}
		return
	}

	first := e.pages[0]
	items := make([]model.Comment, 0, len(first.Items)+1)
	items = append(items, comment)
	items = append(items, first.Items...)
	first.Items = items
	if first.Meta.Total != nil {
		total := *first.Meta.Total + 1
		first.Meta.Total = &total
	}
	e.pages[0] = first
	e.err = nil
}

// Invalidate drops one thread key.
func (t *Threads) Invalidate(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// InvalidateArticle drops every thread key belonging to an article,
// whatever parent or page size it was fetched with.
func (t *Threads) InvalidateArticle(articleID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := commentsKeyPrefix(articleID)
	for key := range t.entries {
		if strings.HasPrefix(key, prefix) {
			delete(t.entries, key)
		}
	}
}

// SetError records a fetch failure for key without touching its pages.
func (t *Threads) SetError(key string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &threadEntry{}
		t.entries[key] = e
	}
	e.err = err
}

// Err returns the stored fetch failure for key, if any.
func (t *Threads) Err(key string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.entries[key]; ok {
		return e.err
	}
	return nil
}
