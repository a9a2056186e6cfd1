package feed

import (
	"sync"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

// Page is one fetched page of articles together with the metadata the
// upstream attached to it.
type Page struct {
	Number int
	Items  []model.Article
	Meta   model.PageMeta
}

type entry struct {
	pages []Page
	err   error
}

type memberEntry struct {
	members []model.Member
	err     error
}

// Store is the in-process article cache: ordered pages per key, plus a
// per-key error state so one listing's failure never bleeds into another.
// All mutation happens under one lock, so a patch sweep is atomic with
// respect to concurrent reads.
//
// Construct one per process and pass it down; nothing in this package holds
// a package-level instance.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	members map[string]*memberEntry
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		members: make(map[string]*memberEntry),
	}
}

// Pages returns a copy of the page slice for key, oldest fetch first.
func (s *Store) Pages(key string) []Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	out := make([]Page, len(e.pages))
	copy(out, e.pages)
	return out
}

// AppendPage adds a page at the end of key's sequence and clears any stored
// error for it.
func (s *Store) AppendPage(key string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.pages = append(e.pages, page)
	e.err = nil
}

// SetDetail stores a single article under a detail or slug key, replacing
// whatever was there. Details are held as a one-page entry so the patch
// sweep can treat every key uniformly.
func (s *Store) SetDetail(key string, article model.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{pages: []Page{{Number: 1, Items: []model.Article{article}}}}
}

// Detail returns the article under a detail or slug key.
func (s *Store) Detail(key string) (model.Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || len(e.pages) == 0 || len(e.pages[0].Items) == 0 {
		return model.Article{}, false
	}
	return e.pages[0].Items[0], true
}

// Flatten concatenates all pages' items under key in fetch order. No
// dedup; consumers that need it do it themselves.
func (s *Store) Flatten(key string) []model.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	var out []model.Article
	for _, p := range e.pages {
		out = append(out, p.Items...)
	}
	return out
}

// Invalidate drops all pages under key; the next read refetches from page 1.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// InvalidateCollections drops every key belonging to the given listing
// collections. This is the conservative fallback when a mutation response
// carries no usable identifier.
func (s *Store) InvalidateCollections(collections ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key := range s.entries {
		col := keyCollection(key)
		for _, c := range collections {
			if col == c {
				delete(s.entries, key)
				dropped++
				break
			}
		}
	}
	return dropped
}

// SetError records a fetch failure for key without touching its pages.
func (s *Store) SetError(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.err = err
}

// Err returns the stored fetch failure for key, if any.
func (s *Store) Err(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		return e.err
	}
	return nil
}

// Keys returns all currently cached keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// PatchArticles sweeps every cached page and rewrites matching items with
// apply. Matched items are replaced by a structural copy; untouched items
// keep their existing values. keyFilter limits the sweep to certain keys; a
// nil filter sweeps everything. Returns how many items were rewritten.
//
// The whole sweep runs under the write lock: no reader observes a feed where
// some keys are patched and others are not.
func (s *Store) PatchArticles(keyFilter func(string) bool, match func(model.Article) bool, apply func(*model.Article)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := 0
	for key, e := range s.entries {
		if keyFilter != nil && !keyFilter(key) {
			continue
		}
		for pi := range e.pages {
			var items []model.Article
			for ii := range e.pages[pi].Items {
				if !match(e.pages[pi].Items[ii]) {
					continue
				}
				if items == nil {
					// Clone before the first rewrite so slices handed out
					// earlier keep their pre-patch contents.
					items = make([]model.Article, len(e.pages[pi].Items))
					copy(items, e.pages[pi].Items)
				}
				patched := items[ii]
				apply(&patched)
				items[ii] = patched
				touched++
			}
			if items != nil {
				e.pages[pi].Items = items
			}
		}
	}
	return touched
}

// SetMembers stores a member listing under key.
func (s *Store) SetMembers(key string, members []model.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[key] = &memberEntry{members: members}
}

// Members returns the member listing under key.
func (s *Store) Members(key string) ([]model.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.members[key]
	if !ok {
		return nil, false
	}
	out := make([]model.Member, len(e.members))
	copy(out, e.members)
	return out, true
}

// InvalidateMembers drops a member key.
func (s *Store) InvalidateMembers(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, key)
}

// PatchMembers rewrites matching members across all member keys, same
// copy-on-write discipline as PatchArticles.
func (s *Store) PatchMembers(match func(model.Member) bool, apply func(*model.Member)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := 0
	for _, e := range s.members {
		var members []model.Member
		for i := range e.members {
			if !match(e.members[i]) {
				continue
			}
			if members == nil {
				members = make([]model.Member, len(e.members))
				copy(members, e.members)
			}
			patched := members[i]
			apply(&patched)
			members[i] = patched
			touched++
		}
		if members != nil {
			e.members = members
		}
	}
	return touched
}
