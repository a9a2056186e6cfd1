package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/khanhnotech/congdongacf-gateway/internal/config"
	"github.com/khanhnotech/congdongacf-gateway/internal/metrics"
	"github.com/khanhnotech/congdongacf-gateway/internal/model"
	"github.com/khanhnotech/congdongacf-gateway/internal/remote"
	"github.com/khanhnotech/congdongacf-gateway/internal/shadow"
	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

// Upstream is the slice of the remote client the feed service consumes.
type Upstream interface {
	ListArticles(ctx context.Context, token string, q remote.ListQuery) (remote.ArticlePage, error)
	GetArticle(ctx context.Context, token, idOrSlug string) (model.Article, error)
	ToggleLike(ctx context.Context, token string, articleID int64) (remote.LikeResult, error)
	ListComments(ctx context.Context, articleID int64, parentID *int64, page, limit int) (remote.CommentPage, error)
	CreateComment(ctx context.Context, token string, articleID int64, content string, parentID *int64) (model.Comment, error)
	ShareArticle(ctx context.Context, token, slug string) (remote.ShareResult, error)
	ToggleFollow(ctx context.Context, token string, memberID int64) (remote.FollowResult, error)
	ListTopMembers(ctx context.Context) ([]model.Member, error)
	GetProfile(ctx context.Context, token string, memberID int64) (model.Member, error)
	ListTopics(ctx context.Context) ([]model.Topic, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// ErrUnknownCollection rejects feed reads against a collection name outside
// the three listing collections.
var ErrUnknownCollection = errors.New("unknown feed collection")

const snapshotTTL = 5 * time.Minute

// FeedView is a flattened listing handed to the transport layer.
type FeedView struct {
	Key      string          `json:"key"`
	Items    []model.Article `json:"items"`
	NextPage *int            `json:"nextPage,omitempty"`
	Total    *int            `json:"total,omitempty"`
}

// CommentView is a flattened comment thread.
type CommentView struct {
	Key      string          `json:"key"`
	Items    []model.Comment `json:"items"`
	NextPage *int            `json:"nextPage,omitempty"`
	Total    *int            `json:"total,omitempty"`
}

// Service ties the remote client, the caches and the patch coordinator
// together. Page fetches for one key are serialized so pages land in issue
// order; the three-tier resolver needs the previous page's metadata before
// the next fetch goes out.
type Service struct {
	upstream Upstream
	store    *Store
	threads  *Threads
	shadow   *shadow.Store
	patches  *Coordinator
	snap     kv.Store
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	pageSize     int
	commentLimit int
	hydrateLimit int

	flight singleflight.Group

	lockMu   sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewService(upstream Upstream, store *Store, threads *Threads, shadowStore *shadow.Store, patches *Coordinator, snap kv.Store, cfg config.FeedConfig, logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	return &Service{
		upstream:     upstream,
		store:        store,
		threads:      threads,
		shadow:       shadowStore,
		patches:      patches,
		snap:         snap,
		logger:       logger,
		metrics:      m,
		pageSize:     cfg.PageSize,
		commentLimit: cfg.CommentLimit,
		hydrateLimit: cfg.HydrateLimit,
		keyLocks:     make(map[string]*sync.Mutex),
	}
}

// effectiveLimit clamps a caller-supplied page size; zero or negative
// values fall back to the configured default.
func (s *Service) effectiveLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return s.pageSize
	}
	return limit
}

func (s *Service) keyLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.keyLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.keyLocks[key] = mu
	}
	return mu
}

// Feed returns the flattened listing for a collection, fetching the first
// page on a cold key. Filters re-key the cache; switching a topic filter
// never mutates the previous filter's entry.
func (s *Service) Feed(ctx context.Context, token, userID, collection string, limit int, filters map[string]string) (FeedView, error) {
	if keyCollection(collection) != collection || collection == "" {
		return FeedView{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	limit = s.effectiveLimit(limit)
	key := ListKey(collection, limit, filters)

	mu := s.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	if len(s.store.Pages(key)) == 0 {
		if err := s.fetchNextLocked(ctx, token, key, collection, limit, filters); err != nil {
			return FeedView{}, err
		}
	} else if s.metrics != nil {
		s.metrics.RecordCacheHit(ctx, collection)
	}
	return s.view(ctx, key, userID), nil
}

// LoadMore fetches the next page for a key if the resolver says one exists,
// then returns the updated view. Exhausted keys return the current view
// unchanged.
func (s *Service) LoadMore(ctx context.Context, token, userID, collection string, limit int, filters map[string]string) (FeedView, error) {
	if keyCollection(collection) != collection || collection == "" {
		return FeedView{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	limit = s.effectiveLimit(limit)
	key := ListKey(collection, limit, filters)

	mu := s.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.fetchNextLocked(ctx, token, key, collection, limit, filters); err != nil {
		return FeedView{}, err
	}
	return s.view(ctx, key, userID), nil
}

// Refresh drops a key and refetches page 1.
func (s *Service) Refresh(ctx context.Context, token, userID, collection string, limit int, filters map[string]string) (FeedView, error) {
	if keyCollection(collection) != collection || collection == "" {
		return FeedView{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	limit = s.effectiveLimit(limit)
	key := ListKey(collection, limit, filters)

	mu := s.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	s.store.Invalidate(key)
	if err := s.fetchNextLocked(ctx, token, key, collection, limit, filters); err != nil {
		return FeedView{}, err
	}
	return s.view(ctx, key, userID), nil
}

// fetchNextLocked fetches the next page for key, or nothing when the
// resolver reports exhaustion. Caller holds the key lock.
func (s *Service) fetchNextLocked(ctx context.Context, token, key, collection string, limit int, filters map[string]string) error {
	pages := s.store.Pages(key)
	next := 1
	if len(pages) > 0 {
		last := pages[len(pages)-1]
		n, ok := NextPage(last.Meta, len(pages), len(last.Items), limit)
		if !ok {
			return nil
		}
		next = n
	}

	if s.metrics != nil {
		s.metrics.RecordCacheMiss(ctx, collection)
	}

	q := remote.ListQuery{Page: next, Limit: limit}
	switch collection {
	case CollectionTrend:
		q.Sort = "trend"
	case CollectionNew:
		q.Sort = "new"
	}
	if topic, ok := filters["topic"]; ok && topic != "" {
		if id, err := strconv.ParseInt(topic, 10, 64); err == nil {
			q.TopicID = &id
		}
	}
	if search, ok := filters["q"]; ok {
		q.Search = search
	}

	fetched, err := s.upstream.ListArticles(ctx, token, q)
	if err != nil {
		s.store.SetError(key, err)
		return err
	}

	s.hydrateLikeCounts(ctx, token, fetched.Items)
	s.store.AppendPage(key, Page{Number: next, Items: fetched.Items, Meta: fetched.Meta})
	return nil
}

// hydrateLikeCounts issues one detail fetch per article missing a like
// count, up to the configured cap. Hydration fails soft: an error leaves
// the count unknown and the listing intact. Concurrent hydrations of the
// same article collapse into one upstream call.
func (s *Service) hydrateLikeCounts(ctx context.Context, token string, items []model.Article) {
	if s.hydrateLimit == 0 {
		return
	}
	issued := 0
	for i := range items {
		if items[i].LikeCount != nil {
			continue
		}
		id, ok := items[i].CanonicalID()
		if !ok {
			continue
		}
		if issued >= s.hydrateLimit {
			return
		}
		issued++

		idStr := strconv.FormatInt(id, 10)
		v, err, _ := s.flight.Do("hydrate:"+idStr, func() (any, error) {
			detail, err := s.upstream.GetArticle(ctx, token, idStr)
			if err != nil {
				return nil, err
			}
			return detail.LikeCount, nil
		})
		if err != nil {
			s.logger.Debugw("like count hydration failed", "articleId", id, "err", err)
			continue
		}
		if count, ok := v.(*int); ok && count != nil {
			c := *count
			items[i].LikeCount = &c
		}
	}
}

func (s *Service) view(ctx context.Context, key, userID string) FeedView {
	items := s.store.Flatten(key)
	s.overlayLikes(ctx, userID, items)

	v := FeedView{Key: key, Items: items}
	pages := s.store.Pages(key)
	if len(pages) > 0 {
		last := pages[len(pages)-1]
		if next, ok := NextPage(last.Meta, len(pages), len(last.Items), s.pageSize); ok {
			v.NextPage = &next
		}
		if last.Meta.Total != nil {
			total := *last.Meta.Total
			v.Total = &total
		}
	}
	return v
}

// overlayLikes folds the caller's durable like flags over the shared cache.
// Cached pages are shared by every user, so per-user state is never written
// into them; it is merged at read time.
func (s *Service) overlayLikes(ctx context.Context, userID string, items []model.Article) {
	if userID == "" || len(items) == 0 {
		return
	}
	flags, err := s.shadow.All(ctx, userID)
	if err != nil {
		s.logger.Debugw("like overlay unavailable", "err", err)
		return
	}
	if len(flags) == 0 {
		return
	}
	for i := range items {
		id, ok := items[i].CanonicalID()
		if !ok {
			continue
		}
		if liked, ok := flags[id]; ok {
			l := liked
			items[i].Liked = &l
		}
	}
}

// Article returns a single article by numeric id or slug, from cache when
// possible. A fetched article is stored under both its id key and its slug
// key so later lookups by either route hit.
func (s *Service) Article(ctx context.Context, token, userID, idOrSlug string) (model.Article, error) {
	key := SlugKey(idOrSlug)
	if _, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil {
		id, _ := strconv.ParseInt(idOrSlug, 10, 64)
		key = DetailKey(id)
	}

	if cached, ok := s.store.Detail(key); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(ctx, "posts.detail")
		}
		one := []model.Article{cached}
		s.overlayLikes(ctx, userID, one)
		return one[0], nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(ctx, "posts.detail")
	}

	article, err := s.upstream.GetArticle(ctx, token, idOrSlug)
	if err != nil {
		return model.Article{}, err
	}
	if id, ok := article.CanonicalID(); ok {
		s.store.SetDetail(DetailKey(id), article)
	}
	if article.Slug != "" {
		s.store.SetDetail(SlugKey(article.Slug), article)
	}

	one := []model.Article{article}
	s.overlayLikes(ctx, userID, one)
	return one[0], nil
}

// Like toggles the caller's like and, on confirmation, patches every cached
// copy. A failed toggle touches nothing.
func (s *Service) Like(ctx context.Context, token, userID string, articleID int64) (remote.LikeResult, error) {
	if articleID <= 0 {
		return remote.LikeResult{}, fmt.Errorf("like: article id is required")
	}
	res, err := s.upstream.ToggleLike(ctx, token, articleID)
	if err != nil {
		return remote.LikeResult{}, err
	}
	s.patches.ApplyLike(ctx, userID, res)
	return res, nil
}

// Share records a share and patches cached share counts.
func (s *Service) Share(ctx context.Context, token, slug string) (remote.ShareResult, error) {
	if slug == "" {
		return remote.ShareResult{}, fmt.Errorf("share: slug is required")
	}
	res, err := s.upstream.ShareArticle(ctx, token, slug)
	if err != nil {
		return remote.ShareResult{}, err
	}
	s.patches.ApplyShare(ctx, res)
	return res, nil
}

// Follow toggles the caller's follow on a member and patches cached
// profiles.
func (s *Service) Follow(ctx context.Context, token string, memberID int64) (remote.FollowResult, error) {
	if memberID <= 0 {
		return remote.FollowResult{}, fmt.Errorf("follow: member id is required")
	}
	res, err := s.upstream.ToggleFollow(ctx, token, memberID)
	if err != nil {
		return remote.FollowResult{}, err
	}
	s.patches.ApplyFollow(ctx, memberID, res)
	return res, nil
}

// Comments returns the flattened thread for one (article, parent) pair,
// fetching the first page on a cold key, or the next page when more is true.
func (s *Service) Comments(ctx context.Context, articleID int64, parentID *int64, more bool) (CommentView, error) {
	key := CommentsKey(articleID, parentID, s.commentLimit)

	mu := s.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	pages := s.threads.Pages(key)
	next := 0
	switch {
	case len(pages) == 0:
		next = 1
	case more:
		last := pages[len(pages)-1]
		if n, ok := NextPage(last.Meta, len(pages), len(last.Items), s.commentLimit); ok {
			next = n
		}
	}

	if next > 0 {
		fetched, err := s.upstream.ListComments(ctx, articleID, parentID, next, s.commentLimit)
		if err != nil {
			s.threads.SetError(key, err)
			return CommentView{}, err
		}
		s.threads.AppendPage(key, CommentPage{Number: next, Items: fetched.Items, Meta: fetched.Meta})
	}

	return s.commentView(key), nil
}

func (s *Service) commentView(key string) CommentView {
	v := CommentView{Key: key, Items: s.threads.Flatten(key)}
	pages := s.threads.Pages(key)
	if len(pages) > 0 {
		last := pages[len(pages)-1]
		if next, ok := NextPage(last.Meta, len(pages), len(last.Items), s.commentLimit); ok {
			v.NextPage = &next
		}
		if last.Meta.Total != nil {
			total := *last.Meta.Total
			v.Total = &total
		}
	}
	return v
}

// CreateComment submits a comment and prepends the server's echo to the
// thread. Blank content fails locally before any request goes out.
func (s *Service) CreateComment(ctx context.Context, token string, articleID int64, content string, parentID *int64) (model.Comment, error) {
	comment, err := s.upstream.CreateComment(ctx, token, articleID, content, parentID)
	if err != nil {
		return model.Comment{}, err
	}
	s.patches.ApplyComment(ctx, articleID, parentID, s.commentLimit, comment)
	return comment, nil
}

// TopMembers returns the most-followed profiles, cached in-process so
// follow patches keep applying to it.
func (s *Service) TopMembers(ctx context.Context) ([]model.Member, error) {
	if cached, ok := s.store.Members(MembersTopKey); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(ctx, "members.top")
		}
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(ctx, "members.top")
	}
	members, err := s.upstream.ListTopMembers(ctx)
	if err != nil {
		return nil, err
	}
	s.store.SetMembers(MembersTopKey, members)
	return members, nil
}

// Profile returns one member profile, cached in-process.
func (s *Service) Profile(ctx context.Context, token string, memberID int64) (model.Member, error) {
	key := MemberKey(memberID)
	if cached, ok := s.store.Members(key); ok && len(cached) == 1 {
		return cached[0], nil
	}
	member, err := s.upstream.GetProfile(ctx, token, memberID)
	if err != nil {
		return model.Member{}, err
	}
	s.store.SetMembers(key, []model.Member{member})
	return member, nil
}

// Topics returns the topic index, snapshotted in the shared kv store so
// restarts and sibling instances reuse it.
func (s *Service) Topics(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	err := s.snapshot(ctx, "snapshot:topics", &topics, func() (any, error) {
		return s.upstream.ListTopics(ctx)
	})
	return topics, err
}

// Events returns upcoming events, snapshotted like Topics.
func (s *Service) Events(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.snapshot(ctx, "snapshot:events", &events, func() (any, error) {
		return s.upstream.ListEvents(ctx)
	})
	return events, err
}

// snapshot reads a JSON blob from the kv store, falling back to fetch and
// fill on miss. Concurrent misses for one key collapse into a single fetch.
func (s *Service) snapshot(ctx context.Context, key string, out any, fetch func() (any, error)) error {
	if s.snap != nil {
		if cached, err := s.snap.GetString(ctx, key); err == nil {
			if err := json.Unmarshal([]byte(cached), out); err == nil {
				return nil
			}
		} else if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Debugw("snapshot read failed", "key", key, "err", err)
		}
	}

	fresh, err, _ := s.flight.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if s.snap != nil {
			if err := s.snap.SetString(ctx, key, string(encoded), snapshotTTL); err != nil {
				s.logger.Debugw("snapshot write failed", "key", key, "err", err)
			}
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(fresh.([]byte), out)
}

// Logout clears the caller's durable like flags.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.shadow.ClearUser(ctx, userID)
}
