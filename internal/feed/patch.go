package feed

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/khanhnotech/congdongacf-gateway/internal/metrics"
	"github.com/khanhnotech/congdongacf-gateway/internal/model"
	"github.com/khanhnotech/congdongacf-gateway/internal/remote"
	"github.com/khanhnotech/congdongacf-gateway/internal/shadow"
)

// Patch broadcast channels. Connected clients subscribe to these to mirror
// confirmed mutations without refetching.
const (
	ChannelLike    = "acf:patch:like"
	ChannelShare   = "acf:patch:share"
	ChannelFollow  = "acf:patch:follow"
	ChannelComment = "acf:patch:comment"
)

// Publisher fans a patch event out to connected clients.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PatchEvent is the wire shape of a broadcast patch.
type PatchEvent struct {
	Kind          string `json:"kind"`
	ArticleID     *int64 `json:"articleId,omitempty"`
	MemberID      *int64 `json:"memberId,omitempty"`
	Slug          string `json:"slug,omitempty"`
	Liked         *bool  `json:"liked,omitempty"`
	LikeCount     *int   `json:"likeCount,omitempty"`
	ShareCount    *int   `json:"shareCount,omitempty"`
	IsFollowing   *bool  `json:"isFollowing,omitempty"`
	FollowerCount *int   `json:"followerCount,omitempty"`
	CommentID     string `json:"commentId,omitempty"`
}

// Coordinator applies confirmed mutation responses onto every cached view of
// the affected entity. It runs only after the server has answered; nothing
// is applied speculatively, so a failed mutation leaves every cache exactly
// as it was.
type Coordinator struct {
	store   *Store
	threads *Threads
	shadow  *shadow.Store
	pub     Publisher
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCoordinator(store *Store, threads *Threads, shadowStore *shadow.Store, pub Publisher, logger *zap.SugaredLogger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		store:   store,
		threads: threads,
		shadow:  shadowStore,
		pub:     pub,
		logger:  logger,
		metrics: m,
	}
}

// ApplyLike patches liked and likeCount onto every cached copy of the
// article: the three listing collections, id-keyed details, and slug-keyed
// details, whose own identifier must be resolved before comparing. When the
// response carries no resolvable id, every listing collection is dropped
// instead; conservative, but never silently wrong.
func (c *Coordinator) ApplyLike(ctx context.Context, userID string, res remote.LikeResult) int {
	if res.ArticleID <= 0 {
		dropped := c.store.InvalidateCollections(CollectionList, CollectionTrend, CollectionNew)
		c.logger.Warnw("like response without article id, invalidated listings", "dropped", dropped)
		return 0
	}
	id := res.ArticleID

	touched := c.store.PatchArticles(
		func(key string) bool { return isListKey(key) || isDetailKey(key) || isSlugKey(key) },
		func(a model.Article) bool { return (&a).Matches(id) },
		func(a *model.Article) {
			liked := res.Liked
			a.Liked = &liked
			if res.LikeCount != nil {
				count := *res.LikeCount
				a.LikeCount = &count
			}
		},
	)

	if err := c.shadow.SetLiked(ctx, userID, id, res.Liked); err != nil {
		// The caches already hold the confirmed state; losing the durable
		// record only costs reconciliation after a restart.
		c.logger.Warnw("persist like state failed", "articleId", id, "err", err)
	}

	if c.metrics != nil {
		c.metrics.RecordPatch(ctx, "like", touched)
	}
	liked := res.Liked
	c.publish(ctx, ChannelLike, PatchEvent{
		Kind:      "like",
		ArticleID: &id,
		Liked:     &liked,
		LikeCount: res.LikeCount,
	})
	return touched
}

// ApplyShare patches shareCount onto every cached copy of the article,
// matching by id when the response carries one and by slug otherwise.
func (c *Coordinator) ApplyShare(ctx context.Context, res remote.ShareResult) int {
	if res.ArticleID == nil && res.Slug == "" {
		dropped := c.store.InvalidateCollections(CollectionList, CollectionTrend, CollectionNew)
		c.logger.Warnw("share response without id or slug, invalidated listings", "dropped", dropped)
		return 0
	}

	touched := c.store.PatchArticles(
		func(key string) bool { return isListKey(key) || isDetailKey(key) || isSlugKey(key) },
		func(a model.Article) bool {
			if res.ArticleID != nil && (&a).Matches(*res.ArticleID) {
				return true
			}
			return res.Slug != "" && a.Slug == res.Slug
		},
		func(a *model.Article) {
			if res.ShareCount != nil {
				count := *res.ShareCount
				a.ShareCount = &count
			}
		},
	)

	if c.metrics != nil {
		c.metrics.RecordPatch(ctx, "share", touched)
	}
	c.publish(ctx, ChannelShare, PatchEvent{
		Kind:       "share",
		ArticleID:  res.ArticleID,
		Slug:       res.Slug,
		ShareCount: res.ShareCount,
	})
	return touched
}

// ApplyFollow patches the follow relation onto every cached view of the
// member.
func (c *Coordinator) ApplyFollow(ctx context.Context, memberID int64, res remote.FollowResult) int {
	touched := c.store.PatchMembers(
		func(m model.Member) bool { return m.ID != nil && *m.ID == memberID },
		func(m *model.Member) {
			following := res.IsFollowing
			m.IsFollowing = &following
			if res.FollowerCount != nil {
				count := *res.FollowerCount
				m.FollowerCount = &count
			}
		},
	)

	if c.metrics != nil {
		c.metrics.RecordPatch(ctx, "follow", touched)
	}
	following := res.IsFollowing
	c.publish(ctx, ChannelFollow, PatchEvent{
		Kind:          "follow",
		MemberID:      &memberID,
		IsFollowing:   &following,
		FollowerCount: res.FollowerCount,
	})
	return touched
}

// ApplyComment prepends a confirmed new comment to its thread and announces
// it.
func (c *Coordinator) ApplyComment(ctx context.Context, articleID int64, parentID *int64, limit int, comment model.Comment) {
	c.threads.Prepend(CommentsKey(articleID, parentID, limit), comment)

	if c.metrics != nil {
		c.metrics.RecordPatch(ctx, "comment", 1)
	}
	c.publish(ctx, ChannelComment, PatchEvent{
		Kind:      "comment",
		ArticleID: &articleID,
		CommentID: comment.ID,
	})
}

func (c *Coordinator) publish(ctx context.Context, channel string, event PatchEvent) {
	if c.pub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Errorw("encode patch event", "channel", channel, "err", err)
		return
	}
	if err := c.pub.Publish(ctx, channel, payload); err != nil {
		c.logger.Warnw("publish patch event failed", "channel", channel, "err", err)
	}
}
