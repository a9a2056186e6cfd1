package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
	"github.com/khanhnotech/congdongacf-gateway/internal/remote"
	"github.com/khanhnotech/congdongacf-gateway/internal/shadow"
	"github.com/khanhnotech/congdongacf-gateway/pkg/kv/memory"
)

type recordingPub struct {
	mu     sync.Mutex
	events []PatchEvent
}

func (p *recordingPub) Publish(_ context.Context, channel string, payload []byte) error {
	var ev PatchEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPub) last(t *testing.T) PatchEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

func newCoordinator(t *testing.T) (*Coordinator, *Store, *Threads, *shadow.Store, *recordingPub) {
	t.Helper()
	backend := memory.NewStore()
	t.Cleanup(func() { backend.Close() })

	store := NewStore()
	threads := NewThreads()
	shadowStore := shadow.New(backend)
	pub := &recordingPub{}
	c := NewCoordinator(store, threads, shadowStore, pub, zap.NewNop().Sugar(), nil)
	return c, store, threads, shadowStore, pub
}

func likedArticle(id int64, slug string, likes int) model.Article {
	return model.Article{ArticleID: &id, Slug: slug, LikeCount: &likes}
}

func intp(v int) *int { return &v }

func TestApplyLike_PatchesEveryCachedCopy(t *testing.T) {
	c, store, _, shadowStore, pub := newCoordinator(t)
	ctx := context.Background()

	listKey := ListKey(CollectionList, 10, nil)
	store.AppendPage(listKey, Page{Number: 1, Items: []model.Article{
		likedArticle(1, "mot", 4),
		likedArticle(2, "hai", 9),
	}})
	store.SetDetail(DetailKey(1), likedArticle(1, "mot", 4))
	store.SetDetail(SlugKey("mot"), likedArticle(1, "mot", 4))

	touched := c.ApplyLike(ctx, "u1", remote.LikeResult{ArticleID: 1, Liked: true, LikeCount: intp(5)})
	assert.Equal(t, 3, touched, "list entry, detail entry and slug entry")

	flat := store.Flatten(listKey)
	require.NotNil(t, flat[0].Liked)
	assert.True(t, *flat[0].Liked)
	assert.Equal(t, 5, *flat[0].LikeCount)
	assert.Nil(t, flat[1].Liked, "other articles untouched")
	assert.Equal(t, 9, *flat[1].LikeCount)

	detail, _ := store.Detail(SlugKey("mot"))
	require.NotNil(t, detail.Liked, "slug-keyed entry resolved by its own id")
	assert.True(t, *detail.Liked)

	liked, known, err := shadowStore.Liked(ctx, "u1", 1)
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, liked)

	ev := pub.last(t)
	assert.Equal(t, "like", ev.Kind)
	require.NotNil(t, ev.ArticleID)
	assert.Equal(t, int64(1), *ev.ArticleID)
}

func TestApplyLike_NilCountLeavesCountAlone(t *testing.T) {
	c, store, _, _, _ := newCoordinator(t)

	key := ListKey(CollectionList, 10, nil)
	store.AppendPage(key, Page{Number: 1, Items: []model.Article{likedArticle(1, "", 4)}})

	c.ApplyLike(context.Background(), "u1", remote.LikeResult{ArticleID: 1, Liked: true})

	flat := store.Flatten(key)
	require.NotNil(t, flat[0].LikeCount)
	assert.Equal(t, 4, *flat[0].LikeCount, "server sent no count, cached one stands")
	assert.True(t, *flat[0].Liked)
}

func TestApplyLike_UnresolvableIdInvalidatesListings(t *testing.T) {
	c, store, _, _, _ := newCoordinator(t)

	store.AppendPage(ListKey(CollectionList, 10, nil), Page{Number: 1, Items: []model.Article{likedArticle(1, "", 4)}})
	store.AppendPage(ListKey(CollectionTrend, 10, nil), Page{Number: 1, Items: []model.Article{likedArticle(2, "", 1)}})
	store.SetDetail(DetailKey(1), likedArticle(1, "", 4))

	touched := c.ApplyLike(context.Background(), "u1", remote.LikeResult{ArticleID: 0, Liked: true})
	assert.Zero(t, touched)

	assert.Empty(t, store.Pages(ListKey(CollectionList, 10, nil)))
	assert.Empty(t, store.Pages(ListKey(CollectionTrend, 10, nil)))
	_, ok := store.Detail(DetailKey(1))
	assert.True(t, ok, "details survive the conservative flush")
}

func TestApplyShare_MatchesBySlugWhenIdMissing(t *testing.T) {
	c, store, _, _, pub := newCoordinator(t)

	// Slug-only payload: no numeric id anywhere.
	store.SetDetail(SlugKey("bai-viet"), model.Article{Slug: "bai-viet", ShareCount: intp(1)})

	touched := c.ApplyShare(context.Background(), remote.ShareResult{Slug: "bai-viet", Shared: true, ShareCount: intp(2)})
	assert.Equal(t, 1, touched)

	detail, _ := store.Detail(SlugKey("bai-viet"))
	require.NotNil(t, detail.ShareCount)
	assert.Equal(t, 2, *detail.ShareCount)
	assert.Equal(t, "share", pub.last(t).Kind)
}

func TestApplyFollow(t *testing.T) {
	c, store, _, _, pub := newCoordinator(t)
	id := int64(3)
	other := int64(4)
	store.SetMembers(MembersTopKey, []model.Member{
		{ID: &id, Name: "Hoa", FollowerCount: intp(10)},
		{ID: &other, Name: "Nam", FollowerCount: intp(2)},
	})

	touched := c.ApplyFollow(context.Background(), 3, remote.FollowResult{IsFollowing: true, FollowerCount: intp(11)})
	assert.Equal(t, 1, touched)

	members, _ := store.Members(MembersTopKey)
	require.NotNil(t, members[0].IsFollowing)
	assert.True(t, *members[0].IsFollowing)
	assert.Equal(t, 11, *members[0].FollowerCount)
	assert.Nil(t, members[1].IsFollowing)
	assert.Equal(t, "follow", pub.last(t).Kind)
}

func TestApplyComment(t *testing.T) {
	c, _, threads, _, pub := newCoordinator(t)

	c.ApplyComment(context.Background(), 10, nil, 20, model.Comment{ID: "c9", Content: "hi"})

	flat := threads.Flatten(CommentsKey(10, nil, 20))
	require.Len(t, flat, 1)
	assert.Equal(t, "c9", flat[0].ID)

	ev := pub.last(t)
	assert.Equal(t, "comment", ev.Kind)
	assert.Equal(t, "c9", ev.CommentID)
}
