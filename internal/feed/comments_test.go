package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

func comment(id, content string) model.Comment {
	return model.Comment{ID: id, Content: content}
}

func TestThreads_PrependSynthesizesFirstPage(t *testing.T) {
	th := NewThreads()
	key := CommentsKey(10, nil, 20)

	th.Prepend(key, comment("c1", "first"))

	flat := th.Flatten(key)
	require.Len(t, flat, 1)
	assert.Equal(t, "c1", flat[0].ID)

	pages := th.Pages(key)
	require.Len(t, pages, 1)
	require.NotNil(t, pages[0].Meta.Total)
	assert.Equal(t, 1, *pages[0].Meta.Total)
}

func TestThreads_PrependGoesToHead(t *testing.T) {
	th := NewThreads()
	key := CommentsKey(10, nil, 20)
	total := 1
	th.AppendPage(key, CommentPage{
		Number: 1,
		Items:  []model.Comment{comment("c1", "existing")},
		Meta:   model.PageMeta{Total: &total},
	})

	th.Prepend(key, comment("c2", "new"))

	flat := th.Flatten(key)
	require.Len(t, flat, 2)
	assert.Equal(t, "c2", flat[0].ID, "newest comment first")
	assert.Equal(t, "c1", flat[1].ID)

	pages := th.Pages(key)
	require.NotNil(t, pages[0].Meta.Total)
	assert.Equal(t, 2, *pages[0].Meta.Total, "known total is bumped")
}

func TestThreads_PrependWithoutTotalLeavesMetaAlone(t *testing.T) {
	th := NewThreads()
	key := CommentsKey(10, nil, 20)
	th.AppendPage(key, CommentPage{Number: 1, Items: []model.Comment{comment("c1", "x")}})

	th.Prepend(key, comment("c2", "y"))

	pages := th.Pages(key)
	assert.Nil(t, pages[0].Meta.Total)
}

func TestThreads_InvalidateArticle(t *testing.T) {
	th := NewThreads()
	parent := int64(5)
	th.AppendPage(CommentsKey(10, nil, 20), CommentPage{Number: 1})
	th.AppendPage(CommentsKey(10, &parent, 20), CommentPage{Number: 1})
	th.AppendPage(CommentsKey(11, nil, 20), CommentPage{Number: 1})

	th.InvalidateArticle(10)

	assert.Empty(t, th.Pages(CommentsKey(10, nil, 20)))
	assert.Empty(t, th.Pages(CommentsKey(10, &parent, 20)))
	assert.Len(t, th.Pages(CommentsKey(11, nil, 20)), 1, "other articles keep their threads")
}

func TestThreads_ErrorState(t *testing.T) {
	th := NewThreads()
	key := CommentsKey(10, nil, 20)

	th.SetError(key, errors.New("boom"))
	assert.Error(t, th.Err(key))

	th.AppendPage(key, CommentPage{Number: 1})
	assert.NoError(t, th.Err(key), "a successful fetch clears the error")
}
