package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapArticle(t *testing.T) {
	raw := rawOf(t, `{
		"id": 10,
		"slug": "chao-acf",
		"title": "Chào ACF",
		"excerpt": "<p>Xin <b>chào</b></p>",
		"author_name": "Minh Anh",
		"like_count": "3",
		"liked": 1,
		"share_count": 2,
		"tags": "go, redis",
		"created_at": "2026-08-01T10:00:00Z",
		"custom_field": {"nested": true}
	}`)

	a := MapArticle(raw)

	require.NotNil(t, a.ArticleID)
	assert.Equal(t, int64(10), *a.ArticleID)
	assert.Equal(t, "chao-acf", a.Slug)
	assert.Equal(t, "Chào ACF", a.Title)
	assert.Equal(t, "Xin chào", a.Excerpt, "markup is stripped")
	assert.Equal(t, "Minh Anh", a.Author)
	require.NotNil(t, a.LikeCount)
	assert.Equal(t, 3, *a.LikeCount)
	require.NotNil(t, a.Liked)
	assert.True(t, *a.Liked)
	require.NotNil(t, a.ShareCount)
	assert.Equal(t, 2, *a.ShareCount)
	assert.Equal(t, []string{"go", "redis"}, a.Tags)
	require.NotNil(t, a.CreatedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), a.CreatedAt.UTC())
	assert.Contains(t, a.Raw, "custom_field", "unmapped fields survive in Raw")
}

func TestMapArticle_Defaults(t *testing.T) {
	a := MapArticle(rawOf(t, `{}`))

	assert.Equal(t, FallbackAuthor, a.Author)
	assert.Equal(t, "published", a.Status)
	assert.Nil(t, a.ArticleID)
	assert.Nil(t, a.LikeCount, "unknown counts stay nil, never zero")
	assert.Nil(t, a.Liked)
	assert.Nil(t, a.CreatedAt)
}

func TestMapComment(t *testing.T) {
	c := MapComment(rawOf(t, `{
		"id": 5,
		"article_id": 10,
		"parent_id": 2,
		"content": "hay quá",
		"user_name": "Lan",
		"created_at": "2026-08-02 08:30:00"
	}`))

	assert.Equal(t, "5", c.ID)
	require.NotNil(t, c.ArticleID)
	assert.Equal(t, int64(10), *c.ArticleID)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, int64(2), *c.ParentID)
	assert.Equal(t, "hay quá", c.Content)
	assert.Equal(t, "Lan", c.Author)
	assert.False(t, c.Pending)
	require.NotNil(t, c.CreatedAt)
}

func TestMapComment_Fallbacks(t *testing.T) {
	c := MapComment(rawOf(t, `{"content": "no ids here"}`))

	assert.Equal(t, FallbackCommenter, c.Author)
	assert.NotEmpty(t, c.ID, "records without ids get a generated one")

	stringID := MapComment(rawOf(t, `{"id": "cm_abc"}`))
	assert.Equal(t, "cm_abc", stringID.ID)
}

func TestNewLocalComment(t *testing.T) {
	c := NewLocalComment(10, nil, "chờ server", "")

	assert.True(t, c.Pending)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, FallbackCommenter, c.Author)
	require.NotNil(t, c.ArticleID)
	assert.Equal(t, int64(10), *c.ArticleID)
}

func TestMapMember(t *testing.T) {
	m := MapMember(rawOf(t, `{
		"user_id": 3,
		"full_name": "Hoàng",
		"follower_count": 12,
		"is_following": true
	}`))

	require.NotNil(t, m.ID)
	assert.Equal(t, int64(3), *m.ID)
	assert.Equal(t, "Hoàng", m.Name)
	require.NotNil(t, m.FollowerCount)
	assert.Equal(t, 12, *m.FollowerCount)
	require.NotNil(t, m.IsFollowing)
	assert.True(t, *m.IsFollowing)
}

func TestAuthorInitials(t *testing.T) {
	assert.Equal(t, "U", AuthorInitials(""))
	assert.Equal(t, "U", AuthorInitials("   "))
	assert.Equal(t, "M", AuthorInitials("minh"))
	assert.Equal(t, "MA", AuthorInitials("Minh Anh"))
	assert.Equal(t, "NT", AuthorInitials("Nguyễn Văn Tùng"))
}
