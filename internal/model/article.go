package model

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// FallbackAuthor is used when a post record carries no author information.
const FallbackAuthor = "ACF"

var stripHTML = bluemonday.StrictPolicy()

// Article is the client-facing shape of a community post. Pointer fields
// distinguish "server did not say" from zero values: a nil LikeCount means
// the count is unknown and must not render as 0.
type Article struct {
	ArticleID  *int64     `json:"articleId,omitempty"`
	Slug       string     `json:"slug,omitempty"`
	Title      string     `json:"title"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Content    string     `json:"content,omitempty"`
	Author     string     `json:"author"`
	AuthorID   *int64     `json:"authorId,omitempty"`
	Avatar     string     `json:"avatar,omitempty"`
	Cover      string     `json:"cover,omitempty"`
	TopicID    *int64     `json:"topicId,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Status     string     `json:"status"`
	LikeCount  *int       `json:"likeCount,omitempty"`
	Liked      *bool      `json:"liked,omitempty"`
	ShareCount *int       `json:"shareCount,omitempty"`
	ViewCount  *int       `json:"viewCount,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`

	Raw Raw `json:"raw,omitempty"`
}

// MapArticle builds an Article view-model from a raw server record. Every
// field degrades independently; a record missing half its fields still maps.
func MapArticle(raw Raw) Article {
	a := Article{
		Author: FallbackAuthor,
		Status: "published",
		Raw:    raw,
	}
	if id, ok := raw.Int("article_id", "id", "articleId"); ok {
		a.ArticleID = int64Ptr(id)
	}
	a.Slug, _ = raw.String("slug")
	a.Title, _ = raw.String("title", "name")
	if excerpt, ok := raw.String("excerpt", "description", "summary"); ok {
		a.Excerpt = strings.TrimSpace(stripHTML.Sanitize(excerpt))
	}
	a.Content, _ = raw.String("content", "body")
	if author, ok := raw.String("author_name", "author", "user_name"); ok {
		a.Author = author
	}
	if authorID, ok := raw.Int("author_id", "user_id"); ok {
		a.AuthorID = int64Ptr(authorID)
	}
	a.Avatar, _ = raw.String("author_avatar", "avatar")
	a.Cover, _ = raw.String("cover", "image", "thumbnail")
	if topicID, ok := raw.Int("topic_id", "category_id"); ok {
		a.TopicID = int64Ptr(topicID)
	}
	a.Tags = raw.Strings("tags")
	if status, ok := raw.String("status"); ok {
		a.Status = status
	}
	if likes, ok := raw.Int("like_count", "likes"); ok {
		a.LikeCount = intPtr(likes)
	}
	if liked, ok := raw.Bool("liked", "is_liked"); ok {
		a.Liked = boolPtr(liked)
	}
	if shares, ok := raw.Int("share_count", "shares"); ok {
		a.ShareCount = intPtr(shares)
	}
	if views, ok := raw.Int("view_count", "views"); ok {
		a.ViewCount = intPtr(views)
	}
	if created, ok := raw.Time("created_at", "createdAt", "published_at"); ok {
		a.CreatedAt = &created
	}
	return a
}

// AuthorInitials derives a one or two letter monogram for avatar
// placeholders. Unknown authors get "U".
func AuthorInitials(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	switch len(fields) {
	case 0:
		return "U"
	case 1:
		return strings.ToUpper(firstRune(fields[0]))
	default:
		return strings.ToUpper(firstRune(fields[0]) + firstRune(fields[len(fields)-1]))
	}
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
