package remote

import (
	"encoding/json"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

// ListQuery selects a slice of the article index.
type ListQuery struct {
	Page    int
	Limit   int
	Sort    string // "", "trend" or "new"
	TopicID *int64
	Search  string
}

// ArticlePage is one page of mapped articles plus whatever pagination
// metadata the upstream attached.
type ArticlePage struct {
	Items []model.Article
	Meta  model.PageMeta
}

// CommentPage is one page of mapped comments.
type CommentPage struct {
	Items []model.Comment
	Meta  model.PageMeta
}

// LikeResult is the server's verdict on a like toggle. LikeCount is nil when
// the server does not echo a count.
type LikeResult struct {
	ArticleID int64 `json:"article_id"`
	Liked     bool  `json:"liked"`
	LikeCount *int  `json:"like_count"`
}

// ShareResult is the server's verdict on a share.
type ShareResult struct {
	ArticleID  *int64 `json:"article_id"`
	Slug       string `json:"slug"`
	Shared     bool   `json:"shared"`
	ShareCount *int   `json:"share_count"`
}

// FollowResult is the server's verdict on a follow toggle.
type FollowResult struct {
	IsFollowing   bool `json:"is_following"`
	FollowerCount *int `json:"follower_count"`
}

// envelope is the common response wrapper. The upstream is inconsistent
// about which key carries the payload, so all known aliases are declared and
// the first non-empty one wins.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Items json.RawMessage `json:"items"`
	Rows  json.RawMessage `json:"rows"`

	Meta       model.Raw `json:"meta"`
	Pagination model.Raw `json:"pagination"`

	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (e *envelope) payload() json.RawMessage {
	for _, candidate := range []json.RawMessage{e.Data, e.Items, e.Rows} {
		if len(candidate) > 0 && string(candidate) != "null" {
			return candidate
		}
	}
	return nil
}

func (e *envelope) meta() model.Raw {
	if len(e.Meta) > 0 {
		return e.Meta
	}
	return e.Pagination
}
