package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FallbackCommenter is used when a comment record carries no author name.
const FallbackCommenter = "Người dùng"

// Comment is the client-facing shape of a single comment. IDs are strings
// because the upstream mixes numeric ids with string ids across endpoints;
// locally created comments get a UUID until the server echo replaces them.
type Comment struct {
	ID        string     `json:"id"`
	ArticleID *int64     `json:"articleId,omitempty"`
	ParentID  *int64     `json:"parentId,omitempty"`
	Content   string     `json:"content"`
	Author    string     `json:"author"`
	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Pending   bool       `json:"pending,omitempty"`

	Raw Raw `json:"raw,omitempty"`
}

// MapComment builds a Comment view-model from a raw server record.
func MapComment(raw Raw) Comment {
	c := Comment{
		Author: FallbackCommenter,
		Raw:    raw,
	}
	if id, ok := raw.Int("id", "comment_id"); ok {
		c.ID = strconv.FormatInt(id, 10)
	} else if id, ok := raw.String("id", "comment_id"); ok {
		c.ID = id
	} else {
		c.ID = uuid.NewString()
	}
	if articleID, ok := raw.Int("article_id", "articleId"); ok {
		c.ArticleID = int64Ptr(articleID)
	}
	if parentID, ok := raw.Int("parent_id", "parentId"); ok {
		c.ParentID = int64Ptr(parentID)
	}
	c.Content, _ = raw.String("content", "body", "comment")
	if author, ok := raw.String("user_name", "author_name", "author"); ok {
		c.Author = author
	}
	c.Avatar, _ = raw.String("user_avatar", "avatar")
	if created, ok := raw.Time("created_at", "createdAt"); ok {
		c.CreatedAt = &created
	}
	return c
}

// NewLocalComment builds the optimistic placeholder inserted ahead of the
// server echo. It carries a UUID so a later reconcile can find it.
func NewLocalComment(articleID int64, parentID *int64, content, author string) Comment {
	if author == "" {
		author = FallbackCommenter
	}
	now := time.Now().UTC()
	return Comment{
		ID:        uuid.NewString(),
		ArticleID: int64Ptr(articleID),
		ParentID:  parentID,
		Content:   content,
		Author:    author,
		CreatedAt: &now,
		Pending:   true,
	}
}
