package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnotech/congdongacf-gateway/internal/config"
	"github.com/khanhnotech/congdongacf-gateway/internal/metrics"
	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

const maxBodyBytes = 4 << 20

// Client talks to the upstream community API. It owns request construction,
// auth pass-through, envelope decoding and error taxonomy; it does no
// caching. Callers hand it a bearer token per call because identity belongs
// to the request, not the client.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
}

// New builds a Client from config. The metrics handle may be nil in tests.
func New(cfg config.UpstreamConfig, logger *zap.SugaredLogger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpc:     &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		metrics:   m,
	}
}

// ListArticles fetches one page of the article index.
func (c *Client) ListArticles(ctx context.Context, token string, q ListQuery) (ArticlePage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.TopicID != nil {
		params.Set("topic_id", strconv.FormatInt(*q.TopicID, 10))
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}

	env, _, err := c.do(ctx, "list_articles", http.MethodGet, "article", params, token, nil)
	if err != nil {
		return ArticlePage{}, err
	}
	records, meta, err := listRecords("list_articles", env)
	if err != nil {
		return ArticlePage{}, err
	}
	page := ArticlePage{Items: make([]model.Article, 0, len(records)), Meta: meta}
	for _, rec := range records {
		page.Items = append(page.Items, model.MapArticle(rec))
	}
	return page, nil
}

// GetArticle fetches a single article by numeric id or slug.
func (c *Client) GetArticle(ctx context.Context, token, idOrSlug string) (model.Article, error) {
	env, body, err := c.do(ctx, "get_article", http.MethodGet, "article/detail/"+url.PathEscape(idOrSlug), nil, token, nil)
	if err != nil {
		return model.Article{}, err
	}
	rec, err := objectRecord("get_article", env, body)
	if err != nil {
		return model.Article{}, err
	}
	return model.MapArticle(rec), nil
}

// ToggleLike flips the caller's like on an article and returns the server's
// resulting state.
func (c *Client) ToggleLike(ctx context.Context, token string, articleID int64) (LikeResult, error) {
	env, body, err := c.do(ctx, "toggle_like", http.MethodPost, "article/like/"+strconv.FormatInt(articleID, 10), nil, token, nil)
	if err != nil {
		return LikeResult{}, err
	}
	rec, err := objectRecord("toggle_like", env, body)
	if err != nil {
		return LikeResult{}, err
	}
	res := LikeResult{ArticleID: articleID}
	if id, ok := rec.Int("article_id", "id"); ok {
		res.ArticleID = id
	}
	res.Liked, _ = rec.Bool("liked", "is_liked")
	if count, ok := rec.Int("like_count", "likes"); ok {
		v := int(count)
		res.LikeCount = &v
	}
	return res, nil
}

// ListComments fetches one page of comments for an article. A nil parentID
// selects top-level comments; otherwise replies to that comment.
func (c *Client) ListComments(ctx context.Context, articleID int64, parentID *int64, page, limit int) (CommentPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	if parentID != nil {
		params.Set("parent_id", strconv.FormatInt(*parentID, 10))
	}

	env, _, err := c.do(ctx, "list_comments", http.MethodGet, "article/show-comment/"+strconv.FormatInt(articleID, 10), params, "", nil)
	if err != nil {
		return CommentPage{}, err
	}
	records, meta, err := listRecords("list_comments", env)
	if err != nil {
		return CommentPage{}, err
	}
	out := CommentPage{Items: make([]model.Comment, 0, len(records)), Meta: meta}
	for _, rec := range records {
		out.Items = append(out.Items, model.MapComment(rec))
	}
	return out, nil
}

// CreateComment posts a comment. Blank content is rejected locally with
// ErrEmptyContent before any request is made.
func (c *Client) CreateComment(ctx context.Context, token string, articleID int64, content string, parentID *int64) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Comment{}, ErrEmptyContent
	}
	payload := map[string]any{"content": content}
	if parentID != nil {
		payload["parent_id"] = *parentID
	}

	env, body, err := c.do(ctx, "create_comment", http.MethodPost, "article/comment/"+strconv.FormatInt(articleID, 10), nil, token, payload)
	if err != nil {
		return model.Comment{}, err
	}
	rec, err := objectRecord("create_comment", env, body)
	if err != nil {
		return model.Comment{}, err
	}
	comment := model.MapComment(rec)
	if comment.ArticleID == nil {
		id := articleID
		comment.ArticleID = &id
	}
	return comment, nil
}

// ShareArticle records a share by slug.
func (c *Client) ShareArticle(ctx context.Context, token, slug string) (ShareResult, error) {
	env, body, err := c.do(ctx, "share_article", http.MethodPost, "article/share/"+url.PathEscape(slug), nil, token, nil)
	if err != nil {
		return ShareResult{}, err
	}
	rec, err := objectRecord("share_article", env, body)
	if err != nil {
		return ShareResult{}, err
	}
	res := ShareResult{Slug: slug}
	if id, ok := rec.Int("article_id", "id"); ok {
		res.ArticleID = &id
	}
	if s, ok := rec.String("slug"); ok {
		res.Slug = s
	}
	res.Shared, _ = rec.Bool("shared")
	if count, ok := rec.Int("share_count", "shares"); ok {
		v := int(count)
		res.ShareCount = &v
	}
	return res, nil
}

// ToggleFollow flips the caller's follow on a member.
func (c *Client) ToggleFollow(ctx context.Context, token string, memberID int64) (FollowResult, error) {
	env, body, err := c.do(ctx, "toggle_follow", http.MethodPost, "view-profile/"+strconv.FormatInt(memberID, 10)+"/follow", nil, token, nil)
	if err != nil {
		return FollowResult{}, err
	}
	rec, err := objectRecord("toggle_follow", env, body)
	if err != nil {
		return FollowResult{}, err
	}
	res := FollowResult{}
	res.IsFollowing, _ = rec.Bool("is_following", "following")
	if count, ok := rec.Int("follower_count", "followers"); ok {
		v := int(count)
		res.FollowerCount = &v
	}
	return res, nil
}

// ListTopMembers fetches the most-followed profiles.
func (c *Client) ListTopMembers(ctx context.Context) ([]model.Member, error) {
	env, _, err := c.do(ctx, "top_members", http.MethodGet, "member/top", nil, "", nil)
	if err != nil {
		return nil, err
	}
	records, _, err := listRecords("top_members", env)
	if err != nil {
		return nil, err
	}
	members := make([]model.Member, 0, len(records))
	for _, rec := range records {
		members = append(members, model.MapMember(rec))
	}
	return members, nil
}

// GetProfile fetches one member profile. Authenticated callers get their
// follow relation included.
func (c *Client) GetProfile(ctx context.Context, token string, memberID int64) (model.Member, error) {
	env, body, err := c.do(ctx, "get_profile", http.MethodGet, "view-profile/"+strconv.FormatInt(memberID, 10), nil, token, nil)
	if err != nil {
		return model.Member{}, err
	}
	rec, err := objectRecord("get_profile", env, body)
	if err != nil {
		return model.Member{}, err
	}
	return model.MapMember(rec), nil
}

// ListTopics fetches the topic index.
func (c *Client) ListTopics(ctx context.Context) ([]model.Topic, error) {
	env, _, err := c.do(ctx, "list_topics", http.MethodGet, "topic", nil, "", nil)
	if err != nil {
		return nil, err
	}
	records, _, err := listRecords("list_topics", env)
	if err != nil {
		return nil, err
	}
	topics := make([]model.Topic, 0, len(records))
	for _, rec := range records {
		topics = append(topics, model.MapTopic(rec))
	}
	return topics, nil
}

// ListEvents fetches upcoming community events.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	env, _, err := c.do(ctx, "list_events", http.MethodGet, "event", nil, "", nil)
	if err != nil {
		return nil, err
	}
	records, _, err := listRecords("list_events", env)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(records))
	for _, rec := range records {
		events = append(events, model.MapEvent(rec))
	}
	return events, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, token string, payload any) (*envelope, []byte, error) {
	endpoint := c.baseURL + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(ctx, op, 0, time.Since(start))
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(ctx, op, resp.StatusCode, time.Since(start))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, c.apiError(op, resp.StatusCode, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, &DecodeError{Op: op, Err: err}
	}
	return &env, body, nil
}

func (c *Client) apiError(op string, status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Code
		if env.Message != "" {
			apiErr.Message = cleanMessage(env.Message)
		} else if env.Error != "" {
			apiErr.Message = cleanMessage(env.Error)
		}
	}
	if apiErr.Message == "" && len(body) > 0 {
		apiErr.Message = cleanMessage(string(body))
	}
	if c.logger != nil {
		c.logger.Warnw("upstream error", "op", op, "status", status, "message", apiErr.Message)
	}
	return apiErr
}

// listRecords extracts the record array and pagination metadata from an
// envelope. Handles both the flat shape, where the array sits directly under
// data, and the nested paginator shape, where data is an object carrying its
// own data array and inline page fields.
func listRecords(op string, env *envelope) ([]model.Raw, model.PageMeta, error) {
	payload := env.payload()
	if payload == nil {
		return nil, model.PageMeta{}, &DecodeError{Op: op, Err: fmt.Errorf("response carries no payload")}
	}

	var records []model.Raw
	if err := json.Unmarshal(payload, &records); err == nil {
		return records, model.MapPageMeta(env.meta()), nil
	}

	var inner model.Raw
	if err := json.Unmarshal(payload, &inner); err != nil {
		return nil, model.PageMeta{}, &DecodeError{Op: op, Err: err}
	}
	for _, key := range []string{"data", "items", "rows"} {
		nested, ok := inner[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(nested, &records); err == nil {
			meta := env.meta()
			if meta == nil {
				meta = inner
			}
			return records, model.MapPageMeta(meta), nil
		}
	}
	return nil, model.PageMeta{}, &DecodeError{Op: op, Err: fmt.Errorf("no record array in response")}
}

// objectRecord extracts a single record. Some endpoints wrap it in the
// envelope, others return the object bare; both shapes are accepted.
func objectRecord(op string, env *envelope, body []byte) (model.Raw, error) {
	if payload := env.payload(); payload != nil {
		var rec model.Raw
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, &DecodeError{Op: op, Err: err}
		}
		return rec, nil
	}
	var rec model.Raw
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return rec, nil
}
