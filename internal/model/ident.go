package model

// Canonical identifier resolution for article-shaped records.
//
// The upstream ships the same article under several field names depending on
// the endpoint: mapped payloads carry articleId, list rows carry article_id,
// detail bodies carry a plain id, and a few legacy shapes echo articleId
// inside the raw record. Resolution walks that priority order and takes the
// first field holding a finite number. Absence is not an error; callers that
// cannot resolve an identifier fall back to coarse invalidation instead.

// CanonicalArticleID resolves the numeric identifier for a mapped article.
// The mapped ArticleID wins, then the raw record's article_id, id, and
// articleId, in that order.
func CanonicalArticleID(articleID *int64, raw Raw) (int64, bool) {
	if articleID != nil {
		return *articleID, true
	}
	return raw.Int("article_id", "id", "articleId")
}

// CanonicalID resolves the article's identifier. The comma-ok form mirrors
// map lookups: (0, false) means the record carries no usable identifier
// anywhere, which is legitimate for slug-only payloads.
func (a *Article) CanonicalID() (int64, bool) {
	if a == nil {
		return 0, false
	}
	return CanonicalArticleID(a.ArticleID, a.Raw)
}

// Matches reports whether the article resolves to the given identifier.
// Records without a resolvable identifier match nothing.
func (a *Article) Matches(id int64) bool {
	got, ok := a.CanonicalID()
	return ok && got == id
}
