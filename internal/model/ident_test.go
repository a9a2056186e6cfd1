package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rawOf(t *testing.T, src string) Raw {
	t.Helper()
	var r Raw
	if err := json.Unmarshal([]byte(src), &r); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return r
}

func TestCanonicalArticleID_Priority(t *testing.T) {
	mapped := int64(7)

	tests := []struct {
		name    string
		mapped  *int64
		raw     string
		want    int64
		wantOK  bool
	}{
		{"mapped id wins over raw", &mapped, `{"article_id": 99, "id": 100}`, 7, true},
		{"raw article_id over raw id", nil, `{"article_id": 42, "id": 43}`, 42, true},
		{"raw id when article_id absent", nil, `{"id": 43, "articleId": 44}`, 43, true},
		{"raw articleId last", nil, `{"articleId": 44}`, 44, true},
		{"numeric string qualifies", nil, `{"article_id": "55"}`, 55, true},
		{"non-numeric string is skipped", nil, `{"article_id": "abc", "id": 9}`, 9, true},
		{"null is skipped", nil, `{"article_id": null, "id": 9}`, 9, true},
		{"nothing resolvable", nil, `{"slug": "hello"}`, 0, false},
		{"empty record", nil, `{}`, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CanonicalArticleID(tc.mapped, rawOf(t, tc.raw))
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRawAccessors_NullSkipped(t *testing.T) {
	r := rawOf(t, `{"liked": null, "is_liked": true, "tags": null, "labels": ["a"], "count": null}`)

	liked, ok := r.Bool("liked", "is_liked")
	assert.True(t, ok)
	assert.True(t, liked, "a null flag must not shadow the next candidate")

	assert.Equal(t, []string{"a"}, r.Strings("tags", "labels"))

	_, ok = r.Number("count")
	assert.False(t, ok, "null is not a finite zero")
}

func TestArticleMatches(t *testing.T) {
	a := MapArticle(rawOf(t, `{"article_id": 12, "title": "t"}`))
	assert.True(t, a.Matches(12))
	assert.False(t, a.Matches(13))

	noID := MapArticle(rawOf(t, `{"slug": "only-a-slug"}`))
	assert.False(t, noID.Matches(0), "unresolvable records match nothing")

	var nilArticle *Article
	_, ok := nilArticle.CanonicalID()
	assert.False(t, ok)
}
