package feed

import (
	"sort"
	"strconv"
	"strings"
)

// Article list collections. The patch coordinator scans exactly these when a
// like or share confirmation arrives.
const (
	CollectionList  = "posts.list"
	CollectionTrend = "posts.trend"
	CollectionNew   = "posts.new"
)

const (
	detailPrefix   = "posts.detail:"
	slugPrefix     = "posts.slug:"
	commentsPrefix = "comments:"
	memberPrefix   = "members.detail:"
)

// MembersTopKey caches the most-followed profile listing.
const MembersTopKey = "members.top"

// ListKey derives the cache key for a filtered article listing. Filters are
// serialized in sorted order so two maps with equal contents always produce
// the same key, whatever order the caller built them in.
func ListKey(collection string, limit int, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(collection)
	b.WriteString("|limit=")
	b.WriteString(strconv.Itoa(limit))

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k, v := range filters {
			if v == "" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("|")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(filters[k])
		}
	}
	return b.String()
}

// DetailKey caches a single article fetched by numeric id.
func DetailKey(id int64) string {
	return detailPrefix + strconv.FormatInt(id, 10)
}

// SlugKey caches a single article fetched by slug. The same article may sit
// under both a DetailKey and a SlugKey; the patch coordinator handles the
// redundancy.
func SlugKey(slug string) string {
	return slugPrefix + slug
}

// CommentsKey scopes one comment thread: an article, a parent (0 for
// top-level) and a page size.
func CommentsKey(articleID int64, parentID *int64, limit int) string {
	parent := int64(0)
	if parentID != nil {
		parent = *parentID
	}
	return commentsPrefix + strconv.FormatInt(articleID, 10) + ":" + strconv.FormatInt(parent, 10) + ":" + strconv.Itoa(limit)
}

// MemberKey caches a single profile.
func MemberKey(id int64) string {
	return memberPrefix + strconv.FormatInt(id, 10)
}

// keyCollection returns the listing collection a key belongs to, or "".
func keyCollection(key string) string {
	for _, c := range []string{CollectionList, CollectionTrend, CollectionNew} {
		if key == c || strings.HasPrefix(key, c+"|") {
			return c
		}
	}
	return ""
}

func isListKey(key string) bool   { return keyCollection(key) != "" }
func isDetailKey(key string) bool { return strings.HasPrefix(key, detailPrefix) }
func isSlugKey(key string) bool   { return strings.HasPrefix(key, slugPrefix) }

func commentsKeyPrefix(articleID int64) string {
	return commentsPrefix + strconv.FormatInt(articleID, 10) + ":"
}
