package feed

import "github.com/khanhnotech/congdongacf-gateway/internal/model"

// NextPage decides whether another page follows the one just fetched.
// fetched is how many pages are already stored under the key, lastCount the
// item count of the newest page, pageSize the requested page size.
//
// Resolution is tiered because the endpoints disagree on what pagination
// metadata they return:
//
//  1. An explicit hasNext boolean is trusted outright.
//  2. A total count yields totalPages = ceil(total/limit); continue while the
//     current page is below it.
//  3. Otherwise a length heuristic: a short page means exhaustion, a full
//     page means one more probably exists. A server whose true last page is
//     exactly full makes this fetch one extra empty page; that tradeoff is
//     accepted because those endpoints give the client nothing better to go
//     on.
func NextPage(meta model.PageMeta, fetched, lastCount, pageSize int) (int, bool) {
	current := fetched
	if meta.CurrentPage != nil && *meta.CurrentPage > 0 {
		current = *meta.CurrentPage
	}
	if current < 1 {
		current = 1
	}

	if meta.HasNext != nil {
		if !*meta.HasNext {
			return 0, false
		}
		return current + 1, true
	}

	if meta.Total != nil {
		limit := pageSize
		if meta.PerPage != nil && *meta.PerPage > 0 {
			limit = *meta.PerPage
		}
		if limit > 0 {
			totalPages := (*meta.Total + limit - 1) / limit
			if current < totalPages {
				return current + 1, true
			}
			return 0, false
		}
	}

	if pageSize > 0 && lastCount < pageSize {
		return 0, false
	}
	return current + 1, true
}
