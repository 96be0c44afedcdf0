// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import "github.com/tomtom215/feedrank/internal/models"

// Diversify walks the score-sorted candidate list once, keeping an item
// only while its author's running count is below maxPerAuthor and the
// output is below limit. Items that would violate either condition are
// dropped, not deferred.
//
// The running-count rule caps an author's total items per page, which
// is a stronger guarantee than capping consecutive runs. The per-page
// semantics are deliberate; do not reinterpret this as a
// consecutive-run cap.
func Diversify(items []*models.FeedItem, limit, maxPerAuthor int) []*models.FeedItem {
	if limit <= 0 || len(items) == 0 {
		return []*models.FeedItem{}
	}

	kept := make([]*models.FeedItem, 0, min(limit, len(items)))
	perAuthor := make(map[string]int, len(items))

	for _, item := range items {
		if len(kept) >= limit {
			break
		}
		if perAuthor[item.AuthorID] >= maxPerAuthor {
			continue
		}
		perAuthor[item.AuthorID]++
		kept = append(kept, item)
	}
	return kept
}
