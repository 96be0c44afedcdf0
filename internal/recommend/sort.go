// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package recommend

import (
	"sort"

	"github.com/tomtom215/feedrank/internal/models"
)

// sortByScoreDesc orders items by score descending, id as tie-breaker.
func sortByScoreDesc(items []*models.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID > items[j].ID
	})
}
