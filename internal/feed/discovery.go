// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"sort"

	"github.com/tomtom215/feedrank/internal/models"
)

// AllocateDiscovery guarantees visibility for small creators within a
// page without clustering them at the top or bottom.
//
// Items are partitioned by the author's follower count into "small
// creator" and "established" sets, each re-sorted by score. Up to
// slots top small-creator items become guaranteed discovery slots,
// taking at most one item per small creator while distinct authors
// remain; the remainder of both sets is merged by score and truncated
// to limit - slots_taken. Discovery items are then interleaved through
// the merged list at a fixed interval; any left over after the walk
// are prepended.
//
// followers maps author id to follower count (batch loaded). Output
// length is min(limit, len(items)).
func AllocateDiscovery(items []*models.FeedItem, followers map[string]int, limit, slots, smallCreatorMax int) []*models.FeedItem {
	if len(items) == 0 || limit <= 0 {
		return []*models.FeedItem{}
	}

	small := make([]*models.FeedItem, 0, len(items))
	established := make([]*models.FeedItem, 0, len(items))
	for _, item := range items {
		if followers[item.AuthorID] < smallCreatorMax {
			small = append(small, item)
		} else {
			established = append(established, item)
		}
	}
	sortByScoreDesc(small)
	sortByScoreDesc(established)

	take := slots
	if take > len(small) {
		take = len(small)
	}

	// Guaranteed slots go to distinct small creators first; an author's
	// second item only takes a slot once distinct authors run out.
	discovery := make([]*models.FeedItem, 0, take)
	rest := make([]*models.FeedItem, 0, len(small))
	slotted := make(map[string]struct{}, take)
	for _, item := range small {
		if _, dup := slotted[item.AuthorID]; !dup && len(discovery) < take {
			slotted[item.AuthorID] = struct{}{}
			discovery = append(discovery, item)
			continue
		}
		rest = append(rest, item)
	}
	for len(discovery) < take && len(rest) > 0 {
		discovery = append(discovery, rest[0])
		rest = rest[1:]
	}

	main := mergeByScore(rest, established)
	if maxMain := limit - take; len(main) > maxMain {
		main = main[:maxMain]
	}

	if take == 0 {
		return main
	}

	// Insert one discovery item after every interval-th main position;
	// leftovers go to the front.
	interval := (len(main) + take) / (take + 1)
	if interval < 1 {
		interval = 1
	}

	out := make([]*models.FeedItem, 0, len(main)+take)
	di := 0
	for i, item := range main {
		out = append(out, item)
		if di < take && (i+1)%interval == 0 {
			out = append(out, discovery[di])
			di++
		}
	}
	if di < take {
		out = append(append([]*models.FeedItem{}, discovery[di:]...), out...)
	}
	return out
}

// mergeByScore merges two score-sorted lists into one, preserving
// descending score order.
func mergeByScore(a, b []*models.FeedItem) []*models.FeedItem {
	out := make([]*models.FeedItem, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Score >= b[j].Score {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// sortByScoreDesc orders items by score descending with id as the
// tie-breaker, giving every candidate set a total order.
func sortByScoreDesc(items []*models.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID > items[j].ID
	})
}
