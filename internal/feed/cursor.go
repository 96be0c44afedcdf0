// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cursor codec for opaque pagination tokens.
//
// The for-you feed paginates on score, the following feed on
// timestamp. Either way the token is unpadded base64url of
// "<ordinal>:<id>" and is never inspected by clients. A token that
// fails to decode for any reason (bad base64, wrong shape, unparsable
// ordinal) is treated as absent: the caller falls back to the first
// page rather than surfacing an error.
//
// Page filters are strictly less-than on the decoded ordinal, so
// identical-ordinal items at a page boundary can be skipped. That is
// the documented contract of this codec, not a defect.

// EncodeScoreCursor encodes a (score, id) pair as an opaque token.
func EncodeScoreCursor(score float64, id string) string {
	raw := strconv.FormatFloat(score, 'f', -1, 64) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeScoreCursor decodes a score cursor. The boolean is false when
// the token is absent or invalid in any way.
func DecodeScoreCursor(token string) (score float64, id string, ok bool) {
	if token == "" {
		return 0, "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, "", false
	}
	score, err = strconv.ParseFloat(parts[0], 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, "", false
	}
	return score, parts[1], true
}

// EncodeTimeCursor encodes a (timestamp, id) pair as an opaque token.
// The timestamp keeps nanosecond precision so chronological pages
// never drift on sub-second boundaries.
func EncodeTimeCursor(t time.Time, id string) string {
	raw := t.UTC().Format(time.RFC3339Nano) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeTimeCursor decodes a timestamp cursor. RFC3339 timestamps
// contain colons, so the id is split off at the final colon; item ids
// are UUIDs and never contain one.
func DecodeTimeCursor(token string) (ts time.Time, id string, ok bool) {
	if token == "" {
		return time.Time{}, "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", false
	}
	s := string(raw)
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return time.Time{}, "", false
	}
	ts, err = time.Parse(time.RFC3339Nano, s[:idx])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, s[idx+1:], true
}
