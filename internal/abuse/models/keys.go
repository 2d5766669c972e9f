package models

import (
	"fmt"
	"strings"
)

// String returns the formatted key for storage lookup. Segments are
// sanitized so user-controlled identities cannot collide with adjacent
// buckets.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s",
		SanitizeKeySegment(k.Route),
		SanitizeKeySegment(k.Identity),
		SanitizeKeySegment(k.ClientIP),
	)
}

// SanitizeKeySegment escapes delimiter characters in key segments to
// prevent collision attacks where identifiers containing ':' could
// manipulate adjacent rate limit buckets.
//
// Escape rules (order matters):
//  1. Escape '_' to '__' (escape the escape character first)
//  2. Escape ':' to '_c' (escape the delimiter)
//
// No two distinct inputs produce the same sanitized output.
func SanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
