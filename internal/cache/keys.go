package cache

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// Key namespaces. A transcript:<id> entry and a video:<id> entry form a
// consistency group: invalidating one always evicts both.
const (
	transcriptNamespace = "transcript:"
	videoNamespace      = "video:"
	searchNamespace     = "search:"
)

// TranscriptKey derives the cache key for a transcript record.
func TranscriptKey(prefix, videoID string) string {
	return prefix + transcriptNamespace + videoID
}

// VideoKey derives the cache key for a video metadata record.
func VideoKey(prefix, videoID string) string {
	return prefix + videoNamespace + videoID
}

// SearchKey derives the cache key for a search result set. Queries are
// normalized before hashing so "Go Talks " and "go talks" share an entry.
func SearchKey(prefix, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := md5.Sum([]byte(normalized))
	return prefix + searchNamespace + fmt.Sprintf("%x", sum)[:16]
}
