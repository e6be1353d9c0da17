// Package shard derives lookup index sub-collections from allocated IDs.
package shard

import "strings"

// Name returns the index sub-collection for an allocated ID: "DNL_" plus
// the ID's type prefix. IDs without a prefix fall back to defaultShard.
// The result is a pure function of the ID, so entries for one type never
// land in another type's shard.
func Name(id, defaultShard string) string {
	p := Prefix(id)
	if p == "" {
		return defaultShard
	}
	return "DNL_" + p
}

// Prefix returns the substring of id before its first '-', or "" when the
// ID carries no separator or starts with one.
func Prefix(id string) string {
	i := strings.IndexByte(id, '-')
	if i <= 0 {
		return ""
	}
	return id[:i]
}
