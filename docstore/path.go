package docstore

import "strings"

// JoinPath joins path segments with "/", skipping empty segments.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// ParentPath returns the path with its last segment removed, or "" if the
// path has a single segment.
func ParentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// LastSegment returns the final segment of a path: the document ID for a
// document path, the collection name for a collection path.
func LastSegment(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}
