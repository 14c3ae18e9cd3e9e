package provider

import "path"

// MatchesBranch reports whether a head branch satisfies a branch filter.
// Filter entries are exact names or glob patterns ("release/*"). An empty
// filter matches every branch.
func MatchesBranch(branch string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, pattern := range filter {
		if pattern == branch {
			return true
		}
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}
