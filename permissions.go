package tokenauth

import "strings"

// Authority matching implements the asterisk wildcard scheme used by
// permission checks:
//
//   - a granted "view:user.*" matches any check for "view:user.<id>"
//   - a granted "view:user.1,2,3" matches "view:user.2" but not
//     "view:user.42"
//   - anything else requires an exact match
//
// The wildcard and id list always sit after the last dot; the part before
// it must match exactly.

// AuthorityMatches reports whether a single granted authority satisfies the
// required one.
func AuthorityMatches(granted, required string) bool {
	if granted == required {
		return true
	}

	dot := strings.LastIndex(granted, ".")
	if dot < 0 {
		return false
	}
	base, tail := granted[:dot+1], granted[dot+1:]

	if !strings.HasPrefix(required, base) {
		return false
	}
	requiredTail := required[len(base):]
	if requiredTail == "" {
		return false
	}

	if tail == "*" {
		return true
	}

	if strings.Contains(tail, ",") {
		for _, id := range strings.Split(tail, ",") {
			if strings.TrimSpace(id) == requiredTail {
				return true
			}
		}
	}

	return false
}

// HasAuthority reports whether any granted authority satisfies the required
// one.
func HasAuthority(granted []string, required string) bool {
	for _, g := range granted {
		if AuthorityMatches(g, required) {
			return true
		}
	}
	return false
}
