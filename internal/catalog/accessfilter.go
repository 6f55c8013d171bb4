package catalog

import "strings"

// OwnerPrincipalField is the catalog attribute holding the principals
// allowed to read an entity.
const OwnerPrincipalField = "OwnerPrincipal"

// MatchNothing is the filter applied when an identity resolves to no
// principals at all: no groups and no public principal configured. The
// original service omitted the filter in that case, silently granting
// unrestricted access; the gateway fails closed instead.
const MatchNothing = "-*:*"

// AccessFilter builds the per-request access-control predicate injected
// into every catalog query.
type AccessFilter struct {
	SuperOwner  string
	PublicOwner string
}

// Build returns the filter-query fragment restricting results to rows
// whose OwnerPrincipal intersects the given groups or the public
// principal. An empty string means unrestricted (super-owner identity).
func (f AccessFilter) Build(groups []string) string {
	superOwner := strings.TrimSpace(f.SuperOwner)
	if superOwner != "" {
		for _, group := range groups {
			if group == superOwner {
				return ""
			}
		}
	}

	principals := make([]string, 0, len(groups)+1)
	seen := make(map[string]struct{}, len(groups)+1)
	add := func(principal string) {
		principal = strings.TrimSpace(principal)
		if principal == "" {
			return
		}
		if _, ok := seen[principal]; ok {
			return
		}
		seen[principal] = struct{}{}
		principals = append(principals, principal)
	}

	add(f.PublicOwner)
	for _, group := range groups {
		add(group)
	}

	if len(principals) == 0 {
		return MatchNothing
	}

	quoted := make([]string, len(principals))
	for i, principal := range principals {
		quoted[i] = `"` + principal + `"`
	}
	return OwnerPrincipalField + ":(" + strings.Join(quoted, " OR ") + ")"
}
