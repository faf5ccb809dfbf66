package config

import (
	"sort"
	"strings"
)

// DepartmentGroups maps a staff department (IT, MECH, ...) to the student
// sub-department codes its staff review. Group keys are matched case-insensitively.
type DepartmentGroups map[string][]string

func DefaultDepartmentGroups() DepartmentGroups {
	return DepartmentGroups{
		"IT":   {"FEIT", "SEIT", "TEIT", "BEIT"},
		"MECH": {"FEMECH", "SEMECH", "TEMECH", "BEMECH"},
	}
}

func NewDepartmentGroups(raw map[string][]string) DepartmentGroups {
	out := make(DepartmentGroups, len(raw))
	for group, members := range raw {
		key := strings.ToUpper(strings.TrimSpace(group))
		if key == "" {
			continue
		}
		for _, m := range members {
			if m = strings.TrimSpace(m); m != "" {
				out[key] = append(out[key], m)
			}
		}
	}
	return out
}

// Members returns the sub-departments of group, or nil when group is not configured.
func (g DepartmentGroups) Members(group string) []string {
	return g[strings.ToUpper(strings.TrimSpace(group))]
}

// Expand turns a list of department or group codes into the set of student
// department codes they cover. A group expands to its members; any other
// code stands for itself. Blank entries are dropped. The result is sorted.
func (g DepartmentGroups) Expand(codes []string) []string {
	seen := map[string]struct{}{}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if members := g.Members(code); len(members) > 0 {
			for _, m := range members {
				seen[m] = struct{}{}
			}
			continue
		}
		seen[code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
