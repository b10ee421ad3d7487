package panel

import (
	"fmt"
	"strings"

	"github.com/guildforge/guildforge/pkg/stores"
)

// pageSize caps how many entries one rendered group page holds. Groups
// over the cap are split into numbered sub-pages, each independently
// interactive.
const pageSize = 10

// renderPanel produces the panel message content from the enabled entries,
// grouped by GroupKey in first-appearance order.
func renderPanel(entries []stores.ReactionRoleEntry) string {
	var groups []string
	byGroup := make(map[string][]stores.ReactionRoleEntry)
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if _, ok := byGroup[e.GroupKey]; !ok {
			groups = append(groups, e.GroupKey)
		}
		byGroup[e.GroupKey] = append(byGroup[e.GroupKey], e)
	}

	if len(groups) == 0 {
		return "**Role Selection**\nNo roles are available right now."
	}

	var b strings.Builder
	b.WriteString("**Role Selection**\nPick your roles below.\n")
	for _, g := range groups {
		members := byGroup[g]
		pages := (len(members) + pageSize - 1) / pageSize
		for p := 0; p < pages; p++ {
			b.WriteString("\n")
			if pages > 1 {
				fmt.Fprintf(&b, "__%s (%d/%d)__\n", groupTitle(g), p+1, pages)
			} else {
				fmt.Fprintf(&b, "__%s__\n", groupTitle(g))
			}
			end := (p + 1) * pageSize
			if end > len(members) {
				end = len(members)
			}
			for _, e := range members[p*pageSize : end] {
				line := e.Label
				if line == "" {
					line = "<@&" + e.RoleID + ">"
				}
				if e.Emoji != "" {
					line = e.Emoji + " " + line
				}
				b.WriteString(line + "\n")
			}
		}
	}
	return b.String()
}

func groupTitle(key string) string {
	if key == "" {
		return "Roles"
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
