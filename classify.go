package main

import "strings"

// teamOther is the catch-all label for authors who belong to no configured
// team.
const teamOther = "other"

// TeamRoster maps author identities to team labels. Configuration order is
// precedence: when an author is listed in several teams, the earliest team
// wins.
type TeamRoster struct {
	labels  []string
	members []map[string]bool
}

func NewTeamRoster(teams []Team) *TeamRoster {
	roster := &TeamRoster{}
	for _, team := range teams {
		set := make(map[string]bool, len(team.Members))
		for _, member := range team.Members {
			member = strings.ToLower(strings.TrimSpace(member))
			if member != "" {
				set[member] = true
			}
		}
		roster.labels = append(roster.labels, team.Label)
		roster.members = append(roster.members, set)
	}
	return roster
}

// Classify returns the label of the first team whose roster contains the
// author. Every author maps to exactly one label; unmatched authors get the
// catch-all.
func (r *TeamRoster) Classify(author string) string {
	author = strings.ToLower(strings.TrimSpace(author))
	for i, set := range r.members {
		if set[author] {
			return r.labels[i]
		}
	}
	return teamOther
}

// Labels returns the configured team labels in precedence order.
func (r *TeamRoster) Labels() []string {
	return append([]string(nil), r.labels...)
}
