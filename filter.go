package main

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// systemActorPrefix marks comments authored by the platform service identity
// rather than a person. Matched as a case-insensitive prefix because the
// full unique name carries an instance-specific suffix.
const systemActorPrefix = "microsoft.visualstudio.services.tfs"

// minCommentRunes is the shortest trimmed comment still worth keeping.
const minCommentRunes = 4

// defaultNoisePatterns is the denylist of automated status phrasing. The
// entries are joined into one case-insensitive alternation, so each entry is
// a regex fragment rather than an exact phrase. Anything not matching is
// presumed to be genuine reviewer feedback.
var defaultNoisePatterns = []string{
	`policy status has been updated`,
	`voted`,
	`updated the pull request status to`,
	`joined as a reviewer`,
	`Conflicts are resolved`,
	`Submitted conflict resolution`,
	`from the reviewers`,
	`a required reviewer`,
	`an optional reviewer`,
	`as a reviewer`,
	`set auto-complete`,
	`is changed to be a required reviewer`,
	`SonarQube`,
	`voted\s+\d+`,
	`the reference refs/heads/.*was updated`,
	`updated the pull request status to Abandoned`,
	`\b(merged|abandoned|completed)\b`,
}

// NoiseFilter decides whether a comment is automated chatter. The pattern
// set is fixed at construction and IsNoise does no I/O, so the same input
// always yields the same verdict.
type NoiseFilter struct {
	statusRegex *regexp.Regexp
}

func NewNoiseFilter(patterns []string) (*NoiseFilter, error) {
	if len(patterns) == 0 {
		patterns = defaultNoisePatterns
	}
	combined := "(?i)" + strings.Join(patterns, "|")
	re, err := regexp.Compile(combined)
	if err != nil {
		return nil, fmt.Errorf("compiling noise patterns: %w", err)
	}
	return &NoiseFilter{statusRegex: re}, nil
}

// IsNoise reports whether a comment should be dropped. Checks run in order:
// empty or too-short body, system-actor author, then the pattern denylist.
func (f *NoiseFilter) IsNoise(text, author string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minCommentRunes {
		return true
	}
	if strings.HasPrefix(strings.ToLower(author), systemActorPrefix) {
		return true
	}
	return f.statusRegex.MatchString(text)
}
