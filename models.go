package main

import (
	"fmt"
	"sort"
	"strings"
)

// ClassifiedComment is one human review comment that survived the noise
// filter, attributed to the ticket and pull request it was found on.
type ClassifiedComment struct {
	TicketID      int
	RepoID        string
	PullRequestID string
	Author        string
	Team          string
	Comment       string
	CreatedDate   string
}

// TeamSummary is the per-team roll-up of kept comments.
type TeamSummary struct {
	Team         string
	CommentCount int
}

// TicketFailure records a ticket whose fetch failed partway through a run.
type TicketFailure struct {
	TicketID int
	Err      error
}

// Counter names reported after every run. tickets_processed counts only
// tickets that completed without error; every comment seen lands in exactly
// one of comments_filtered or comments_kept.
const (
	statTicketsProcessed = "tickets_processed"
	statCommentsSeen     = "comments_seen"
	statCommentsFiltered = "comments_filtered"
	statCommentsKept     = "comments_kept"
)

var statOrder = []string{statTicketsProcessed, statCommentsSeen, statCommentsFiltered, statCommentsKept}

// RunStats holds the named counters for a single run. Counters only ever go
// up; a fresh run starts from a fresh RunStats.
type RunStats map[string]int

func NewRunStats() RunStats {
	stats := make(RunStats, len(statOrder))
	for _, name := range statOrder {
		stats[name] = 0
	}
	return stats
}

func (s RunStats) Increment(name string) {
	s[name]++
}

// RunResult is everything one pipeline run produced: the kept comments in
// processing order, the counters, and the tickets that failed.
type RunResult struct {
	Rows     []ClassifiedComment
	Stats    RunStats
	Failures []TicketFailure
}

// SummarizeByTeam counts kept comments per team label, sorted by label so the
// summary is stable across runs.
func SummarizeByTeam(rows []ClassifiedComment) []TeamSummary {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Team]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	summary := make([]TeamSummary, 0, len(labels))
	for _, label := range labels {
		summary = append(summary, TeamSummary{Team: label, CommentCount: counts[label]})
	}
	return summary
}

// FormatRunSummary renders a one-line human summary of a run.
func FormatRunSummary(result RunResult) string {
	msg := fmt.Sprintf("Processed %d tickets: %d comments seen, %d filtered, %d kept",
		result.Stats[statTicketsProcessed],
		result.Stats[statCommentsSeen],
		result.Stats[statCommentsFiltered],
		result.Stats[statCommentsKept])
	if len(result.Failures) > 0 {
		msg += fmt.Sprintf(" (%d tickets failed)", len(result.Failures))
	}
	return msg
}

// FormatRunStats renders the counters one per line, known counters first in a
// fixed order, anything else after them sorted by name.
func FormatRunStats(stats RunStats) string {
	var b strings.Builder
	known := make(map[string]bool, len(statOrder))
	for _, name := range statOrder {
		known[name] = true
		fmt.Fprintf(&b, "%-20s: %d\n", name, stats[name])
	}

	var extras []string
	for name := range stats {
		if !known[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		fmt.Fprintf(&b, "%-20s: %d\n", name, stats[name])
	}
	return b.String()
}
