package main

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InitArchiveDB opens (creating if needed) the archive database. The archive
// is append-only output: runs are inserted and never read back by the tool.
func InitArchiveDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at        DATETIME NOT NULL,
		finished_at       DATETIME NOT NULL,
		tickets           TEXT NOT NULL,
		tickets_processed INTEGER NOT NULL DEFAULT 0,
		comments_seen     INTEGER NOT NULL DEFAULT 0,
		comments_filtered INTEGER NOT NULL DEFAULT 0,
		comments_kept     INTEGER NOT NULL DEFAULT 0,
		failures          INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS classified_comments (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       INTEGER NOT NULL,
		ticket_id    INTEGER NOT NULL,
		repo_id      TEXT NOT NULL,
		pr_id        TEXT NOT NULL,
		author       TEXT NOT NULL,
		team         TEXT NOT NULL,
		comment      TEXT NOT NULL,
		created_date TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_classified_comments_run ON classified_comments(run_id);
	CREATE INDEX IF NOT EXISTS idx_classified_comments_team ON classified_comments(team);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return db, nil
}

// ArchiveRun appends one run row plus every kept comment in a single
// transaction and returns the new run id.
func ArchiveRun(db *sql.DB, result RunResult, ticketIDs []int, startedAt, finishedAt time.Time) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, finished_at, tickets, tickets_processed, comments_seen, comments_filtered, comments_kept, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		startedAt, finishedAt, joinTicketIDs(ticketIDs),
		result.Stats[statTicketsProcessed], result.Stats[statCommentsSeen],
		result.Stats[statCommentsFiltered], result.Stats[statCommentsKept],
		len(result.Failures),
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO classified_comments (run_id, ticket_id, repo_id, pr_id, author, team, comment, created_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range result.Rows {
		_, err := stmt.Exec(
			runID, row.TicketID, row.RepoID, row.PullRequestID,
			row.Author, row.Team, row.Comment, row.CreatedDate,
		)
		if err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

func joinTicketIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
