package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/slack-go/slack"
)

func main() {
	ticketsFlag := flag.String("tickets", "", "comma-separated work item ids to analyze")
	configFlag := flag.String("config", "", "path to the config file (overrides CONFIG_PATH)")
	debugFlag := flag.Bool("debug", false, "print run counters after the run")
	watchFlag := flag.Bool("watch", false, "keep running and re-collect on the configured cron schedule")
	flag.Parse()

	if *configFlag != "" {
		os.Setenv("CONFIG_PATH", *configFlag)
	}

	ticketIDs, err := parseTicketIDs(*ticketsFlag)
	if err != nil {
		log.Fatalf("Invalid -tickets: %v", err)
	}

	cfg := LoadConfig()
	configureLogOutput(cfg.LogFile)

	log.Printf("Config loaded. Org=%s Project=%s APIVersion=%s Teams=%d Tickets=%d",
		cfg.Organization, cfg.Project, cfg.APIVersion, len(cfg.Teams), len(ticketIDs))

	filter, err := NewNoiseFilter(cfg.ActiveNoisePatterns())
	if err != nil {
		log.Fatalf("Invalid noise patterns: %v", err)
	}
	roster := NewTeamRoster(cfg.Teams)
	source := NewAzureDevOpsClient(cfg, NewAPIClient(cfg))
	pipeline := NewPipeline(source, filter, roster)

	var archive *sql.DB
	if cfg.ArchiveConfigured() {
		archive, err = InitArchiveDB(cfg.ArchiveDBPath)
		if err != nil {
			log.Fatalf("Failed to init archive database: %v", err)
		}
		defer archive.Close()
		log.Printf("Archive database ready at %s", cfg.ArchiveDBPath)
	}

	var api *slack.Client
	if cfg.SlackConfigured() {
		api = slack.New(cfg.SlackBotToken)
	}

	collect := func() (RunResult, error) {
		return collectAndReport(cfg, pipeline, ticketIDs, archive, api, *debugFlag)
	}

	if *watchFlag {
		if err := StartCollectScheduler(cfg, collect, schedulerPoster(api)); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutdown signal received")
		return
	}

	result, err := collect()
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if len(result.Rows) == 0 && len(result.Failures) == len(ticketIDs) {
		os.Exit(1)
	}
}

// schedulerPoster keeps the nil *slack.Client from turning into a non-nil
// interface inside the scheduler.
func schedulerPoster(api *slack.Client) messagePoster {
	if api == nil {
		return nil
	}
	return api
}

// collectAndReport executes one pipeline run and writes every configured
// output for it. Ticket-level fetch failures are surfaced in the summary,
// not returned; the error covers output writing only.
func collectAndReport(cfg Config, pipeline *Pipeline, ticketIDs []int, archive *sql.DB, api *slack.Client, debug bool) (RunResult, error) {
	startedAt := time.Now()
	result := pipeline.Run(ticketIDs)
	finishedAt := time.Now()

	if debug {
		fmt.Println("\nRun counters:")
		fmt.Print(FormatRunStats(result.Stats))
	}

	if len(result.Failures) > 0 {
		ids := make([]string, len(result.Failures))
		for i, failure := range result.Failures {
			ids[i] = strconv.Itoa(failure.TicketID)
		}
		log.Printf("%d ticket(s) failed: %s", len(result.Failures), strings.Join(ids, ", "))
	}
	log.Printf("Run complete: %s", FormatRunSummary(result))

	if len(result.Rows) == 0 {
		fmt.Println("No meaningful comments found.")
		return result, nil
	}

	artifacts, err := WriteReportArtifacts(result.Rows, cfg.ReportOutputDir)
	if err != nil {
		return result, err
	}
	fmt.Printf("Excel report generated: %s\n", artifacts.ExcelPath)
	fmt.Printf("Charts generated: %s, %s\n", artifacts.PieChartPath, artifacts.BarChartPath)

	if archive != nil {
		runID, err := ArchiveRun(archive, result, ticketIDs, startedAt, finishedAt)
		if err != nil {
			return result, fmt.Errorf("archiving run: %w", err)
		}
		log.Printf("Run archived (id=%d, rows=%d)", runID, len(result.Rows))
	}

	if api != nil {
		if err := DeliverReport(api, cfg.ReportChannelID, artifacts, result); err != nil {
			log.Printf("Slack delivery error: %v", err)
		}
	}

	return result, nil
}

// parseTicketIDs splits a comma-separated id list, ignoring empty entries.
func parseTicketIDs(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("at least one ticket id is required")
	}

	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("'%s' is not a positive ticket id", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one ticket id is required")
	}
	return ids, nil
}

// configureLogOutput mirrors log output into cfg.LogFile when set, keeping
// stderr as the primary stream.
func configureLogOutput(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Could not open log file %s: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}
