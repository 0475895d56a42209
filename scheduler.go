package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// messagePoster is the slice of the Slack API the scheduler needs.
type messagePoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// StartCollectScheduler starts a cron-based loop that re-runs collection and
// posts each run's summary to the report channel when Slack is configured.
// The schedule is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week). Examples: "0 9 * * *" (daily 9am),
// "0 9 * * 1-5" (weekdays 9am).
func StartCollectScheduler(cfg Config, collect func() (RunResult, error), api messagePoster) error {
	schedule := strings.TrimSpace(cfg.CollectSchedule)
	if schedule == "" {
		return fmt.Errorf("collect_schedule is not set")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid collect_schedule '%s': %w", schedule, err)
	}

	log.Printf("Collection scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next collection at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, runErr := collect()
			summary := FormatRunSummary(result)
			if runErr != nil {
				log.Printf("Scheduled collection error: %v", runErr)
			}
			log.Printf("Scheduled collection complete: %s", summary)

			if api != nil && cfg.ReportChannelID != "" {
				_, _, postErr := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(
					fmt.Sprintf("Collection complete: %s", summary), false))
				if postErr != nil {
					log.Printf("Scheduled collection post error: %v", postErr)
				}
			}
		}
	}()
	return nil
}
