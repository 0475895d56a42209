package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
)

// reportUploader is the slice of the Slack API the delivery path needs,
// narrowed so tests can stand in for it.
type reportUploader interface {
	UploadFileV2(params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// DeliverReport uploads the run artifacts to the report channel, attaching
// the run summary to the first upload. Delivery is best effort: the caller
// decides whether a failure matters.
func DeliverReport(api reportUploader, channelID string, artifacts ReportArtifacts, result RunResult) error {
	uploads := []struct {
		path  string
		title string
	}{
		{artifacts.ExcelPath, "PR comment report"},
		{artifacts.PieChartPath, "Comments by team (share)"},
		{artifacts.BarChartPath, "Comments by team (count)"},
	}

	comment := FormatRunSummary(result)
	for i, upload := range uploads {
		info, err := os.Stat(upload.path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", upload.path, err)
		}
		if info.Size() <= 0 {
			return fmt.Errorf("artifact %s is empty", upload.path)
		}

		params := slack.UploadFileV2Parameters{
			File:     upload.path,
			FileSize: int(info.Size()),
			Filename: filepath.Base(upload.path),
			Channel:  channelID,
			Title:    upload.title,
		}
		if i == 0 {
			params.InitialComment = comment
		}
		if _, err := api.UploadFileV2(params); err != nil {
			return fmt.Errorf("uploading %s: %w", filepath.Base(upload.path), err)
		}
		log.Printf("Uploaded %s to channel %s", filepath.Base(upload.path), channelID)
	}
	return nil
}
