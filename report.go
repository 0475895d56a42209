package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	excelReportName = "pr_comment_report.xlsx"
	pieChartName    = "comments_by_team_pie.png"
	barChartName    = "comments_by_team_bar.png"

	detailSheetName  = "Detailed Comments"
	summarySheetName = "Team Summary"
)

// ReportArtifacts holds the paths of everything one run wrote to disk.
type ReportArtifacts struct {
	ExcelPath    string
	PieChartPath string
	BarChartPath string
}

var detailHeader = []interface{}{"ticket_id", "repo_id", "pr_id", "author", "team", "comment", "created_date"}

// WriteReportArtifacts renders the workbook and both charts into outputDir,
// creating the directory if needed. Callers skip this entirely for runs that
// kept no comments.
func WriteReportArtifacts(rows []ClassifiedComment, outputDir string) (ReportArtifacts, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return ReportArtifacts{}, err
	}

	summary := SummarizeByTeam(rows)
	artifacts := ReportArtifacts{
		ExcelPath:    filepath.Join(outputDir, excelReportName),
		PieChartPath: filepath.Join(outputDir, pieChartName),
		BarChartPath: filepath.Join(outputDir, barChartName),
	}

	if err := writeExcelReport(artifacts.ExcelPath, rows, summary); err != nil {
		return ReportArtifacts{}, fmt.Errorf("writing excel report: %w", err)
	}
	if err := writePieChart(artifacts.PieChartPath, summary); err != nil {
		return ReportArtifacts{}, fmt.Errorf("writing pie chart: %w", err)
	}
	if err := writeBarChart(artifacts.BarChartPath, summary); err != nil {
		return ReportArtifacts{}, fmt.Errorf("writing bar chart: %w", err)
	}
	return artifacts, nil
}

// writeExcelReport builds the two-sheet workbook: every kept comment on the
// detail sheet, the per-team counts on the summary sheet.
func writeExcelReport(path string, rows []ClassifiedComment, summary []TeamSummary) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", detailSheetName); err != nil {
		return err
	}
	if err := book.SetSheetRow(detailSheetName, "A1", &detailHeader); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.TicketID, row.RepoID, row.PullRequestID,
			row.Author, row.Team, row.Comment, row.CreatedDate,
		}
		if err := book.SetSheetRow(detailSheetName, cell, &values); err != nil {
			return err
		}
	}

	if _, err := book.NewSheet(summarySheetName); err != nil {
		return err
	}
	summaryHeader := []interface{}{"team", "comment_count"}
	if err := book.SetSheetRow(summarySheetName, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, entry := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{entry.Team, entry.CommentCount}
		if err := book.SetSheetRow(summarySheetName, cell, &values); err != nil {
			return err
		}
	}

	return book.SaveAs(path)
}
