package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cursorhide/cursorhide/internal/database"
	"github.com/cursorhide/cursorhide/internal/models"
	"github.com/cursorhide/cursorhide/pkg/utils"

	"github.com/pkg/errors"
)

// Reporter summarises the visibility journal
type Reporter struct {
	repo *database.Repository
	now  func() time.Time
}

func New(repo *database.Repository) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	now := r.now()
	period, err := Period(periodType, now)
	if err != nil {
		return nil, err
	}

	counts, err := r.repo.CountByActionSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count transitions")
	}

	report := &models.Report{
		Period:      *period,
		GeneratedAt: now,
	}
	for _, c := range counts {
		switch c.Action {
		case models.ActionHide:
			report.Hides = c.Count
		case models.ActionShow:
			report.Shows = c.Count
		case models.ActionRestore:
			report.Restores = c.Count
		}
	}

	report.Errors, err = r.repo.CountErrorsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count errors")
	}

	if err := r.hiddenTime(report, now); err != nil {
		return nil, err
	}

	return report, nil
}

// hiddenTime pairs every hide with the next show or restore. A hide carried
// over from before the period counts from the period start, one still open
// counts until now.
func (r *Reporter) hiddenTime(report *models.Report, now time.Time) error {
	start, end := report.Period.Start, report.Period.End
	if now.Before(end) {
		end = now
	}

	var since time.Time
	open := false

	prev, err := r.repo.GetLastBefore(start)
	if err != nil {
		return errors.Wrap(err, "failed to get previous transition")
	}
	if prev != nil && prev.Action == models.ActionHide {
		since, open = start, true
	}

	events, err := r.repo.GetEventsSince(start)
	if err != nil {
		return errors.Wrap(err, "failed to get transitions")
	}

	closeAt := func(t time.Time) {
		d := t.Sub(since).Seconds()
		report.HiddenSeconds += d
		if d > report.LongestHiddenSecs {
			report.LongestHiddenSecs = d
		}
		open = false
	}

	for _, ev := range events {
		if !ev.Timestamp.Before(end) {
			break
		}
		switch ev.Action {
		case models.ActionHide:
			if !open {
				since, open = ev.Timestamp, true
			}
		case models.ActionShow, models.ActionRestore:
			if open {
				closeAt(ev.Timestamp)
			}
		}
	}

	if open {
		report.CurrentlyHidden = end.Equal(now)
		closeAt(end)
	}
	return nil
}

// Period calculates the time range containing now
func Period(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pointer Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))

	if report.Hides == 0 && report.Shows == 0 && report.Restores == 0 && report.Errors == 0 {
		b.WriteString("No pointer activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-20s %10d\n", "Hides", report.Hides)
	fmt.Fprintf(&b, "%-20s %10d\n", "Shows", report.Shows)
	fmt.Fprintf(&b, "%-20s %10d\n", "Restores", report.Restores)
	fmt.Fprintf(&b, "%-20s %10d\n", "Errors", report.Errors)
	fmt.Fprintf(&b, "%-20s %10s\n", "Hidden total", utils.FormatRoundedUnit(utils.Seconds(report.HiddenSeconds)))
	fmt.Fprintf(&b, "%-20s %10s\n", "Longest hidden", utils.FormatRoundedUnit(utils.Seconds(report.LongestHiddenSecs)))

	if report.CurrentlyHidden {
		b.WriteString("\nPointer is currently hidden.\n")
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
