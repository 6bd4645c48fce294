package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"imgresponsiver/history"
)

// PrintSummary writes a short colored summary of report to w.
func PrintSummary(w io.Writer, report Report, runErr error) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	header.Fprintf(w, "━━━ %s ━━━\n", report.Command)

	if report.Command == CommandRun {
		fmt.Fprintf(w, "  images     %d\n", report.Images)
		fmt.Fprintf(w, "  variants   %d generated, %d already present",
			report.VariantsGenerated, report.VariantsSkipped)
		if report.BytesWritten > 0 {
			dim.Fprintf(w, " (%s written)", humanize.IBytes(uint64(report.BytesWritten)))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  documents  %d scanned, %d changed, %d pictures\n",
		report.HTML.Documents, report.HTML.Changed, report.HTML.Pictures)
	dim.Fprintf(w, "  took %v\n", report.Duration.Round(time.Millisecond))

	fmt.Fprintln(w)
	if runErr != nil {
		color.New(color.FgRed, color.Bold).Fprintf(w, "✗ %s failed: ", report.Command)
		fmt.Fprintln(w, runErr.Error())
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(w, "✓ %s complete\n", report.Command)
}

// PrintHistory writes one line per run, newest first as given.
func PrintHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		color.New(color.FgHiBlack).Fprintln(w, "No runs recorded")
		return
	}

	for _, run := range runs {
		var clr *color.Color
		var icon string
		switch run.Status {
		case history.StatusSuccess:
			icon, clr = "✓", color.New(color.FgGreen)
		case history.StatusCancelled:
			icon, clr = "○", color.New(color.FgYellow)
		default:
			icon, clr = "✗", color.New(color.FgRed)
		}

		clr.Fprintf(w, "%s %-8s", icon, run.Command)
		fmt.Fprintf(w, " %s  %d images, %d generated, %d skipped, %s, %d html changed",
			humanize.Time(run.StartedAt),
			run.Images, run.VariantsGenerated, run.VariantsSkipped,
			humanize.IBytes(uint64(run.BytesWritten)),
			run.HTMLChanged,
		)
		color.New(color.FgHiBlack).Fprintf(w, "  %s (%v)", run.ID, run.Duration().Round(time.Millisecond))
		fmt.Fprintln(w)
		if run.Error != "" {
			color.New(color.FgRed).Fprintf(w, "    └─ %s\n", run.Error)
		}
	}
}
