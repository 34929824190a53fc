package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

var (
	passColor   = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	faintColor  = color.New(color.Faint)
	headerColor = color.New(color.Bold)
	valueColor  = color.New(color.FgCyan)
)

const (
	passMark = "✓"
	failMark = "✗"
)

// printReport writes one line per scenario, the failure context of each
// failed one, and a totals line.
func printReport(w io.Writer, report scenario.Report) {
	for _, res := range report.Results {
		if res.Passed() {
			_, _ = passColor.Fprintf(w, "%s %s", passMark, res.Label)
			_, _ = faintColor.Fprintf(w, " %s\n", res.Duration.Round(time.Millisecond))
			continue
		}
		_, _ = failColor.Fprintf(w, "%s %s\n", failMark, res.Label)
		printFailure(w, res)
	}

	fmt.Fprintln(w)
	total := len(report.Results)
	summary := fmt.Sprintf("%d passed, %d failed, %d total", report.Passed(), report.Failed(), total)
	if report.OK() {
		_, _ = passColor.Fprintln(w, summary)
	} else {
		_, _ = failColor.Fprintln(w, summary)
	}
	_, _ = faintColor.Fprintf(w, "run %s in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
}

func printFailure(w io.Writer, res scenario.Result) {
	const indent = "    "
	line := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, faintColor.Sprint(key+":"), valueColor.Sprint(value))
	}

	line("code", string(res.Code()))
	coded, ok := errs.As(res.Err)
	if !ok {
		line("error", res.Err.Error())
	} else {
		line("message", coded.Message)
		line("selector", coded.Selector)
		line("expected", coded.Expected)
		line("observed", coded.Observed)
		if coded.Timeout > 0 {
			line("timeout", coded.Timeout.String())
		}
		if coded.Snapshot != "" {
			fmt.Fprintf(w, "%s%s\n", indent, faintColor.Sprint("snapshot:"))
			for _, l := range strings.Split(strings.TrimRight(coded.Snapshot, "\n"), "\n") {
				fmt.Fprintf(w, "%s  %s\n", indent, l)
			}
		}
	}
	for _, loc := range res.Artifacts {
		line("artifact", loc)
	}
}
