package lint

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize/english"

	"github.com/lintelhq/lintel/pkg/engine"
)

// Result is the outcome of one check pass.
type Result struct {
	// Started is when the pass began.
	Started time.Time
	// Violations holds every reported violation, ordered by file, line,
	// column, and check.
	Violations []engine.Violation
	// Files is the number of files actually checked.
	Files int
	// Skipped is the number of files skipped because their ruleset could
	// not be resolved.
	Skipped int
	// Duration is how long the pass took.
	Duration time.Duration
}

func (r *Result) countBySeverity(sev engine.Severity) int {
	n := 0

	for _, v := range r.Violations {
		if v.Severity == sev {
			n++
		}
	}

	return n
}

// ErrorCount returns the number of error-severity violations.
func (r *Result) ErrorCount() int {
	return r.countBySeverity(engine.SeverityError)
}

// WarningCount returns the number of warning-severity violations.
func (r *Result) WarningCount() int {
	return r.countBySeverity(engine.SeverityWarning)
}

// InfoCount returns the number of info-severity violations.
func (r *Result) InfoCount() int {
	return r.countBySeverity(engine.SeverityInfo)
}

// Clean reports whether the pass found no violations.
func (r *Result) Clean() bool {
	return len(r.Violations) == 0
}

// Summary returns a one-line human summary of the pass.
func (r *Result) Summary() string {
	checked := fmt.Sprintf("checked %s in %s",
		english.Plural(r.Files, "file", ""),
		r.Duration.Round(time.Millisecond),
	)

	if r.Clean() {
		return checked + ": no problems found"
	}

	var counts []string

	if n := r.ErrorCount(); n > 0 {
		counts = append(counts, english.Plural(n, "error", ""))
	}

	if n := r.WarningCount(); n > 0 {
		counts = append(counts, english.Plural(n, "warning", ""))
	}

	if n := r.InfoCount(); n > 0 {
		counts = append(counts, english.Plural(n, "info message", ""))
	}

	return checked + ": found " + english.WordSeries(counts, "and")
}
