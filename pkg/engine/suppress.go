package engine

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// SuppressionFilterName is the module name of the suppression filter.
const SuppressionFilterName = "SuppressionFilter"

// Filter decides whether a violation is reported.
type Filter interface {
	// Accept reports whether the violation should be kept.
	Accept(v Violation) bool
}

// suppressionFilter drops violations matched by a suppressions document.
// A missing or unreadable suppressions file leaves the filter inert; a
// malformed one is a configuration error.
type suppressionFilter struct {
	suppressions []*suppression
}

type suppression struct {
	files  *regexp.Regexp
	checks *regexp.Regexp
	lines  []lineRange
}

type lineRange struct {
	lo int
	hi int
}

type xmlSuppressions struct {
	XMLName  xml.Name      `xml:"suppressions"`
	Suppress []xmlSuppress `xml:"suppress"`
}

type xmlSuppress struct {
	Files  string `xml:"files,attr"`
	Checks string `xml:"checks,attr"`
	Lines  string `xml:"lines,attr"`
}

func newSuppressionFilter(cfg Config) (Filter, error) {
	a := newAttrReader(cfg)

	path := a.String("file", "")
	if path == "" {
		return nil, configErrorf("module %s: attribute file is required", cfg.Name())
	}

	err := a.Finish()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from the ruleset configuration.
	if err != nil {
		// Suppression paths get resolved before the checker is built, so
		// anything still unreadable here is reported and skipped.
		slog.Warn("suppressions file is not readable, no suppressions will apply",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return &suppressionFilter{}, nil
	}

	return parseSuppressions(data)
}

func parseSuppressions(data []byte) (*suppressionFilter, error) {
	var doc xmlSuppressions

	err := xml.Unmarshal(data, &doc)
	if err != nil {
		return nil, configErrorf("parse suppressions: %w", err)
	}

	f := &suppressionFilter{}

	for i, s := range doc.Suppress {
		if s.Files == "" && s.Checks == "" {
			return nil, configErrorf("suppress entry %d: requires a files or checks attribute", i+1)
		}

		sup := &suppression{}

		if s.Files != "" {
			sup.files, err = regexp.Compile(s.Files)
			if err != nil {
				return nil, configErrorf("suppress entry %d: attribute files: %w", i+1, err)
			}
		}

		if s.Checks != "" {
			sup.checks, err = regexp.Compile(s.Checks)
			if err != nil {
				return nil, configErrorf("suppress entry %d: attribute checks: %w", i+1, err)
			}
		}

		if s.Lines != "" {
			sup.lines, err = parseLineRanges(s.Lines)
			if err != nil {
				return nil, configErrorf("suppress entry %d: attribute lines: %w", i+1, err)
			}
		}

		f.suppressions = append(f.suppressions, sup)
	}

	return f, nil
}

// parseLineRanges parses a "1,5-10,42" style line list.
func parseLineRanges(s string) ([]lineRange, error) {
	var ranges []lineRange

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, found := strings.Cut(part, "-")
		if found {
			loN, loErr := strconv.Atoi(strings.TrimSpace(lo))
			hiN, hiErr := strconv.Atoi(strings.TrimSpace(hi))

			if loErr != nil || hiErr != nil {
				return nil, fmt.Errorf("%q is not a line range", part)
			}

			if hiN < loN {
				loN, hiN = hiN, loN
			}

			ranges = append(ranges, lineRange{lo: loN, hi: hiN})

			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a line number", part)
		}

		ranges = append(ranges, lineRange{lo: n, hi: n})
	}

	if len(ranges) == 0 {
		return nil, errors.New("empty lines attribute")
	}

	return ranges, nil
}

// Accept reports whether v survives every suppression.
func (f *suppressionFilter) Accept(v Violation) bool {
	for _, s := range f.suppressions {
		if s.matches(v) {
			return false
		}
	}

	return true
}

func (s *suppression) matches(v Violation) bool {
	if s.files != nil && !s.files.MatchString(v.File) {
		return false
	}

	if s.checks != nil && !s.checks.MatchString(v.Check) {
		return false
	}

	if len(s.lines) > 0 && !s.containsLine(v.Line) {
		return false
	}

	return true
}

func (s *suppression) containsLine(line int) bool {
	for _, r := range s.lines {
		if line >= r.lo && line <= r.hi {
			return true
		}
	}

	return false
}
