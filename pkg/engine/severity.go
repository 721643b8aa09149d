package engine

import (
	"errors"
	"strings"
)

// Severity classifies how serious a [Violation] is.
type Severity string

const (
	SeverityIgnore  Severity = "ignore"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ErrUnknownSeverity is returned when a severity string is not recognized.
var ErrUnknownSeverity = errors.New("unknown severity")

// AllSeverities lists every valid severity, from least to most severe.
var AllSeverities = []string{
	string(SeverityIgnore),
	string(SeverityInfo),
	string(SeverityWarning),
	string(SeverityError),
}

// GetSeverity parses a severity string, case-insensitively.
func GetSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(s)) {
	case SeverityIgnore:
		return SeverityIgnore, nil
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityError:
		return SeverityError, nil
	}

	return "", ErrUnknownSeverity
}
