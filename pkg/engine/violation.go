package engine

// Violation is a single finding reported during an audit.
type Violation struct {
	// File is the path of the file the violation was found in.
	File string
	// Check is the name of the check (or module) that produced the violation.
	Check string
	// Message describes the violation.
	Message string
	// Severity classifies the violation.
	Severity Severity
	// Line is the 1-based line number of the violation.
	Line int
	// Column is the 1-based column of the violation, or 0 if it applies to
	// the whole line.
	Column int
}
