package engine

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/cel-go/cel"

	"github.com/lintelhq/lintel/pkg/expr"
)

// Module names of the built-in checks.
const (
	CheckLineLength         = "LineLength"
	CheckTrailingWhitespace = "TrailingWhitespace"
	CheckTabCharacter       = "FileTabCharacter"
	CheckRegexpSingleline   = "RegexpSingleline"
	CheckNewlineAtEndOfFile = "NewlineAtEndOfFile"
	CheckFileLength         = "FileLength"
	CheckExpression         = "Expression"
)

// FileCheck inspects one file and returns any violations found.
// Implementations must be safe for concurrent use once built.
type FileCheck interface {
	// Name returns the check's module name.
	Name() string
	// Check runs the check against f.
	Check(f *File) []Violation
}

var (
	// matchEnv compiles the `match` attribute available on every check.
	matchEnv = expr.MustNewEnvironment(
		cel.Variable("file", cel.StringType),
	)

	// exprEnv compiles the Expression check's line predicates.
	exprEnv = expr.MustNewEnvironment(
		cel.Variable("file", cel.StringType),
		cel.Variable("line", cel.StringType),
		cel.Variable("lineNumber", cel.IntType),
	)
)

// attrReader reads module attributes, tracking which ones were consumed so
// unknown attributes can be rejected.
type attrReader struct {
	cfg  Config
	used map[string]bool
}

func newAttrReader(cfg Config) *attrReader {
	return &attrReader{
		cfg:  cfg,
		used: make(map[string]bool),
	}
}

func (a *attrReader) String(name, def string) string {
	a.used[name] = true

	v, ok := a.cfg.Attribute(name)
	if !ok {
		return def
	}

	return v
}

func (a *attrReader) Int(name string, def int) (int, error) {
	a.used[name] = true

	v, ok := a.cfg.Attribute(name)
	if !ok {
		return def, nil
	}

	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, configErrorf("module %s: attribute %s: %q is not an integer", a.cfg.Name(), name, v)
	}

	return i, nil
}

func (a *attrReader) Bool(name string, def bool) (bool, error) {
	a.used[name] = true

	v, ok := a.cfg.Attribute(name)
	if !ok {
		return def, nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, configErrorf("module %s: attribute %s: %q is not a boolean", a.cfg.Name(), name, v)
	}

	return b, nil
}

// Finish fails if the module declares attributes nothing consumed.
func (a *attrReader) Finish() error {
	for _, name := range a.cfg.AttributeNames() {
		if !a.used[name] {
			return configErrorf("module %s: unknown attribute %s", a.cfg.Name(), name)
		}
	}

	return nil
}

// baseCheck carries configuration common to all built-in checks: the module
// name, an optional severity override, an optional CEL `match` expression
// restricting which files the check applies to, and message overrides.
type baseCheck struct {
	match    cel.Program
	messages map[string]string
	name     string
	severity Severity
}

func newBaseCheck(cfg Config, a *attrReader) (baseCheck, error) {
	b := baseCheck{
		name:     cfg.Name(),
		messages: cfg.Messages(),
	}

	if sev := a.String("severity", ""); sev != "" {
		parsed, err := GetSeverity(sev)
		if err != nil {
			return b, configErrorf("module %s: %w: %q", cfg.Name(), err, sev)
		}

		b.severity = parsed
	}

	if matchExpr := a.String("match", ""); matchExpr != "" {
		prog, err := matchEnv.Compile(matchExpr)
		if err != nil {
			return b, configErrorf("module %s: attribute match: %w", cfg.Name(), err)
		}

		b.match = prog
	}

	return b, nil
}

func (b *baseCheck) Name() string {
	return b.name
}

// wantsFile evaluates the check's match expression against the file path.
// Checks without a match expression apply to every file. Evaluation failures
// keep the check applied.
func (b *baseCheck) wantsFile(path string) bool {
	if b.match == nil {
		return true
	}

	out, _, err := b.match.Eval(map[string]any{"file": path})
	if err != nil {
		slog.Warn("evaluate match expression",
			slog.String("check", b.name),
			slog.String("file", path),
			slog.Any("error", err),
		)

		return true
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return true
	}

	return keep
}

// violation builds a violation for this check, applying any message override
// registered under key.
func (b *baseCheck) violation(line, col int, key, defaultMsg string, args map[string]string) Violation {
	tmpl := defaultMsg
	if m, ok := b.messages[key]; ok {
		tmpl = m
	}

	return Violation{
		Check:    b.name,
		Message:  expandMessage(tmpl, args),
		Severity: b.severity,
		Line:     line,
		Column:   col,
	}
}

// expandMessage substitutes {name} placeholders in a message template.
func expandMessage(tmpl string, args map[string]string) string {
	if len(args) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}

	oldnew := make([]string, 0, len(args)*2)
	for k, v := range args {
		oldnew = append(oldnew, "{"+k+"}", v)
	}

	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

type lineLengthCheck struct {
	ignorePattern *regexp.Regexp
	baseCheck
	max int
}

func newLineLengthCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	maxLen, err := a.Int("max", 80)
	if err != nil {
		return nil, err
	}

	c := &lineLengthCheck{baseCheck: base, max: maxLen}

	if pattern := a.String("ignorePattern", ""); pattern != "" {
		re, reErr := regexp.Compile(pattern)
		if reErr != nil {
			return nil, configErrorf("module %s: attribute ignorePattern: %w", cfg.Name(), reErr)
		}

		c.ignorePattern = re
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *lineLengthCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	var vs []Violation

	for i, line := range f.Lines {
		length := utf8.RuneCountInString(line)
		if length <= c.max {
			continue
		}

		if c.ignorePattern != nil && c.ignorePattern.MatchString(line) {
			continue
		}

		vs = append(vs, c.violation(i+1, 0, "maxLineLen",
			"Line is longer than {max} characters (found {length}).",
			map[string]string{
				"max":    strconv.Itoa(c.max),
				"length": strconv.Itoa(length),
			}))
	}

	return vs
}

type trailingWhitespaceCheck struct {
	baseCheck
}

func newTrailingWhitespaceCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return &trailingWhitespaceCheck{baseCheck: base}, nil
}

func (c *trailingWhitespaceCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	var vs []Violation

	for i, line := range f.Lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == line {
			continue
		}

		vs = append(vs, c.violation(i+1, utf8.RuneCountInString(trimmed)+1,
			"trailingWhitespace", "Line has trailing whitespace.", nil))
	}

	return vs
}

type tabCharacterCheck struct {
	baseCheck
	eachLine bool
}

func newTabCharacterCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	eachLine, err := a.Bool("eachLine", false)
	if err != nil {
		return nil, err
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return &tabCharacterCheck{baseCheck: base, eachLine: eachLine}, nil
}

func (c *tabCharacterCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	var vs []Violation

	for i, line := range f.Lines {
		idx := strings.IndexByte(line, '\t')
		if idx < 0 {
			continue
		}

		col := utf8.RuneCountInString(line[:idx]) + 1

		if !c.eachLine {
			// Only the first tab in the file is reported.
			return []Violation{c.violation(i+1, col, "fileContainsTab",
				"File contains tab characters (this is the first instance).", nil)}
		}

		vs = append(vs, c.violation(i+1, col, "containsTab",
			"Line contains a tab character.", nil))
	}

	return vs
}

type regexpSinglelineCheck struct {
	format *regexp.Regexp
	baseCheck
	pattern string
	message string
}

func newRegexpSinglelineCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	pattern := a.String("format", "")
	if pattern == "" {
		return nil, configErrorf("module %s: attribute format is required", cfg.Name())
	}

	ignoreCase, err := a.Bool("ignoreCase", false)
	if err != nil {
		return nil, err
	}

	compilePattern := pattern
	if ignoreCase {
		compilePattern = "(?i)" + compilePattern
	}

	re, reErr := regexp.Compile(compilePattern)
	if reErr != nil {
		return nil, configErrorf("module %s: attribute format: %w", cfg.Name(), reErr)
	}

	c := &regexpSinglelineCheck{
		baseCheck: base,
		format:    re,
		pattern:   pattern,
		message:   a.String("message", ""),
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *regexpSinglelineCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	var vs []Violation

	for i, line := range f.Lines {
		loc := c.format.FindStringIndex(line)
		if loc == nil {
			continue
		}

		v := c.violation(i+1, utf8.RuneCountInString(line[:loc[0]])+1,
			"regexp.exceeded", "Line matches the illegal pattern '{format}'.",
			map[string]string{"format": c.pattern})
		if c.message != "" {
			v.Message = c.message
		}

		vs = append(vs, v)
	}

	return vs
}

type newlineAtEndOfFileCheck struct {
	baseCheck
}

func newNewlineAtEndOfFileCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return &newlineAtEndOfFileCheck{baseCheck: base}, nil
}

func (c *newlineAtEndOfFileCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	if len(f.Content) > 0 && f.Content[len(f.Content)-1] == '\n' {
		return nil
	}

	line := max(len(f.Lines), 1)

	return []Violation{c.violation(line, 0, "noNewlineAtEndOfFile",
		"File does not end with a newline.", nil)}
}

type fileLengthCheck struct {
	baseCheck
	max int
}

func newFileLengthCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	maxLines, err := a.Int("max", 2000)
	if err != nil {
		return nil, err
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return &fileLengthCheck{baseCheck: base, max: maxLines}, nil
}

func (c *fileLengthCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	if len(f.Lines) <= c.max {
		return nil
	}

	return []Violation{c.violation(1, 0, "maxLen.file",
		"File length is {length} lines (max allowed is {max}).",
		map[string]string{
			"length": strconv.Itoa(len(f.Lines)),
			"max":    strconv.Itoa(c.max),
		})}
}

type expressionCheck struct {
	program cel.Program
	baseCheck
	expression string
	message    string
}

func newExpressionCheck(cfg Config) (FileCheck, error) {
	a := newAttrReader(cfg)

	base, err := newBaseCheck(cfg, a)
	if err != nil {
		return nil, err
	}

	expression := a.String("expression", "")
	if expression == "" {
		return nil, configErrorf("module %s: attribute expression is required", cfg.Name())
	}

	prog, err := exprEnv.Compile(expression)
	if err != nil {
		return nil, configErrorf("module %s: attribute expression: %w", cfg.Name(), err)
	}

	c := &expressionCheck{
		baseCheck:  base,
		program:    prog,
		expression: expression,
		message:    a.String("message", ""),
	}

	err = a.Finish()
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *expressionCheck) Check(f *File) []Violation {
	if !c.wantsFile(f.Path) {
		return nil
	}

	var vs []Violation

	for i, line := range f.Lines {
		out, _, err := c.program.Eval(map[string]any{
			"file":       f.Path,
			"line":       line,
			"lineNumber": i + 1,
		})
		if err != nil {
			slog.Debug("evaluate expression",
				slog.String("check", c.name),
				slog.String("file", f.Path),
				slog.Int("line", i+1),
				slog.Any("error", err),
			)

			continue
		}

		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}

		v := c.violation(i+1, 0, "expression.matched",
			"Line matches expression '{expression}'.",
			map[string]string{"expression": c.expression})
		if c.message != "" {
			v.Message = c.message
		}

		vs = append(vs, v)
	}

	return vs
}
