// Package notify delivers user-facing notifications about non-fatal
// problems, such as a ruleset source being unreachable or a suppressions
// file that cannot be found.
package notify

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lintelhq/lintel/pkg/log"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	// Warn reports a recoverable problem.
	Warn(ctx context.Context, msg string)
	// Error reports a failure the user should act on.
	Error(ctx context.Context, msg string)
}

// printer formats notification messages. Routing them through a message
// printer keeps the strings localizable.
var printer = message.NewPrinter(language.English)

// Format builds a notification message from a format string.
func Format(format string, args ...any) string {
	return printer.Sprintf(format, args...)
}

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

func (LogNotifier) Warn(ctx context.Context, msg string) {
	log.WithContext(ctx).Warn(msg)
}

func (LogNotifier) Error(ctx context.Context, msg string) {
	log.WithContext(ctx).Error(msg)
}

// Recorder captures notifications for tests. It is safe for concurrent use.
type Recorder struct {
	warnings []string
	errors   []string
	mu       sync.Mutex
}

func (r *Recorder) Warn(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.warnings = append(r.warnings, msg)
}

func (r *Recorder) Error(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, msg)
}

// Warnings returns the warning messages received so far.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.warnings)
}

// Errors returns the error messages received so far.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.errors)
}
