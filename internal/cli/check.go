package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lintelhq/lintel/api/v1beta1/configs"
	"github.com/lintelhq/lintel/pkg/checker"
	"github.com/lintelhq/lintel/pkg/config"
	"github.com/lintelhq/lintel/pkg/lint"
	"github.com/lintelhq/lintel/pkg/log"
	"github.com/lintelhq/lintel/pkg/telemetry"
)

const cmdExamples = `  # Check the current directory:
  lintel

  # Check specific files and directories:
  lintel check ./src ./docs

  # Use an explicit configuration file:
  lintel check --config ./ci/lintel.yaml ./src

  # Re-run whenever a ruleset file changes:
  lintel check --watch ./src

  # Write the default global configuration and exit:
  lintel check --write-config`

// ErrChecksFailed is returned when a pass finds error-severity violations.
var ErrChecksFailed = errors.New("checks failed")

type CheckArgs struct {
	*RootArgs

	ConfigPath  string
	Paths       []string
	Watch       bool
	WriteConfig bool
	ShowConfig  bool
}

func NewCheckArgs(rootArgs *RootArgs) *CheckArgs {
	return &CheckArgs{
		RootArgs: rootArgs,
	}
}

func (ca *CheckArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ca.ConfigPath, "config", "", "Path to the lintel configuration file")
	cmd.Flags().BoolVarP(&ca.Watch, "watch", "w", false, "Watch ruleset sources and re-check on changes")
	cmd.Flags().BoolVar(&ca.WriteConfig, "write-config", false, "Write the default global configuration and exit")
	cmd.Flags().BoolVar(&ca.ShowConfig, "show-config", false, "Print the active configuration and exit")

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

func NewCheckCmd(ca *CheckArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check files against the active rulesets (default command)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ca.Paths = args

			return check(cmd, ca)
		},
	}
	ca.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func check(cmd *cobra.Command, ca *CheckArgs) error {
	ctx := cmd.Context()

	if ca.WriteConfig {
		path := configs.GetPath()

		err := configs.WriteDefault(path, false)
		if err != nil {
			return err //nolint:wrapcheck // WriteDefault wraps with context.
		}

		cmd.Println(path)

		return nil
	}

	paths := ca.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	settings, err := config.Resolve(ca.ConfigPath, paths[0])
	if err != nil {
		return err //nolint:wrapcheck // Resolve wraps with context.
	}

	if ca.ShowConfig {
		data, err := settings.Config.MarshalYAML()
		if err != nil {
			return err //nolint:wrapcheck // MarshalYAML wraps with context.
		}

		cmd.Print(string(data))

		return nil
	}

	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer shutdown(context.WithoutCancel(ctx))

	driver, err := newDriver(settings, ca.Watch, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer driver.Close()

	renderer := NewRenderer(cmd.OutOrStdout())

	if ca.Watch {
		// Watch passes redraw continuously; buffer log output and flush it
		// after each pass so log lines never land mid-render.
		logBuf := log.NewCircularBuffer(100)

		logHandler, err := log.CreateHandlerWithStrings(logBuf, ca.LogLevel, ca.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return checkAndWatch(ctx, driver, renderer, logBuf, cmd.ErrOrStderr(), paths)
	}

	result, err := driver.Check(ctx, paths...)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	renderer.Render(result)

	if result.ErrorCount() > 0 {
		return ErrChecksFailed
	}

	return nil
}

// newDriver assembles the checker cache and lint driver from the resolved
// settings.
func newDriver(settings *config.Settings, watch bool, errOut io.Writer) (*lint.Driver, error) {
	cfg := settings.Config

	ttl, err := cfg.Checker.TTL()
	if err != nil {
		return nil, err //nolint:wrapcheck // TTL wraps with context.
	}

	cache, err := checker.NewCache(
		checker.WithTTL(ttl),
		checker.WithNotifier(NewConsoleNotifier(errOut)),
	)
	if err != nil {
		return nil, fmt.Errorf("create checker cache: %w", err)
	}

	opts := []lint.DriverOpt{
		lint.WithSkipTestFiles(cfg.Checker.SkipTestFiles),
		lint.WithWatch(watch),
	}

	if rc, ok := cfg.Rulesets[cfg.Checker.Ruleset]; ok {
		opts = append(opts, lint.WithDefaultRuleset(rc.Location(settings.BaseDir)))
	}

	if cfg.Project != nil {
		opts = append(opts, lint.WithProject(cfg.Project.Build(settings.BaseDir)))

		for _, m := range cfg.Project.Modules {
			if m.Ruleset == "" {
				continue
			}

			rc := cfg.Rulesets[m.Ruleset]
			opts = append(opts, lint.WithModuleRuleset(m.Name, rc.Location(settings.BaseDir)))
		}
	}

	driver, err := lint.NewDriver(cache, opts...)
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}

	return driver, nil
}

// checkAndWatch runs one pass, then re-renders every pass the driver triggers
// in response to ruleset changes, until the context is cancelled. Buffered
// log output is flushed to errOut after each render.
func checkAndWatch(
	ctx context.Context,
	driver *lint.Driver,
	renderer *Renderer,
	logBuf *log.CircularBuffer,
	errOut io.Writer,
	paths []string,
) error {
	events := make(chan lint.Event, 8)
	driver.Subscribe(events)

	go driver.RunOnEvent()

	// The initial pass broadcasts its result; rendering happens in the event
	// loop so every pass is handled the same way.
	_, err := driver.Check(ctx, paths...)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			flushLogs(errOut, logBuf)

			return nil

		case evt := <-events:
			switch e := evt.(type) {
			case lint.EventCheckFinished:
				if e.Err != nil {
					renderer.RenderError(e.Err)
				} else {
					renderer.Render(e.Result)
				}

			case lint.EventInvalidated:
				renderer.RenderReload(e.Path, time.Now())
			}

			flushLogs(errOut, logBuf)
		}
	}
}

// flushLogs drains the buffered log entries to w.
func flushLogs(w io.Writer, buf *log.CircularBuffer) {
	slog.Debug("flush logs to console",
		slog.Int("count", buf.Size()),
		slog.Int("max", buf.Capacity()),
		slog.Bool("truncated", buf.IsFull()),
	)

	_, err := buf.WriteTo(w)
	if err != nil {
		panic(err)
	}

	buf.Clear()
}
