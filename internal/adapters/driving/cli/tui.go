package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui"
	"github.com/custodia-labs/rlm/internal/logger"
)

var errNotATerminal = errors.New("the TUI needs an interactive terminal; use 'rlm search' in scripts")

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Browse memory interactively.

Type a query, move through ranked chunks and insights, and read a chunk
in the preview pane or full screen. Opening an archived chunk restores it.
Background tasks keep running while the TUI is open.

Keys:
  enter      search, then preview the selected hit
  ↑/k ↓/j    move          pgup/pgdn  page
  g / G      first / last  o          open full screen
  i          insights      n          new query
  ?          help          esc        back
  ctrl+c     quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func newTUIPorts() *tui.Ports {
	ports := tui.NewPorts(searchService, chunkService)
	ports.Settings = settingsService
	return ports
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	app, err := tui.NewApp(newTUIPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotATerminal
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tui panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("tui panicked: %v", r)
		}
	}()

	ctx := commandContext(cmd)
	stop := startScheduler(ctx)
	defer stop()

	return app.WithContext(ctx).Run()
}
