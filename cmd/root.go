package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "plpchat",
	Short: "Terminal client for plpchat servers",
	Long: `plpchat is a terminal chat client. Run it without arguments to open the
chat interface, or use one of the subcommands for scripting.

Navigation:
  ↑/↓ or j/k        Navigate lists
  enter             Open / send
  tab               Switch between chat list and conversation
  ctrl+a            Attach a file
  esc               Go back
  ctrl+c            Quit`,
	Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default is $HOME/.plpchat/config.yaml)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	env, err := setup(true)
	if err != nil {
		return err
	}
	defer env.close()

	deps := ui.NewDeps(env.cfg, env.session)
	defer deps.Close()

	log := logging.L()
	log.Info().Str("server", env.cfg.Server.URL).Msg("starting")
	p := tea.NewProgram(ui.NewApp(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}
