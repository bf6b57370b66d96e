package main

import (
	"os"

	"github.com/aretw0/journey/internal/cli"
	"github.com/aretw0/journey/internal/config"
	"github.com/aretw0/journey/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [workflow-id]",
	Short: "Run a workflow interactively",
	Long: `Starts a session of the given workflow in the terminal, answering prompts from stdin.
With --session, the session is persisted under that id and resumed on the next run.
Use --store file (or redis) to keep sessions across invocations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		rawVars, _ := cmd.Flags().GetString("vars")
		jsonMode, _ := cmd.Flags().GetBool("json")
		showVars, _ := cmd.Flags().GetBool("show-vars")
		maxInput, _ := cmd.Flags().GetInt("max-input")

		var workflowID string
		if len(args) > 0 {
			workflowID = args[0]
		}

		vars, err := cli.ParseVars(rawVars)
		if err != nil {
			return err
		}
		if sessionID != "" && cfg.Store.Driver == config.StoreMemory {
			logger.Warn("Sessions in the memory store are lost when the process exits", "session_id", sessionID)
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		_, err = app.RunSession(sigCtx, cli.RunOptions{
			WorkflowID:    workflowID,
			SessionID:     sessionID,
			Vars:          vars,
			JSON:          jsonMode,
			Styled:        !jsonMode && tui.IsInteractive(os.Stdin) && tui.IsInteractive(os.Stdout),
			ShowVariables: showVars,
			MaxInputSize:  maxInput,
			In:            os.Stdin,
			Out:           os.Stdout,
		})
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("Run interrupted", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Session id to resume or create")
	runCmd.Flags().String("vars", "", "Initial variables as a JSON object")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().Bool("show-vars", false, "Print variable writes and reads")
	runCmd.Flags().Int("max-input", 0, "Maximum input size in bytes (0 uses the default)")
}
