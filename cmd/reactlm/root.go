package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rickchristie/reactlm/internal/config"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
		verbose    bool
	)
	a := &app{}

	root := &cobra.Command{
		Use:           "reactlm",
		Short:         "Run a bounded ReAct agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFiles...)
			if err != nil {
				return err
			}
			level, _ := cfg.Log.SlogLevel()
			if verbose {
				level = slog.LevelDebug
			}

			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newTracesCmd(a),
		newToolsCmd(a),
	)
	return root
}
