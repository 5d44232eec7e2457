// Package commands implements the translatepdf CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/gdkds12/translatePDF/internal/config"
	"github.com/gdkds12/translatePDF/internal/logger"
)

var (
	configPath string
	logFile    string
	verbose    bool

	configMgr *config.Manager
)

// Execute runs the CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "translatepdf",
		Short:         "Translate PDF documents to Korean while preserving layout",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg := logger.DefaultConfig()
			if logFile != "" {
				logCfg.LogFilePath = logFile
			}
			if verbose {
				logCfg.Level = logger.LevelDebug
				logCfg.EnableConsole = true
			}
			if err := logger.Init(logCfg); err != nil {
				return err
			}

			mgr, err := config.NewManager(configPath)
			if err != nil {
				return err
			}
			configMgr = mgr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/"+config.DefaultConfigFileName+")")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(translateCmd(), infoCmd(), configCmd())
	return root.Execute()
}
