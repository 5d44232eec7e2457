package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// config: inspect and persist the effective configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := *configMgr.Get()
				// Never print credentials.
				if cfg.OpenAIAPIKey != "" {
					cfg.OpenAIAPIKey = "***"
				}
				if cfg.ExtractAPIKey != "" {
					cfg.ExtractAPIKey = "***"
				}
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the current configuration to the config file",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := configMgr.Save(); err != nil {
					return err
				}
				fmt.Println("configuration saved")
				return nil
			},
		},
	)
	return cmd
}
