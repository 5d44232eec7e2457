package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdkds12/translatePDF/internal/extract"
	"github.com/gdkds12/translatePDF/internal/pipeline"
)

// info <input.pdf>: validate the document and preview the chunk plan.
func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.pdf>",
		Short: "Show document info and the chunk plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := extract.Inspect(args[0])
			if err != nil {
				return err
			}

			cfg := configMgr.Get()
			chunks, err := pipeline.Plan(doc.PageCount, cfg.ChunkSize)
			if err != nil {
				return err
			}

			fmt.Printf("file:   %s\n", doc.Path)
			fmt.Printf("size:   %d bytes\n", doc.FileSize)
			fmt.Printf("pages:  %d\n", doc.PageCount)
			fmt.Printf("chunks: %d (%d pages each)\n", len(chunks), cfg.ChunkSize)
			for _, c := range chunks {
				fmt.Printf("  %s\n", c)
			}
			return nil
		},
	}
}
