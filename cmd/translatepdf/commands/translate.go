package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdkds12/translatePDF/internal/glossary"
	"github.com/gdkds12/translatePDF/internal/pipeline"
)

// translate <input.pdf>: run the full translation pipeline.
func translateCmd() *cobra.Command {
	var (
		output       string
		chunkSize    int
		tone         string
		glossaryPath string
		workDir      string
		fontPath     string
	)

	cmd := &cobra.Command{
		Use:   "translate <input.pdf>",
		Short: "Translate a PDF into Korean, keeping the original layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configMgr.Get()
			if chunkSize > 0 {
				cfg.ChunkSize = chunkSize
			}
			if tone != "" {
				cfg.Tone = tone
			}
			if workDir != "" {
				cfg.WorkDirectory = workDir
			}
			if fontPath != "" {
				cfg.FontPath = fontPath
			}

			var gloss *glossary.Glossary
			if glossaryPath != "" {
				g, err := glossary.LoadFile(glossaryPath)
				if err != nil {
					return err
				}
				gloss = g
			}

			job := pipeline.NewJob(cfg, gloss, pipeline.WithProgress(func(done, total int) {
				fmt.Printf("chunk %d/%d completed\n", done, total)
			}))

			summary, err := job.Run(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}

			fmt.Printf("translated %d pages in %d chunks -> %s\n",
				summary.PageCount, summary.ChunkCount, summary.OutputPath)
			if summary.FailedParagraphs > 0 {
				fmt.Printf("warning: %d paragraphs kept their original text after repeated translation failures\n",
					summary.FailedParagraphs)
			}
			for _, w := range summary.Warnings {
				marker := "overflow"
				if w.Truncated {
					marker = "truncated"
				}
				fmt.Printf("warning: %s on page %d (%s, %.1fpt at %.1fpt font)\n",
					marker, w.PageNumber, w.ParagraphID, w.ExcessPts, w.FontSize)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <input>_translated.pdf)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "pages per chunk")
	cmd.Flags().StringVar(&tone, "tone", "", "translation tone: formal or friendly")
	cmd.Flags().StringVar(&glossaryPath, "glossary", "", "glossary CSV file (english,korean)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "working directory for intermediate files")
	cmd.Flags().StringVar(&fontPath, "font", "", "TTF font with Hangul coverage")
	return cmd
}
