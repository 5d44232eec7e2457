package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// MergePages assembles the rendered pages into one document at outputPath.
// Pages are written in ascending page number order regardless of the order
// they were produced in.
func MergePages(pages []types.RenderedPage, outputPath, workDir string) error {
	if len(pages) == 0 {
		return types.NewPipeError(types.ErrInternal, "no rendered pages to assemble", nil)
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return types.NewPipeError(types.ErrInternal, "failed to create work directory", err)
	}

	ordered := make([]types.RenderedPage, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	paths := make([]string, 0, len(ordered))
	defer func() {
		for _, p := range paths {
			os.Remove(p)
		}
	}()

	for _, page := range ordered {
		path := filepath.Join(workDir, fmt.Sprintf("assembled_%d.pdf", page.PageNumber))
		if err := os.WriteFile(path, page.Data, 0644); err != nil {
			return types.NewPipeError(types.ErrInternal,
				fmt.Sprintf("failed to write page %d for assembly", page.PageNumber), err)
		}
		paths = append(paths, path)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewPipeError(types.ErrInternal, "failed to create output directory", err)
		}
	}

	if err := api.MergeCreateFile(paths, outputPath, false, nil); err != nil {
		return types.NewPipeError(types.ErrInternal, "failed to merge rendered pages", err)
	}

	logger.Info("output document assembled",
		logger.String("output", outputPath),
		logger.Int("pages", len(ordered)))
	return nil
}

// OutputPath derives the default output file name: the input base name with
// a _translated suffix.
func OutputPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, base[:len(base)-len(ext)]+"_translated"+ext)
}
