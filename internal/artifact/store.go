// Package artifact persists intermediate pipeline results as JSON files so
// an interrupted job can resume from the last completed stage instead of
// repeating remote calls.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

// Stage names the pipeline outputs a Store can hold per chunk.
type Stage string

const (
	StageBlocks     Stage = "blocks"
	StageParagraphs Stage = "paragraphs"
	StageUnits      Stage = "units"
	StageLayout     Stage = "layout"
)

// Store writes one JSON file per chunk and stage under its directory.
type Store struct {
	dir string
}

// NewStore creates the artifact directory and returns a Store for it.
func NewStore(workDir string) (*Store, error) {
	dir := filepath.Join(workDir, "artifacts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, types.NewPipeError(types.ErrInternal, "failed to create artifact directory", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(chunkID int, stage Stage) string {
	return filepath.Join(s.dir, fmt.Sprintf("chunk_%03d_%s.json", chunkID, stage))
}

// Save persists v as the chunk's result for the given stage.
func (s *Store) Save(chunkID int, stage Stage, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("failed to marshal %s artifact", stage), err)
	}
	if err := os.WriteFile(s.path(chunkID, stage), data, 0644); err != nil {
		return types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("failed to write %s artifact", stage), err)
	}
	logger.Debug("artifact saved",
		logger.Int("chunk", chunkID), logger.String("stage", string(stage)))
	return nil
}

// Load reads the chunk's result for the given stage into v. It returns false
// without error when no artifact exists.
func (s *Store) Load(chunkID int, stage Stage, v interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(chunkID, stage))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, types.NewPipeError(types.ErrInternal,
			fmt.Sprintf("failed to read %s artifact", stage), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A corrupt artifact is treated as absent so the stage reruns.
		logger.Warn("discarding corrupt artifact",
			logger.Int("chunk", chunkID), logger.String("stage", string(stage)), logger.Err(err))
		return false, nil
	}
	return true, nil
}

// Clear removes all artifacts of one chunk, invalidating results derived
// from an earlier run.
func (s *Store) Clear(chunkID int) {
	for _, stage := range []Stage{StageBlocks, StageParagraphs, StageUnits, StageLayout} {
		os.Remove(s.path(chunkID, stage))
	}
}
