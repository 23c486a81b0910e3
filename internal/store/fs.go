package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
)

// FSStore implements Store with one JSON document per record under three
// directory namespaces. Image payloads live next to their metadata. Writes go
// through a temp file plus rename so a crash never leaves a torn document.
type FSStore struct {
	imagesDir    string
	equationsDir string
	solutionsDir string

	locks sync.Map // equation ID -> *sync.Mutex, serializes read-modify-write on one record
}

// NewFS creates the namespace directories under dataDir if needed.
func NewFS(dataDir string) (*FSStore, error) {
	s := &FSStore{
		imagesDir:    filepath.Join(dataDir, "images"),
		equationsDir: filepath.Join(dataDir, "equations"),
		solutionsDir: filepath.Join(dataDir, "solutions"),
	}
	for _, dir := range []string{s.imagesDir, s.equationsDir, s.solutionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.NewStorage("fs: create "+dir, err)
		}
	}
	return s, nil
}

// Migrate is a no-op for the filesystem backend; NewFS already lays out the
// namespaces.
func (s *FSStore) Migrate(ctx context.Context) error { return nil }

func (s *FSStore) Close() error { return nil }

func (s *FSStore) lock(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *FSStore) CreateImage(ctx context.Context, data []byte) (*model.Image, error) {
	id := uuid.New().String()
	payloadPath := filepath.Join(s.imagesDir, id+".png")
	metaPath := filepath.Join(s.imagesDir, id+".json")

	img := &model.Image{
		ID:        id,
		Location:  payloadPath,
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}

	if err := writeFileAtomic(payloadPath, data); err != nil {
		return nil, errs.NewStorage("fs: write image payload", err)
	}
	if err := writeJSONAtomic(metaPath, img); err != nil {
		// Roll back the payload so no orphaned binary survives.
		if rmErr := os.Remove(payloadPath); rmErr != nil {
			zap.L().Warn("image payload rollback failed",
				zap.String("image_id", id), zap.Error(rmErr))
		}
		return nil, errs.NewStorage("fs: write image metadata", err)
	}

	zap.L().Info("image stored", zap.String("image_id", id), zap.Int64("size", img.Size))
	return img, nil
}

func (s *FSStore) DeleteImage(ctx context.Context, imageID string) error {
	metaPath := filepath.Join(s.imagesDir, imageID+".json")
	payloadPath := filepath.Join(s.imagesDir, imageID+".png")
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return errs.NewStorage("fs: delete image metadata", err)
	}
	if err := os.Remove(payloadPath); err != nil && !os.IsNotExist(err) {
		return errs.NewStorage("fs: delete image payload", err)
	}
	return nil
}

func (s *FSStore) CreateEquation(ctx context.Context, imageID, formula, rendered string) (*model.Equation, error) {
	if _, err := os.Stat(filepath.Join(s.imagesDir, imageID+".json")); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewNotFound("image", imageID)
		}
		return nil, errs.NewStorage("fs: stat image", err)
	}

	now := time.Now().UTC()
	eq := &model.Equation{
		ID:           imageID,
		Formula:      formula,
		Rendered:     rendered,
		CreatedAt:    now,
		LastModified: now,
	}
	if err := writeJSONAtomic(filepath.Join(s.equationsDir, imageID+".json"), eq); err != nil {
		return nil, errs.NewStorage("fs: write equation", err)
	}

	zap.L().Info("equation stored", zap.String("equation_id", imageID))
	return eq, nil
}

func (s *FSStore) GetEquation(ctx context.Context, equationID string) (*model.Equation, error) {
	var eq model.Equation
	if err := readJSON(filepath.Join(s.equationsDir, equationID+".json"), &eq); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewNotFound("equation", equationID)
		}
		return nil, errs.NewStorage("fs: read equation", err)
	}
	return &eq, nil
}

func (s *FSStore) UpdateEquation(ctx context.Context, equationID, formula, rendered string) (bool, error) {
	unlock := s.lock(equationID)
	defer unlock()

	path := filepath.Join(s.equationsDir, equationID+".json")
	var eq model.Equation
	if err := readJSON(path, &eq); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.NewStorage("fs: read equation", err)
	}

	eq.Formula = formula
	eq.Rendered = rendered
	eq.LastModified = laterOf(time.Now().UTC(), eq.LastModified)

	if err := writeJSONAtomic(path, &eq); err != nil {
		return false, errs.NewStorage("fs: update equation", err)
	}

	zap.L().Info("equation updated", zap.String("equation_id", equationID))
	return true, nil
}

func (s *FSStore) CreateSolution(ctx context.Context, equationID, solution string, verdict *model.Verdict) (*model.Solution, error) {
	if _, err := os.Stat(filepath.Join(s.equationsDir, equationID+".json")); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewNotFound("equation", equationID)
		}
		return nil, errs.NewStorage("fs: stat equation", err)
	}

	sol := &model.Solution{
		ID:         uuid.New().String(),
		EquationID: equationID,
		Solution:   solution,
		Verdict:    verdict,
		CreatedAt:  time.Now().UTC(),
	}
	if err := writeJSONAtomic(filepath.Join(s.solutionsDir, sol.ID+".json"), sol); err != nil {
		return nil, errs.NewStorage("fs: write solution", err)
	}

	zap.L().Info("solution stored",
		zap.String("solution_id", sol.ID),
		zap.String("equation_id", equationID))
	return sol, nil
}

func (s *FSStore) GetSolution(ctx context.Context, solutionID string) (*model.Solution, error) {
	var sol model.Solution
	if err := readJSON(filepath.Join(s.solutionsDir, solutionID+".json"), &sol); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewNotFound("solution", solutionID)
		}
		return nil, errs.NewStorage("fs: read solution", err)
	}
	return &sol, nil
}

func (s *FSStore) HasSolutions(ctx context.Context, equationID string) (bool, error) {
	entries, err := os.ReadDir(s.solutionsDir)
	if err != nil {
		return false, errs.NewStorage("fs: list solutions", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var sol model.Solution
		if err := readJSON(filepath.Join(s.solutionsDir, e.Name()), &sol); err != nil {
			continue
		}
		if sol.EquationID == equationID {
			return true, nil
		}
	}
	return false, nil
}

// helpers

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal record")
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes to a temp file in the target directory, syncs, and
// renames over the destination so readers only ever see complete documents.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrap(err, "rename temp file")
	}
	return nil
}
