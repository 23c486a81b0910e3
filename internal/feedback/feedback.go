// Package feedback keeps the correction log: every human edit to a recognized
// formula is recorded as an (original, corrected) pair. The log is append-only
// training material for improving recognition; nothing in the serving path
// reads it back except the export tooling.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
)

// Recorder persists correction pairs and lists them back for export.
type Recorder interface {
	Record(ctx context.Context, c model.Correction) error
	List(ctx context.Context) ([]model.Correction, error)
}

// FileRecorder writes one JSON document per correction into a flat directory.
// File names embed the capture time so a directory listing reads in order.
type FileRecorder struct {
	dir string
}

// NewFileRecorder creates the log directory if needed.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if dir == "" {
		return nil, eris.New("feedback: log directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "feedback: create log directory")
	}
	return &FileRecorder{dir: dir}, nil
}

func (r *FileRecorder) Record(ctx context.Context, c model.Correction) error {
	if err := ctx.Err(); err != nil {
		return errs.NewStorage("record correction", err)
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	// Timestamp plus a short random suffix keeps concurrent writers from
	// colliding on the same name.
	name := fmt.Sprintf("%s-%s.json",
		c.Timestamp.UTC().Format("20060102T150405.000000000"),
		uuid.New().String()[:8])

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errs.NewStorage("record correction", err)
	}

	path := filepath.Join(r.dir, name)
	tmp, err := os.CreateTemp(r.dir, ".tmp-correction-*")
	if err != nil {
		return errs.NewStorage("record correction", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errs.NewStorage("record correction", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errs.NewStorage("record correction", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errs.NewStorage("record correction", err)
	}

	zap.L().Debug("recorded correction",
		zap.String("equation_id", c.EquationID),
		zap.String("file", name))
	return nil
}

// List returns every recorded correction, oldest first.
func (r *FileRecorder) List(ctx context.Context) ([]model.Correction, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errs.NewStorage("list corrections", err)
	}

	var corrections []model.Correction
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errs.NewStorage("list corrections", err)
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, errs.NewStorage("list corrections", err)
		}
		var c model.Correction
		if err := json.Unmarshal(data, &c); err != nil {
			zap.L().Warn("skipping malformed correction file",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		corrections = append(corrections, c)
	}

	sort.Slice(corrections, func(i, j int) bool {
		return corrections[i].Timestamp.Before(corrections[j].Timestamp)
	})
	return corrections, nil
}
