// Package pipeline orchestrates the equation lifecycle: ingest a photographed
// equation, recognize it, accept human corrections, and verify submitted
// solutions. It owns the ordering rules (adapters are called before any store
// mutation) and the ingest rollback; everything slow or fallible lives behind
// the adapters and the store.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/feedback"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/internal/render"
	"github.com/sells-group/mathcheck/internal/store"
)

// Recognizer is the recognition boundary: it always produces a formula, and
// reports whether that formula is the degraded fallback.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (formula string, fallback bool)
}

// Verifier is the verification boundary: it always produces a verdict.
type Verifier interface {
	Verify(ctx context.Context, formula, solution string) *model.Verdict
}

// Pipeline wires the store, the two capability adapters, and the correction
// log into the lifecycle operations.
type Pipeline struct {
	store     store.Store
	recognize Recognizer
	verify    Verifier
	feedback  feedback.Recorder
}

func New(st store.Store, rec Recognizer, ver Verifier, fb feedback.Recorder) *Pipeline {
	return &Pipeline{store: st, recognize: rec, verify: ver, feedback: fb}
}

// Ingest accepts raw image bytes, recognizes them, and persists the image and
// equation records together. Either both records exist afterwards or neither
// does: a failed equation write rolls the image back.
func (p *Pipeline) Ingest(ctx context.Context, image []byte) (*model.Equation, error) {
	if len(image) == 0 {
		return nil, errs.NewValidation("image", "payload is empty")
	}

	// Recognition happens before any store write so a slow or failing
	// capability call never holds storage state hostage.
	formula, degraded := p.recognize.Recognize(ctx, image)
	rendered := render.Display(formula)

	img, err := p.store.CreateImage(ctx, image)
	if err != nil {
		return nil, err
	}

	eq, err := p.store.CreateEquation(ctx, img.ID, formula, rendered)
	if err != nil {
		if rbErr := p.store.DeleteImage(ctx, img.ID); rbErr != nil {
			zap.L().Error("ingest rollback failed, image record orphaned",
				zap.String("image_id", img.ID), zap.Error(rbErr))
		}
		return nil, err
	}

	zap.L().Info("ingested equation",
		zap.String("equation_id", eq.ID),
		zap.Int("image_bytes", len(image)),
		zap.Bool("recognition_fallback", degraded))
	return eq, nil
}

// Correct replaces the formula of an existing equation with a human-corrected
// one and appends the (old, new) pair to the correction log. Repeating the
// same correction is harmless: only LastModified moves.
func (p *Pipeline) Correct(ctx context.Context, equationID, formula string) (*model.Equation, error) {
	formula = render.Normalize(formula)
	if err := render.Check(formula); err != nil {
		return nil, err
	}

	prev, err := p.store.GetEquation(ctx, equationID)
	if err != nil {
		return nil, err
	}

	ok, err := p.store.UpdateEquation(ctx, equationID, formula, render.Display(formula))
	if err != nil {
		return nil, err
	}
	if !ok {
		// Deleted between the read and the write.
		return nil, errs.NewNotFound("equation", equationID)
	}

	if err := p.feedback.Record(ctx, model.Correction{
		EquationID: equationID,
		Original:   prev.Formula,
		Corrected:  formula,
	}); err != nil {
		return nil, err
	}

	zap.L().Info("corrected equation", zap.String("equation_id", equationID))
	return p.store.GetEquation(ctx, equationID)
}

// Equation fetches an equation record.
func (p *Pipeline) Equation(ctx context.Context, equationID string) (*model.Equation, error) {
	return p.store.GetEquation(ctx, equationID)
}

// Status derives the lifecycle state of an equation record.
func (p *Pipeline) Status(ctx context.Context, eq *model.Equation) (model.Status, error) {
	solved, err := p.store.HasSolutions(ctx, eq.ID)
	if err != nil {
		return "", err
	}
	return eq.Status(solved), nil
}

// Solution fetches a solution record.
func (p *Pipeline) Solution(ctx context.Context, solutionID string) (*model.Solution, error) {
	return p.store.GetSolution(ctx, solutionID)
}

// Solve verifies a submitted solution against the equation's current formula
// and persists the result. Solutions are immutable; submitting again creates
// a new record with its own verdict.
func (p *Pipeline) Solve(ctx context.Context, equationID, solution string) (*model.Solution, error) {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return nil, errs.NewValidation("solution", "is empty")
	}

	eq, err := p.store.GetEquation(ctx, equationID)
	if err != nil {
		return nil, err
	}

	// The verdict is produced before the store write; verification failures
	// were already absorbed into a fallback verdict by the adapter.
	verdict := p.verify.Verify(ctx, eq.Formula, solution)

	sol, err := p.store.CreateSolution(ctx, equationID, solution, verdict)
	if err != nil {
		return nil, err
	}

	zap.L().Info("verified solution",
		zap.String("equation_id", equationID),
		zap.String("solution_id", sol.ID),
		zap.Bool("is_correct", verdict.IsCorrect),
		zap.Bool("verification_fallback", verdict.Fallback))
	return sol, nil
}

// RecordCorrection is the direct feedback path: it captures an (original,
// corrected) pair without touching any equation record. The equation ID is
// optional and not resolved.
func (p *Pipeline) RecordCorrection(ctx context.Context, equationID, original, corrected string) error {
	corrected = render.Normalize(corrected)
	if err := render.Check(corrected); err != nil {
		return err
	}
	return p.feedback.Record(ctx, model.Correction{
		EquationID: equationID,
		Original:   render.Normalize(original),
		Corrected:  corrected,
	})
}
