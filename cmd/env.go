package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/feedback"
	"github.com/sells-group/mathcheck/internal/pipeline"
	"github.com/sells-group/mathcheck/internal/recognize"
	"github.com/sells-group/mathcheck/internal/store"
	"github.com/sells-group/mathcheck/internal/verify"
)

// env holds the wired application components shared by the commands.
type env struct {
	Store       store.Store
	Corrections feedback.Recorder
	Pipeline    *pipeline.Pipeline
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rec, err := recognize.NewAdapter(cfg.Recognize, cfg.Mathpix)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init recognition adapter")
	}

	ver, err := verify.NewAdapter(cfg.Verify, cfg.Anthropic)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init verification adapter")
	}

	fb, err := feedback.NewFileRecorder(cfg.Feedback.Dir)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init correction log")
	}

	return &env{
		Store:       st,
		Corrections: fb,
		Pipeline:    pipeline.New(st, rec, ver, fb),
	}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
}
