package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/feedback"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/internal/pipeline"
	"github.com/sells-group/mathcheck/internal/store"
)

type fixedRecognizer struct{ formula string }

func (r *fixedRecognizer) Recognize(_ context.Context, _ []byte) (string, bool) {
	return r.formula, false
}

type fixedVerifier struct{ verdict *model.Verdict }

func (v *fixedVerifier) Verify(_ context.Context, _, _ string) *model.Verdict {
	return v.verdict
}

func newTestServer(t *testing.T) (*httptest.Server, feedback.Recorder) {
	t.Helper()
	st, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fb, err := feedback.NewFileRecorder(t.TempDir())
	require.NoError(t, err)

	p := pipeline.New(st,
		&fixedRecognizer{formula: `x^2+2x+1=0`},
		&fixedVerifier{verdict: &model.Verdict{
			IsCorrect:   true,
			Explanation: "substituting x=-1 satisfies the equation",
			Steps:       []string{"factor to (x+1)^2", "substitute"},
		}},
		fb)

	srv := httptest.NewServer(newRouter(p, config.ServerConfig{}))
	t.Cleanup(srv.Close)
	return srv, fb
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_IngestRawBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/equations", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var eq equationResponse
	decode(t, resp, &eq)
	assert.NotEmpty(t, eq.EquationID)
	assert.Equal(t, `x^2+2x+1=0`, eq.Formula)
	assert.Equal(t, "recognized", eq.Status)
}

func TestServer_IngestMultipart(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "equation.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/equations", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var eq equationResponse
	decode(t, resp, &eq)
	assert.Equal(t, `x^2+2x+1=0`, eq.Formula)
}

func TestServer_IngestEmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/equations", "image/png", http.NoBody)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Contains(t, body["error"], "image")
}

func TestServer_EquationLifecycle(t *testing.T) {
	srv, fb := newTestServer(t)
	base := srv.URL + "/api/v1"

	resp, err := http.Post(base+"/equations", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	var eq equationResponse
	decode(t, resp, &eq)

	// Fetch
	resp, err = http.Get(base + "/equations/" + eq.EquationID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched equationResponse
	decode(t, resp, &fetched)
	assert.Equal(t, eq.Formula, fetched.Formula)

	// Correct
	resp = postJSON(t, base+"/equations/"+eq.EquationID+"/correct",
		map[string]string{"corrected_formula": `(x+1)^2=0`})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var corrected equationResponse
	decode(t, resp, &corrected)
	assert.Equal(t, `(x+1)^2=0`, corrected.Formula)
	assert.Equal(t, "corrected", corrected.Status)

	entries, err := fb.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `x^2+2x+1=0`, entries[0].Original)
	assert.Equal(t, `(x+1)^2=0`, entries[0].Corrected)

	// Solve
	resp = postJSON(t, base+"/equations/"+eq.EquationID+"/solutions",
		map[string]string{"solution": "x = -1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var sol solutionResponse
	decode(t, resp, &sol)
	assert.True(t, sol.IsCorrect)
	assert.NotEmpty(t, sol.Explanation)
	assert.NotEmpty(t, sol.Steps)

	// Fetch solution
	resp, err = http.Get(base + "/solutions/" + sol.SolutionID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetchedSol solutionResponse
	decode(t, resp, &fetchedSol)
	assert.Equal(t, sol.SolutionID, fetchedSol.SolutionID)
	assert.True(t, fetchedSol.IsCorrect)

	// Status reflects the solve
	resp, err = http.Get(base + "/equations/" + eq.EquationID)
	require.NoError(t, err)
	var final equationResponse
	decode(t, resp, &final)
	assert.Equal(t, "solved", final.Status)
}

func TestServer_UnknownEquationIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	resp, err := http.Get(base + "/equations/no-such-id")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, base+"/equations/no-such-id/correct",
		map[string]string{"corrected_formula": "x=1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, base+"/equations/no-such-id/solutions",
		map[string]string{"solution": "x=1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Contains(t, body["error"], "no-such-id")
}

func TestServer_CorrectInvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/corrections", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_DirectCorrectionFeedback(t *testing.T) {
	srv, fb := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/corrections", map[string]string{
		"original_formula":  `x^2+2x+l=0`,
		"corrected_formula": `x^2+2x+1=0`,
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	entries, err := fb.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `x^2+2x+1=0`, entries[0].Corrected)
}
