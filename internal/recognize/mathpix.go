package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/resilience"
)

const defaultMathpixBaseURL = "https://api.mathpix.com"

// Mathpix recognizes handwritten math using the Mathpix v3/text API.
type Mathpix struct {
	appID   string
	appKey  string
	baseURL string
	client  *http.Client
}

// NewMathpix creates a Mathpix recognizer. If baseURL is empty, the default is used.
func NewMathpix(appID, appKey, baseURL string) *Mathpix {
	if baseURL == "" {
		baseURL = defaultMathpixBaseURL
	}
	return &Mathpix{
		appID:   appID,
		appKey:  appKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type mathpixRequest struct {
	Src     string   `json:"src"`
	Formats []string `json:"formats"`
}

type mathpixResponse struct {
	LatexStyled string `json:"latex_styled"`
	Error       string `json:"error"`
}

// Recognize sends the image to Mathpix and returns the styled LaTeX result.
func (m *Mathpix) Recognize(ctx context.Context, image []byte) (string, error) {
	reqBody := mathpixRequest{
		Src:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		Formats: []string{"latex_styled"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "recognize: marshal mathpix request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/text", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "recognize: create mathpix request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", m.appID)
	req.Header.Set("app_key", m.appKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "recognize: mathpix API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "recognize: read mathpix response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("recognize: mathpix API returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var ocrResp mathpixResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "recognize: unmarshal mathpix response")
	}
	if ocrResp.Error != "" {
		return "", eris.Errorf("recognize: mathpix error: %s", ocrResp.Error)
	}
	if ocrResp.LatexStyled == "" {
		return "", eris.New("recognize: mathpix returned empty result")
	}

	return ocrResp.LatexStyled, nil
}
