package verify

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/model"
)

// parseVerdict extracts a verdict from a model response. The structured JSON
// contract is the primary path; the textual heuristic remains only for
// responses that predate it or ignore the format instruction.
func parseVerdict(text string) (*model.Verdict, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.New("empty model response")
	}

	if v, ok := parseStructured(text); ok {
		return v, nil
	}
	return heuristicVerdict(text), nil
}

type verdictJSON struct {
	IsCorrect   *bool    `json:"is_correct"`
	Explanation string   `json:"explanation"`
	Steps       []string `json:"steps"`
}

func parseStructured(text string) (*model.Verdict, bool) {
	// Models sometimes wrap the object in a code fence or preamble; parse
	// from the first brace to the last.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var vj verdictJSON
	if err := json.Unmarshal([]byte(text[start:end+1]), &vj); err != nil {
		return nil, false
	}
	if vj.IsCorrect == nil || vj.Explanation == "" {
		return nil, false
	}

	return &model.Verdict{
		IsCorrect:   *vj.IsCorrect,
		Explanation: vj.Explanation,
		Steps:       vj.Steps,
	}, true
}

// heuristicVerdict derives correctness from free text: an affirmative marker
// must be present and no negation marker may appear. Known-fragile; kept as a
// legacy path only.
func heuristicVerdict(text string) *model.Verdict {
	lower := strings.ToLower(text)

	negations := []string{"incorrect", "not correct", "wrong", "mistake", "error in"}
	affirmatives := []string{"correct", "right", "valid"}

	negative := false
	for _, n := range negations {
		if strings.Contains(lower, n) {
			negative = true
			break
		}
	}
	affirmative := false
	if !negative {
		for _, a := range affirmatives {
			if strings.Contains(lower, a) {
				affirmative = true
				break
			}
		}
	}

	return &model.Verdict{
		IsCorrect:   affirmative && !negative,
		Explanation: text,
		Steps:       splitSteps(text),
	}
}

// splitSteps breaks a free-text explanation into ordered reasoning steps.
func splitSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
