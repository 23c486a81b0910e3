// Package render derives display forms from formula text. Rendering is
// deterministic: the same formula always yields the same output.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/mathcheck/internal/errs"
)

// Display wraps a LaTeX formula in the MathJax display-mode container the
// frontend embeds verbatim.
func Display(formula string) string {
	return fmt.Sprintf(`<div class="math-display"><script type="math/tex; mode=display">%s</script></div>`, formula)
}

// Normalize canonicalizes user-supplied formula or solution text: NFC
// normalization plus surrounding-whitespace trim. Two corrections that differ
// only in Unicode composition produce identical records.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Check performs a cheap structural sanity check on a formula: non-empty and
// balanced {} [] groups. It is not a LaTeX parser; it exists to reject input
// that could never render.
func Check(formula string) error {
	if strings.TrimSpace(formula) == "" {
		return errs.NewValidation("formula", "must not be empty")
	}
	var braces, brackets int
	for _, r := range formula {
		switch r {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
		if braces < 0 || brackets < 0 {
			return errs.NewValidation("formula", "unbalanced group delimiters")
		}
	}
	if braces != 0 || brackets != 0 {
		return errs.NewValidation("formula", "unbalanced group delimiters")
	}
	return nil
}
