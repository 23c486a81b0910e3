package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/mathcheck/internal/errs"
)

func TestDisplay_Deterministic(t *testing.T) {
	a := Display(`x^2+2x+1=0`)
	b := Display(`x^2+2x+1=0`)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "math/tex; mode=display")
	assert.Contains(t, a, `x^2+2x+1=0`)
}

func TestNormalize(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) composes to U+00E9 under NFC.
	assert.Equal(t, "é", Normalize("  é "))
	assert.Equal(t, `\frac{1}{2}`, Normalize(` \frac{1}{2}`+"\n"))
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(`\frac{d}{dx}x^2 = 2x`))
	assert.NoError(t, Check(`x = -1`))

	for _, bad := range []string{"", "   ", `\frac{1}{2`, `}{`, `a[b`} {
		err := Check(bad)
		assert.Error(t, err, "input %q", bad)
		assert.True(t, errs.IsValidation(err))
	}
}
