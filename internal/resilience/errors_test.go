package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient_Syscall(t *testing.T) {
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(syscall.ECONNREFUSED))
	assert.True(t, IsTransient(eris.Wrap(syscall.ECONNABORTED, "dial")))
}

func TestIsTransient_TypedWrap(t *testing.T) {
	err := eris.Wrap(NewTransientError(eris.New("mathpix API returned 503"), 503), "recognize")
	assert.True(t, IsTransient(err))
}

func TestIsTransient_StringPatterns(t *testing.T) {
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(eris.New("lookup api.mathpix.com: no such host")))
	assert.False(t, IsTransient(eris.New("mathpix API returned 401: unauthorized")))
}
