package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("429"), 429), "dataforseo"), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"flattened timeout", eris.New("Post \"https://api\": i/o timeout"), true},
		{"dns failure", eris.New("dial tcp: lookup api: no such host"), true},
		{"auth failure", eris.New("401 unauthorized"), false},
		{"plain error", eris.New("malformed response"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := eris.New("server error")
	te := NewTransientError(inner, 503)

	assert.Equal(t, "server error", te.Error())
	assert.True(t, eris.Is(te, inner))
	assert.Equal(t, 503, te.StatusCode)
}
