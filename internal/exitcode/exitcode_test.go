package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"unauthorized", errors.New(errors.ErrCodeUnauthorized, "denied"), AuthError},
		{"bad sites file", errors.NewFileUnmarshalError("sites.json", "JSON", fmt.Errorf("eof")), ConfigError},
		{"wrapped config error", fmt.Errorf("serve: %w", errors.New(errors.ErrCodeConfigInvalid, "no password")), ConfigError},
		{"port in use", fmt.Errorf("listen tcp :4242: bind: address already in use"), NetworkError},
		{"unknown flag", fmt.Errorf("unknown flag: --prot"), UsageError},
		{"anything else", fmt.Errorf("boom"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, GeneralError, UsageError, AuthError, NetworkError, ConfigError, Interrupted} {
		assert.NotEqual(t, "Unknown error", GetExitCodeDescription(code), "code %d", code)
	}
	assert.Equal(t, "Unknown error", GetExitCodeDescription(99))
}
