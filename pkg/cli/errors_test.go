package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/cwlens/pkg/config"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "server.listen_address",
		Message: "missing required field",
	}

	expected := "config error in server.listen_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	noField := NewConfigError("", "no config file found")
	if got := noField.Error(); got != "config error: no config file found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should find the wrapped error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config error", NewConfigError("output", "bad"), ExitConfig},
		{"wrapped validation", fmt.Errorf("load: %w", config.ValidationError{}), ExitConfig},
		{"command wrapping config", NewCommandError("run", NewConfigError("x", "y")), ExitConfig},
		{"explicit code", &CommandError{Command: "validate", Err: errors.New("2 errors"), Code: ExitInvalid}, ExitInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
