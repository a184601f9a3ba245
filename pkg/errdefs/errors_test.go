package errdefs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  error
		label string
	}{
		{"not found", NotFound("registry.resolve", "unknown worker: %s", "ghost"), ErrNotFound, "not_found"},
		{"mismatch", CapabilityMismatch("registry.resolve", "parser cannot perform summarize"), ErrCapabilityMismatch, "capability_mismatch"},
		{"execution", Execution("dispatch.invoke", errors.New("connection refused")), ErrExecution, "execution"},
		{"substitution", Substitution("dispatch.chain", "step 0 has no previous step"), ErrSubstitution, "substitution"},
		{"invalid", InvalidArgument("dispatch.batch", "no tasks"), ErrInvalidArgument, "invalid_argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.kind))
			assert.Equal(t, tt.label, KindOf(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.kind))
			assert.Equal(t, tt.label, KindOf(wrapped))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("registry.resolve", "unknown worker: %s", "ghost")
	assert.Equal(t, "registry.resolve: unknown worker: ghost", err.Error())

	err = Execution("dispatch.invoke", context.DeadlineExceeded)
	assert.Equal(t, "dispatch.invoke: inference call failed: context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	bare := &Error{Kind: ErrNotFound}
	assert.Equal(t, "not found", bare.Error())
}

func TestKindOfUnknown(t *testing.T) {
	assert.Equal(t, "internal", KindOf(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("not found")))
}
