package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailedToCheckpoint_UnwrapsUnderlyingError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantErrMsg string
	}{
		{
			name:       "with_underlying_error",
			err:        fmt.Errorf("disk full"),
			wantErrMsg: "failed to checkpoint file 7: disk full",
		},
		{
			name:       "without_underlying_error",
			err:        nil,
			wantErrMsg: "failed to checkpoint file 7: <nil>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			checkpointErr := &FailedToCheckpoint{ID: 7, Err: tc.err}

			assert.Equal(t, tc.wantErrMsg, checkpointErr.Error())
			if tc.err != nil {
				assert.True(t, errors.Is(checkpointErr, tc.err))
			}
		})
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotExist(&FileDoesNotExist{ID: 1}))
	assert.False(t, IsNotExist(&FileAlreadyExist{Path: "/a"}))

	assert.True(t, IsAlreadyExist(&FileAlreadyExist{Path: "/a"}))
	assert.True(t, IsInvalidPath(&InvalidPath{Path: "a", Reason: "not absolute"}))
	assert.True(t, IsSuspectedFileSize(&SuspectedFileSize{ID: 1, Committed: 4, Reported: 8}))

	wrapped := fmt.Errorf("rpc failed: %w", &FileDoesNotExist{ID: 5})
	assert.True(t, IsNotExist(wrapped))
}
