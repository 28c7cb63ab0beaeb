package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_IsMatchesSentinelByCode(t *testing.T) {
	err := DuplicatedControllerName("UserController")

	assert.True(t, stderrors.Is(err, Sentinel(DuplicateControllerErrorCode)))
	assert.False(t, stderrors.Is(err, Sentinel(NoControllerErrorCode)))
	assert.Contains(t, err.Error(), "UserController")
}

func TestBaseError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("build: %w", NoControllerFound())

	assert.True(t, stderrors.Is(wrapped, Sentinel(NoControllerErrorCode)))
}

func TestBaseError_ErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *BaseError
		expected string
	}{
		{
			name:     "plain",
			err:      New(ValidationErrorCode, "bad"),
			expected: "bad",
		},
		{
			name:     "with cause",
			err:      Wrap(DependencyErrorCode, "resolve", stderrors.New("boom")),
			expected: "resolve: boom",
		},
		{
			name:     "with location",
			err:      New(SyntaxErrorCode, "oops").WithLocation(SourceLocation{File: "UserController", Line: 2}),
			expected: "UserController:2: oops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestInvalidUploadOptions_CarriesStatusHint(t *testing.T) {
	err := InvalidUploadOptions(42)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, UploadErrorCode, err.ErrorCode())
	assert.NotEmpty(t, err.Suggestions())
}
