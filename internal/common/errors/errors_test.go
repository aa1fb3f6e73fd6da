package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"case not found", NewCaseNotFoundError("2021-05-04"), ErrCodeCaseNotFound},
		{"schema mismatch", NewSchemaMismatchError(4, 3), ErrCodeSchemaMismatch},
		{"wrapped", fmt.Errorf("run: %w", NewMappingInvalidError("x")), ErrCodeMappingInvalid},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIsDataSource(t *testing.T) {
	assert.True(t, IsDataSource(NewConnectionFailedError(errors.New("refused"))))
	assert.True(t, IsDataSource(NewAuthenticationFailedError(errors.New("denied"))))
	assert.True(t, IsDataSource(NewCaseNotFoundError("x")))
	assert.False(t, IsDataSource(NewConfigInvalidError("x")))
	assert.False(t, IsDataSource(errors.New("boom")))
}

func TestError_Message(t *testing.T) {
	err := NewSchemaMismatchError(4, 3)
	assert.Contains(t, err.Error(), "4")
	assert.Contains(t, err.Error(), "3")
	assert.True(t, IsSchemaMismatch(fmt.Errorf("outer: %w", err)))
}

func TestCollector(t *testing.T) {
	c := NewCollector(nil)
	assert.True(t, c.Empty())

	c.Add("print/png", NewConversionFailedError("png", errors.New("renderer down")))
	c.Add("print/pdf", NewConversionFailedError("pdf", errors.New("renderer down")))

	require.Len(t, c.Failures(), 2)
	assert.False(t, c.Empty())
	assert.Equal(t, "print/png", c.Failures()[0].Scope)
	assert.Equal(t, ErrCodeConversionFailed, c.Failures()[0].Code)
	assert.Contains(t, c.Summary(), "print/pdf")
}
