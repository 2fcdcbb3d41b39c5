package code

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDataDoesNotMutateRegisteredCode(t *testing.T) {
	c := ErrorNoteNotFound.WithData(map[string]int{"id": 1}).WithDetails("detail")

	assert.True(t, c.HaveData())
	assert.True(t, c.HaveDetails())
	assert.Equal(t, []string{"detail"}, c.Details())
	assert.Equal(t, ErrorNoteNotFound.Code(), c.Code())

	assert.False(t, ErrorNoteNotFound.HaveData())
	assert.False(t, ErrorNoteNotFound.HaveDetails())
}

func TestErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", ErrorNoteContentEmpty.WithDetails("x"))
	assert.True(t, errors.Is(wrapped, ErrorNoteContentEmpty))
	assert.False(t, errors.Is(wrapped, ErrorNoteNotFound))
}

func TestLanguageFallback(t *testing.T) {
	defer SetGlobalDefaultLang("en")

	assert.NoError(t, SetGlobalDefaultLang("zh_cn"))
	assert.Equal(t, "笔记不存在", ErrorNoteNotFound.Msg())

	assert.Error(t, SetGlobalDefaultLang("fr"))
	assert.Equal(t, "en", GetGlobalDefaultLang())
	assert.Equal(t, "Note not found", ErrorNoteNotFound.Msg())
}

func TestSuccessCodes(t *testing.T) {
	assert.True(t, Success.Status())
	assert.False(t, Failed.Status())
	assert.Equal(t, 200, Success.StatusCode())
	assert.Contains(t, GetSupportedLanguages(), "zh_cn")
}
