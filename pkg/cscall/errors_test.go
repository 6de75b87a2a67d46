package cscall

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCallErrorChain проверяет обертывание и сравнение по коду
func TestCallErrorChain(t *testing.T) {
	cause := errors.New("обработчик слота недоступен")
	err := wrapCallError(CodeResourceUnavailable, "DialRequest", 1, cause)

	assert.True(t, HasCode(err, CodeResourceUnavailable))
	assert.False(t, HasCode(err, CodeInvalidCallState))
	assert.ErrorIs(t, err, cause)

	// Сравнение по коду через errors.Is
	assert.ErrorIs(t, err, &CallError{Code: CodeResourceUnavailable})

	// Код выживает обертывание в fmt.Errorf
	wrapped := fmt.Errorf("операция не принята: %w", err)
	assert.True(t, HasCode(wrapped, CodeResourceUnavailable))

	var ce *CallError
	require.True(t, AsCallError(wrapped, &ce))
	assert.Equal(t, "DialRequest", ce.Op)
	assert.Equal(t, int32(1), ce.SlotID)
}

// TestCodeString строковые представления кодов
func TestCodeString(t *testing.T) {
	assert.Equal(t, "ConnectionNotFound", CodeConnectionNotFound.String())
	assert.Equal(t, "MMIHandled", CodeMMIHandled.String())
	assert.Contains(t, Code(42).String(), "Unknown")
}
