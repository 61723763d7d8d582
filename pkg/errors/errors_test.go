package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseAndStack(t *testing.T) {
	inner := New(ErrorTypeStore, "dial failed")
	outer := Wrap(inner, ErrorTypeIO, "compute splits")

	require.NotNil(t, outer)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, stderrors.Is(outer, inner))
	assert.Equal(t, "io: compute splits: store: dial failed", outer.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "nothing"))
}

func TestIsTypeAndHasType(t *testing.T) {
	inner := New(ErrorTypeStore, "timeout")
	outer := Wrap(fmt.Errorf("attempt 3: %w", inner), ErrorTypeIO, "discover")

	assert.True(t, IsType(outer, ErrorTypeIO))
	assert.False(t, IsType(outer, ErrorTypeStore))
	assert.True(t, HasType(outer, ErrorTypeStore))
	assert.False(t, HasType(outer, ErrorTypeConfig))
	assert.False(t, HasType(stderrors.New("plain"), ErrorTypeStore))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeArgument, "split size %d must be positive", 0)
	assert.Equal(t, "argument: split size 0 must be positive", err.Error())
	assert.NotEmpty(t, err.Stack)
}
