package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piso/hal"
)

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys("select, Up,down,,enter")
	require.NoError(t, err)
	assert.Equal(t, []hal.KeyCode{hal.KeyEnter, hal.KeyUp, hal.KeyDown, hal.KeyEnter}, keys)

	keys, err = parseKeys("")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = parseKeys("left")
	assert.Error(t, err)
}
