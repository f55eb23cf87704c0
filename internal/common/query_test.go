package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtoiDefault(t *testing.T) {
	require.Equal(t, 20, AtoiDefault("", 20))
	require.Equal(t, 20, AtoiDefault("abc", 20))
	require.Equal(t, 7, AtoiDefault("7", 20))
	require.Equal(t, -3, AtoiDefault("-3", 20))
}
