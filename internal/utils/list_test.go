package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{"a"}, UniqueStrings([]string{"a"}))
	assert.Empty(t, UniqueStrings(nil))
}

func TestIsStringInSlice(t *testing.T) {
	assert.True(t, IsStringInSlice("b", []string{"a", "b"}))
	assert.False(t, IsStringInSlice("z", []string{"a", "b"}))
	assert.False(t, IsStringInSlice("a", nil))
}
