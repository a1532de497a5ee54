package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "EMPTY", MaskSecret(""))

	masked := MaskSecret("xkeysib-123")
	assert.Equal(t, "len=11, sha256[0:8]="+HashString("xkeysib-123")[:8], masked)
	assert.NotContains(t, masked, "xkeysib")
}

func TestMaskEmail(t *testing.T) {
	masked := MaskEmail("ana@example.com")
	assert.Equal(t, HashString("ana")[:8]+"@example.com", masked)
	assert.Len(t, MaskEmail("no-at-sign"), 8)
}
