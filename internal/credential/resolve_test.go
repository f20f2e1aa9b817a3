package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLiteral(t *testing.T) {
	value, ok := Resolve("hunter2")
	assert.True(t, ok)
	assert.Equal(t, "hunter2", value)
}

func TestResolveEnvSet(t *testing.T) {
	t.Setenv("INVOICEWATCH_TEST_PW", "s3cret")

	value, ok := Resolve("${INVOICEWATCH_TEST_PW}")
	assert.True(t, ok)
	assert.Equal(t, "s3cret", value)
}

func TestResolveEnvUnset(t *testing.T) {
	value, ok := Resolve("${INVOICEWATCH_TEST_PW_MISSING}")
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestResolveEmpty(t *testing.T) {
	value, ok := Resolve("")
	assert.True(t, ok)
	assert.Empty(t, value)
}
