package apikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	h, err := Hash("s3cret")
	require.NoError(t, err)

	v := New(h)
	assert.True(t, v.Enabled())
	assert.True(t, v.Verify("s3cret"))
	assert.False(t, v.Verify("wrong"))
	assert.False(t, v.Verify(""))
}

func TestDisabledWithoutHash(t *testing.T) {
	v := New("")
	assert.False(t, v.Enabled())
	assert.False(t, v.Verify("anything"))
}
