package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandSerialize(t *testing.T) {
	cmd := NewCommand(InsAttestCardKey, []byte{0x16, 0x02, 0xAA, 0xBB})
	assert.Equal(t, []byte{0x44, 0x16, 0x02, 0xAA, 0xBB}, cmd.Serialize())
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse([]byte{0x17, 0x01, 0xCC, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x17, 0x01, 0xCC}, resp.Data)
	assert.Equal(t, SwOK, resp.Sw)
	assert.True(t, resp.IsOK())
}

func TestParseResponseStatusOnly(t *testing.T) {
	resp, err := ParseResponse([]byte{0x6A, 0x86})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, SwInvalidParams, resp.Sw)
	assert.False(t, resp.IsOK())
}

func TestParseResponseTooShort(t *testing.T) {
	_, err := ParseResponse([]byte{0x90})
	assert.Error(t, err)
}
