package encoding

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSmall(t *testing.T) {
	data := []byte("tiny payload")
	encoded, err := EncodeInline(data)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(encoded, gzipPrefix))

	decoded, err := DecodeInline(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestRoundTripCompressed(t *testing.T) {
	data := bytes.Repeat([]byte("clipboard "), 500)
	encoded, err := EncodeInline(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, gzipPrefix))
	assert.Less(t, len(encoded), len(data))

	decoded, err := DecodeInline(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeInline("not base64 at all!!!")
	assert.Error(t, err)

	_, err = DecodeInline(gzipPrefix + "aGVsbG8=") // valid base64, not gzip
	assert.Error(t, err)
}
