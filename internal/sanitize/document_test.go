package sanitize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_JSON(t *testing.T) {
	out, err := Document([]byte(`{"password": "12345", "id": 12345678901234567890, "tags": ["a", "b"]}`))
	require.NoError(t, err)

	var got map[string]any
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&got))

	assert.Equal(t, Mask, got["password"])
	assert.Equal(t, json.Number("12345678901234567890"), got["id"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
}

func TestDocument_Text(t *testing.T) {
	out, err := Document([]byte("path: ../secrets/../'nuclear_codes.txt'\n"))
	require.NoError(t, err)
	assert.Equal(t, "path: secrets/\\'nuclear_codes.txt\\'\n", string(out))

	out, err = Document([]byte("token=abc123 is not json"))
	require.NoError(t, err)
	assert.Equal(t, "token: **** is not json", string(out))
}

func TestDocument_Empty(t *testing.T) {
	_, err := Document([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}
