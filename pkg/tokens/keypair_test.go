package tokens

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/tekxchange/internal/domain"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	var w io.Writer = io.Discard
	if buf != nil {
		w = buf
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

func TestLoadOrCreateKeyPair_CreatesThenLoads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys", "signing.key")

	first, err := LoadOrCreateKeyPair(path, KeyOptions{Logger: testLogger(nil)})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.EqualValues(t, 64, info.Size())

	second, err := LoadOrCreateKeyPair(path, KeyOptions{Logger: testLogger(nil)})
	require.NoError(t, err)
	assert.Equal(t, first.Private, second.Private)
	assert.Equal(t, first.Public, second.Public)

	token, _, err := NewAuthority(first).SignDefault(NewAccessClaims(1, "joe", domain.RoleUser))
	require.NoError(t, err)
	_, err = NewAuthority(second).Verify(token, 0)
	require.NoError(t, err)
}

func TestLoadOrCreateKeyPair_CorruptFailsLoudByDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := LoadOrCreateKeyPair(path, KeyOptions{Logger: testLogger(nil)})
	require.ErrorIs(t, err, ErrCorruptKey)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("garbage"), raw)
}

func TestLoadOrCreateKeyPair_RegeneratesWhenAllowed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 64), 0o600))

	var logs bytes.Buffer
	kp, err := LoadOrCreateKeyPair(path, KeyOptions{AllowRegenerate: true, Logger: testLogger(&logs)})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "signing_key_regenerated")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)

	reloaded, err := LoadOrCreateKeyPair(path, KeyOptions{Logger: testLogger(nil)})
	require.NoError(t, err)
	assert.Equal(t, kp.Private, reloaded.Private)
}

func TestParseKeyPair(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := ParseKeyPair(kp.Private)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, parsed.Public)

	_, err = ParseKeyPair(kp.Private[:32])
	assert.ErrorIs(t, err, ErrCorruptKey)

	tampered := bytes.Clone(kp.Private)
	tampered[63] ^= 0xff
	_, err = ParseKeyPair(tampered)
	assert.ErrorIs(t, err, ErrCorruptKey)
}
