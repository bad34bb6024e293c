package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastParams() Params {
	return Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := New(fastParams())
	require.NoError(t, err)
	return h
}

func TestHash_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	for _, pw := range []string{"pw", "test password", "my_p@ssw0rd", "пароль"} {
		encoded, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, encoded)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

		ok, err := h.Verify(encoded, pw)
		require.NoError(t, err)
		assert.True(t, ok, pw)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)

	ok, err := h.Verify(encoded, "correct horse ")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify(encoded, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltsDiffer(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_UsesParamsFromEncodedHash(t *testing.T) {
	t.Parallel()

	strong, err := New(Params{MemoryKiB: 16 * 1024, Iterations: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	encoded, err := strong.Hash("pw")
	require.NoError(t, err)

	ok, err := newTestHasher(t).Verify(encoded, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "plain text", encoded: "not-a-hash"},
		{name: "wrong algorithm", encoded: "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"},
		{name: "wrong version", encoded: "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"},
		{name: "missing param", encoded: "$argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"},
		{name: "unknown param", encoded: "$argon2id$v=19$m=8192,t=1,x=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"},
		{name: "zero memory", encoded: "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"},
		{name: "bad salt", encoded: "$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGlnZXN0ZGlnZXN0"},
		{name: "empty digest", encoded: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := h.Verify(tt.encoded, "pw")
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrHashing)
		})
	}
}

func TestNew_RejectsWeakParams(t *testing.T) {
	t.Parallel()

	bad := []Params{
		{MemoryKiB: 8 * 1024, Iterations: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 4, KeyLength: 32},
		{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
		{MemoryKiB: 0, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}
	for _, p := range bad {
		_, err := New(p)
		assert.ErrorIs(t, err, ErrHashing, "%+v", p)
	}

	_, err := New(DefaultParams())
	assert.NoError(t, err)
}
