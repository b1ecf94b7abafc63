package identity

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-offload/config"
)

func TestGenerate(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	assert.NoError(t, ValidateID(id.ID()))
	raw, err := base58.Decode(id.ID())
	require.NoError(t, err)
	assert.Len(t, raw, IDSize)

	// 同一公钥派生出相同 ID
	again, err := IDFromPublicKey(id.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, id.ID(), again)

	t.Log("✅ Generate 测试通过")
}

func TestGenerate_Distinct(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSignVerify(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	sig := id.Sign([]byte("hello"))
	assert.True(t, Verify(id.PublicKey(), []byte("hello"), sig))
	assert.False(t, Verify(id.PublicKey(), []byte("hell0"), sig))
	assert.False(t, Verify(nil, []byte("hello"), sig))
}

func TestValidateID(t *testing.T) {
	assert.ErrorIs(t, ValidateID(""), ErrInvalidID)
	assert.ErrorIs(t, ValidateID("0OIl"), ErrInvalidID)
	assert.ErrorIs(t, ValidateID(base58.Encode([]byte("short"))), ErrInvalidID)
}

func TestIDFromPublicKey_Errors(t *testing.T) {
	_, err := IDFromPublicKey(ed25519.PublicKey(nil))
	assert.ErrorIs(t, err, ErrEmptyPublicKey)

	_, err = IDFromPublicKey("not a key")
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys", "node.key")

	t.Run("AutoGenerateWritesFile", func(t *testing.T) {
		id, err := Load(config.IdentityConfig{KeyFile: path, AutoGenerate: true})
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		again, err := Load(config.IdentityConfig{KeyFile: path})
		require.NoError(t, err)
		assert.Equal(t, id.ID(), again.ID())
	})

	t.Run("MissingWithoutAutoGenerate", func(t *testing.T) {
		_, err := Load(config.IdentityConfig{KeyFile: filepath.Join(dir, "missing.key")})
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Ephemeral", func(t *testing.T) {
		id, err := Load(config.IdentityConfig{AutoGenerate: true})
		require.NoError(t, err)
		assert.NotEmpty(t, id.ID())
	})

	t.Run("Corrupt", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.key")
		require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
		_, err := Load(config.IdentityConfig{KeyFile: bad})
		assert.ErrorIs(t, err, ErrInvalidPEM)
	})

	t.Log("✅ Load 测试通过")
}
