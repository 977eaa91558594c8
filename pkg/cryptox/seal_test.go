package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/praxis/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("test-master-key-for-encryption-12345"))
	require.NoError(t, err)

	payload := []byte(`{"email":"a@example.com","password":"hunter2"}`)

	sealed, err := s.Seal(payload)
	require.NoError(t, err)
	require.NotContains(t, sealed, "hunter2")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, payload, opened)
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("nonce-test"))
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)

	require.NotEqual(t, a, b, "multiple seals should produce different ciphertexts")
}

func TestOpenWithWrongKey(t *testing.T) {
	a, err := cryptox.NewSealer([]byte("key-a"))
	require.NoError(t, err)
	b, err := cryptox.NewSealer([]byte("key-b"))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.Error(t, err)
}

func TestOpenRejectsShortInput(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("short"))
	require.NoError(t, err)

	_, err = s.Open("AAAA")
	require.ErrorIs(t, err, cryptox.ErrCiphertextShort)

	_, err = s.Open("%%% not base64")
	require.Error(t, err)
}

func TestNewSealerRequiresMaterial(t *testing.T) {
	_, err := cryptox.NewSealer(nil)
	require.Error(t, err)
}

func TestLoadOrCreateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "praxis.key")

	first, err := cryptox.LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	require.Len(t, first, cryptox.KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := cryptox.LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "existing key file should be reused")
}
