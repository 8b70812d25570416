package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/faultline/internal/llm"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolve_VendorDefault(t *testing.T) {
	r, err := NewResolver(env(map[string]string{"GOOGLE_API_KEY": "g-key"}), "")
	require.NoError(t, err)

	key, err := r.Resolve(llm.ProviderGemini, "")
	require.NoError(t, err)
	assert.Equal(t, "g-key", key)
	assert.Equal(t, "env:GOOGLE_API_KEY", r.Source(llm.ProviderGemini, ""))
}

func TestResolve_SharedFallback(t *testing.T) {
	r, err := NewResolver(env(map[string]string{SharedKeyVar: "shared"}), "")
	require.NoError(t, err)

	key, err := r.Resolve(llm.ProviderAnthropic, "")
	require.NoError(t, err)
	assert.Equal(t, "shared", key)
}

func TestResolve_EnvRef(t *testing.T) {
	r, err := NewResolver(env(map[string]string{"MY_KEY": " k1 \n"}), "")
	require.NoError(t, err)

	for _, ref := range []string{"env:MY_KEY", "MY_KEY"} {
		key, err := r.Resolve(llm.ProviderOpenAI, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "k1", key)
	}
}

func TestResolve_FileRef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("file-key\n"), 0o600))

	r, err := NewResolver(env(nil), "")
	require.NoError(t, err)

	key, err := r.Resolve(llm.ProviderOpenAI, "file:"+path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", key)

	_, err = r.Resolve(llm.ProviderOpenAI, "file:"+filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestResolve_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	r, err := NewResolver(env(nil), "")
	require.NoError(t, err)
	_, err = r.Resolve(llm.ProviderOpenAI, "file:"+path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_DotenvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=from-dotenv\nANTHROPIC_API_KEY=dotenv-a\n"), 0o600))

	r, err := NewResolver(env(map[string]string{"ANTHROPIC_API_KEY": "process-a"}), path)
	require.NoError(t, err)

	key, err := r.Resolve(llm.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", key)

	key, err = r.Resolve(llm.ProviderAnthropic, "")
	require.NoError(t, err)
	assert.Equal(t, "process-a", key, "process environment wins")
}

func TestResolve_NotFoundNamesVariablesOnly(t *testing.T) {
	r, err := NewResolver(env(map[string]string{"UNRELATED": "secret-value"}), "")
	require.NoError(t, err)

	_, err = r.Resolve(llm.ProviderOpenAI, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.NotContains(t, err.Error(), "secret-value")
	assert.Equal(t, "unset", r.Source(llm.ProviderOpenAI, ""))
}

func TestNewResolver_MissingEnvFile(t *testing.T) {
	_, err := NewResolver(nil, filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
