package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
)

func newTestOverlay(vars map[string]string) (*Overlay, *memory.ConfigStore) {
	base := memory.NewConfigStore()
	o := NewOverlay(base, "")
	o.lookup = func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
	return o, base
}

func TestOverlay_VarName(t *testing.T) {
	o, _ := newTestOverlay(nil)

	assert.Equal(t, "DOCRAG_EMBEDDING_API_KEY", o.VarName("embedding.api_key"))
	assert.Equal(t, "DOCRAG_RETRY_STORE_BASE_DELAY", o.VarName("retry.store.base_delay"))
	assert.Equal(t, "X_A_B", NewOverlay(nil, "X_").VarName("a-b"))
}

func TestOverlay_EnvWinsOverBase(t *testing.T) {
	o, base := newTestOverlay(map[string]string{
		"DOCRAG_LLM_PROVIDER":        "anthropic",
		"DOCRAG_CHUNKING_SIZE":       "2000",
		"DOCRAG_RETRIEVAL_THRESHOLD": "0.55",
		"DOCRAG_LLM_TIMEOUT":         "45s",
		"DOCRAG_FLAG":                "true",
		"DOCRAG_LIST":                "a, b,,c",
		"DOCRAG_EMPTY":               "",
	})
	require.NoError(t, base.Set("llm.provider", "openai"))
	require.NoError(t, base.Set("chunking.overlap", 300))
	require.NoError(t, base.Set("empty", "from-file"))

	assert.Equal(t, "anthropic", o.GetString("llm.provider"))
	assert.Equal(t, 2000, o.GetInt("chunking.size"))
	assert.Equal(t, 300, o.GetInt("chunking.overlap"))
	assert.InDelta(t, 0.55, o.GetFloat("retrieval.threshold"), 1e-9)
	assert.True(t, o.GetBool("flag"))
	assert.Equal(t, []string{"a", "b", "c"}, o.GetStringSlice("list"))
	assert.Equal(t, "from-file", o.GetString("empty"), "empty variables do not shadow")

	v, ok := o.Get("llm.timeout")
	assert.True(t, ok)
	assert.Equal(t, "45s", v)

	assert.True(t, o.Shadowed("llm.provider"))
	assert.False(t, o.Shadowed("chunking.overlap"))
}

func TestOverlay_BadNumbersReadAsZero(t *testing.T) {
	o, _ := newTestOverlay(map[string]string{
		"DOCRAG_CHUNKING_SIZE":       "big",
		"DOCRAG_RETRIEVAL_THRESHOLD": "high",
	})

	assert.Equal(t, 0, o.GetInt("chunking.size"))
	assert.Equal(t, 0.0, o.GetFloat("retrieval.threshold"))
}

func TestOverlay_WritesGoToBase(t *testing.T) {
	o, base := newTestOverlay(nil)

	require.NoError(t, o.Set("storage.backend", "sqlite"))

	assert.Equal(t, "sqlite", base.GetString("storage.backend"))
	assert.Equal(t, "sqlite", o.GetString("storage.backend"))
	assert.Equal(t, base.Path(), o.Path())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOCRAG_TEST_DOTENV_KEY=from-dotenv\nDOCRAG_TEST_DOTENV_SET=from-dotenv\n"), 0600))
	t.Setenv("DOCRAG_TEST_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOCRAG_TEST_DOTENV_KEY") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-dotenv", os.Getenv("DOCRAG_TEST_DOTENV_KEY"))
	assert.Equal(t, "from-env", os.Getenv("DOCRAG_TEST_DOTENV_SET"), "existing variables are not overridden")

	o := NewOverlay(nil, "")
	assert.Equal(t, "from-dotenv", o.GetString("test.dotenv.key"))
}
