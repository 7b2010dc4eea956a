package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

func writePrompt(t *testing.T, dir, name, text string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name+".txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docrag", "prompts"), store.Dir())
}

func TestPromptStore_SeedsDirectoryOnFirstLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "constructor must not write")

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptAnswerSystem], prompt)

	for _, f := range []string{"answer_system.txt", "answer_user.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, driven.PromptAnswerSystem, "  house rules  \n", time.Now())

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "house rules", prompt)

	data, err := os.ReadFile(filepath.Join(dir, "answer_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  house rules  \n", string(data))
}

func TestPromptStore_PicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writePrompt(t, dir, driven.PromptAnswerSystem, "first", base)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "first", prompt)

	writePrompt(t, dir, driven.PromptAnswerSystem, "second", base.Add(time.Minute))

	prompt, err = store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "second", prompt)
}

func TestPromptStore_CachesUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	modTime := time.Now().Add(-time.Hour)
	writePrompt(t, dir, driven.PromptAnswerSystem, "cached", modTime)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	// Same mtime: the cached text wins.
	writePrompt(t, dir, driven.PromptAnswerSystem, "ignored", modTime)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "cached", prompt)
}

func TestPromptStore_FallsBackToBuiltin(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		text   string
	}{
		{"one placeholder", driven.PromptAnswerUser, "Only one slot: %s"},
		{"placeholder in system prompt", driven.PromptAnswerSystem, "rules %s"},
		{"blank file", driven.PromptAnswerSystem, "   \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writePrompt(t, dir, tt.prompt, tt.text, time.Now())
			store, err := NewPromptStore(dir)
			require.NoError(t, err)

			prompt, err := store.Load(tt.prompt)

			require.NoError(t, err)
			assert.Equal(t, driven.DefaultPrompts[tt.prompt], prompt)
		})
	}
}

func TestPromptStore_DeletedFileUsesBuiltin(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "answer_user.txt")))

	prompt, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptAnswerUser], prompt)
}

func TestPromptStore_AcceptsCustomUserTemplate(t *testing.T) {
	dir := t.TempDir()
	custom := "Context:\n%s\n\nQ: %s"
	writePrompt(t, dir, driven.PromptAnswerUser, custom, time.Now())

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_ConcurrentLoads(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = store.Load(driven.PromptAnswerUser)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, driven.DefaultPrompts[driven.PromptAnswerUser], r)
	}
}
