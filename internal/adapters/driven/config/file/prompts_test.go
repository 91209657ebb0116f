package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

const questionFile = driven.PromptQuestionGeneration + ".txt"

func newTestPromptStore(t *testing.T, files map[string]string) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".feeder", "prompts"), store.Dir())
}

func TestPromptStore_Load_WritesDefaults(t *testing.T) {
	store, dir := newTestPromptStore(t, nil)

	prompt, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)

	// The default must format with the question count and the passage.
	formatted := fmt.Sprintf(prompt, 5, "The sky is blue.")
	assert.Contains(t, formatted, "up to 5 questions")
	assert.Contains(t, formatted, "The sky is blue.")
	assert.NotContains(t, formatted, "%!")

	for _, f := range []string{questionFile, "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_UserFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"custom", "Ask %d things about: %s", "Ask %d things about: %s"},
		{"trimmed", "\n\n  Ask %d about %s  \n", "Ask %d about %s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestPromptStore(t, map[string]string{questionFile: tt.content})

			prompt, err := store.Load(driven.PromptQuestionGeneration)
			require.NoError(t, err)
			assert.Equal(t, tt.want, prompt)

			// An existing file is never overwritten by the defaults.
			data, err := os.ReadFile(filepath.Join(dir, questionFile))
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	store, dir := newTestPromptStore(t, nil)
	_, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, questionFile)))
	store.Reload()

	prompt, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptQuestionGeneration], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t, nil)

	_, err := store.Load("nonexistent_prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store, dir := newTestPromptStore(t, map[string]string{questionFile: "first %d %s"})

	first, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, questionFile), []byte("second %d %s"), 0600))

	cached, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	reloaded, err := store.Load(driven.PromptQuestionGeneration)
	require.NoError(t, err)
	assert.Equal(t, "second %d %s", reloaded)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, _ := newTestPromptStore(t, nil)

	const goroutines = 50
	results := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptQuestionGeneration)
			assert.NoError(t, err)
			results[i] = prompt
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
