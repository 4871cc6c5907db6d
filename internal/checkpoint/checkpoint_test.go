package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(t *testing.T) streaming.State {
	t.Helper()
	acc, err := streaming.New([]float64{0, 0.5, 1}, 2)
	require.NoError(t, err)
	require.NoError(t, acc.UpdateRows([]int{0, 1}, [][]float64{{0.9, 0.1}, {0.2, 0.8}}))
	return acc.Snapshot()
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("label,score_0\n0,0.5\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("label,score_0\n1,0.5\n"), 0o644))

	thresholds := []float64{0, 0.5, 1}

	key1, err := Key([]string{a, b}, thresholds, 2)
	require.NoError(t, err)
	assert.Len(t, key1, 64)

	t.Run("path order does not matter", func(t *testing.T) {
		key2, err := Key([]string{b, a}, thresholds, 2)
		require.NoError(t, err)
		assert.Equal(t, key1, key2)
	})

	t.Run("class count changes key", func(t *testing.T) {
		key2, err := Key([]string{a, b}, thresholds, 3)
		require.NoError(t, err)
		assert.NotEqual(t, key1, key2)
	})

	t.Run("thresholds change key", func(t *testing.T) {
		key2, err := Key([]string{a, b}, []float64{0, 0.25, 1}, 2)
		require.NoError(t, err)
		assert.NotEqual(t, key1, key2)
	})

	t.Run("rewritten file changes key", func(t *testing.T) {
		require.NoError(t, os.WriteFile(a, []byte("label,score_0\n0,0.5\n1,0.9\n"), 0o644))
		key2, err := Key([]string{a, b}, thresholds, 2)
		require.NoError(t, err)
		assert.NotEqual(t, key1, key2)
	})

	t.Run("remote and missing paths hash by name", func(t *testing.T) {
		k1, err := Key([]string{"az://acct/c/x.csv", filepath.Join(dir, "missing.csv")}, thresholds, 2)
		require.NoError(t, err)
		k2, err := Key([]string{"az://acct/c/x.csv", filepath.Join(dir, "missing.csv")}, thresholds, 2)
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
	})
}

func TestKey_NoDelimiterCollision(t *testing.T) {
	k1, err := Key([]string{"ab", "c"}, []float64{0.5}, 2)
	require.NoError(t, err)
	k2, err := Key([]string{"a", "bc"}, []float64{0.5}, 2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestStore_GetPut(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "checkpoints"))

	_, ok := store.Get("abc")
	assert.False(t, ok)

	entry := &Entry{
		Key:      "abc",
		State:    sampleState(t),
		Progress: map[string]int64{"a.csv": 2},
		History:  []float64{0.75, 1},
	}
	require.NoError(t, store.Put(entry))
	assert.False(t, entry.SavedAt.IsZero())

	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Equal(t, entry.State, got.State)
	assert.Equal(t, entry.Progress, got.Progress)
	assert.Equal(t, entry.History, got.History)
	assert.WithinDuration(t, entry.SavedAt, got.SavedAt, time.Second)

	restored, err := streaming.Restore(got.State)
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored.Samples())

	require.NoError(t, store.Delete("abc"))
	_, ok = store.Get("abc")
	assert.False(t, ok)
	require.NoError(t, store.Delete("abc"))
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, ok := store.Get("bad")
	assert.False(t, ok)
}

func TestStore_PutRequiresKey(t *testing.T) {
	store := New(t.TempDir())
	require.Error(t, store.Put(&Entry{}))
}

func TestStore_Disabled(t *testing.T) {
	store := New("")
	require.NoError(t, store.Put(&Entry{Key: "k"}))
	_, ok := store.Get("k")
	assert.False(t, ok)
	require.NoError(t, store.Clear())
}

func TestStore_Clear_SafetyChecks(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		wantErr string
	}{
		{
			name:  "only checkpoint files",
			setup: func(t *testing.T, dir string) { writeFile(t, dir, "k.json") },
		},
		{
			name:  "leftover temp file",
			setup: func(t *testing.T, dir string) { writeFile(t, dir, "k.json.tmp") },
		},
		{
			name:    "foreign file",
			setup:   func(t *testing.T, dir string) { writeFile(t, dir, "notes.txt") },
			wantErr: "non-checkpoint files",
		},
		{
			name: "subdirectory",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
			},
			wantErr: "subdirectories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "ckpt")
			require.NoError(t, os.MkdirAll(dir, 0o755))
			tt.setup(t, dir)

			err := New(dir).Clear()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.DirExists(t, dir)
				return
			}
			require.NoError(t, err)
			assert.NoDirExists(t, dir)
		})
	}
}

func TestStore_ConcurrentPut(t *testing.T) {
	store := New(t.TempDir())
	state := sampleState(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(&Entry{Key: fmt.Sprintf("k%d", i), State: state}))
		}()
	}
	wg.Wait()

	for i := range 10 {
		_, ok := store.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
}
