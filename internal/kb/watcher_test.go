package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyTestdata(t *testing.T) (vars, rules string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"variables.json", "rules.json"} {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
	return filepath.Join(dir, "variables.json"), filepath.Join(dir, "rules.json")
}

type reloadLog struct {
	mu     sync.Mutex
	bases  []*KnowledgeBase
	errors []error
}

func (r *reloadLog) record(kb *KnowledgeBase, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errors = append(r.errors, err)
		return
	}
	r.bases = append(r.bases, kb)
}

func (r *reloadLog) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bases), len(r.errors)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	varsPath, rulesPath := copyTestdata(t)
	initial, err := Load(varsPath, rulesPath)
	require.NoError(t, err)

	log := &reloadLog{}
	w, err := NewWatcher(initial, log.record)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsWatching())
	assert.Contains(t, w.WatchedDirs(), filepath.Dir(varsPath))

	// Drop r3 from the rule set.
	data, err := os.ReadFile(rulesPath)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	var kept []string
	for _, l := range lines {
		if strings.Contains(l, `"r3"`) {
			continue
		}
		kept = append(kept, l)
	}
	edited := strings.Replace(strings.Join(kept, "\n"), `"estepa"}},`, `"estepa"}}`, 1)
	require.NoError(t, os.WriteFile(rulesPath, []byte(edited), 0644))

	require.Eventually(t, func() bool {
		ok, _ := log.counts()
		return ok >= 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2"}, w.Current().FIS.RuleNames())
	assert.NotSame(t, initial, w.Current())

	// A broken edit keeps the last good base.
	good := w.Current()
	require.NoError(t, os.WriteFile(varsPath, []byte(`{"T": `), 0644))
	require.Eventually(t, func() bool {
		_, failed := log.counts()
		return failed >= 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Same(t, good, w.Current())

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Reloads, 1)
	assert.GreaterOrEqual(t, stats.FailedReloads, 1)
	assert.NotEmpty(t, stats.LastError)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	varsPath, rulesPath := copyTestdata(t)
	initial, err := Load(varsPath, rulesPath)
	require.NoError(t, err)

	log := &reloadLog{}
	w, err := NewWatcher(initial, log.record)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(varsPath), "notes.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	ok, failed := log.counts()
	assert.Zero(t, ok)
	assert.Zero(t, failed)
	assert.Zero(t, w.Stats().Events)
	assert.False(t, w.IsWatching())
	assert.Same(t, initial, w.Current())
}

func TestWatcher_ManualReload(t *testing.T) {
	varsPath, rulesPath := copyTestdata(t)
	initial, err := Load(varsPath, rulesPath)
	require.NoError(t, err)

	w, err := NewWatcher(initial, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Reload())
	assert.NotSame(t, initial, w.Current())

	require.NoError(t, os.Remove(rulesPath))
	assert.Error(t, w.Reload())
	assert.Equal(t, 1, w.Stats().FailedReloads)

	_, err = NewWatcher(nil, nil)
	assert.Error(t, err)
}
