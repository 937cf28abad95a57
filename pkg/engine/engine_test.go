package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gavin1937/aggregate-linker/pkg/config"
	"github.com/Gavin1937/aggregate-linker/pkg/filesystem"
	"github.com/Gavin1937/aggregate-linker/pkg/testutil"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// fakeSource is a hand-driven types.EventSource.
type fakeSource struct {
	mu      sync.Mutex
	events  chan types.Event
	errs    chan error
	watched map[string]bool
	once    sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events:  make(chan types.Event, 64),
		errs:    make(chan error, 8),
		watched: make(map[string]bool),
	}
}

func (s *fakeSource) Add(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[dir] = true
	return nil
}

func (s *fakeSource) Remove(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, dir)
	return nil
}

func (s *fakeSource) Events() <-chan types.Event { return s.events }
func (s *fakeSource) Errors() <-chan error       { return s.errs }

func (s *fakeSource) Close() error {
	s.once.Do(func() {
		close(s.events)
		close(s.errs)
	})
	return nil
}

func (s *fakeSource) watching(dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched[dir]
}

func (s *fakeSource) send(ev types.Event) { s.events <- ev }

// recordingReporter captures heal notifications for assertions.
type recordingReporter struct {
	types.NopReporter
	mu            sync.Mutex
	healCompleted []int
}

func (r *recordingReporter) HealCompleted(_ string, created int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healCompleted = append(r.healCompleted, created)
}

func (r *recordingReporter) completions() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.healCompleted...)
}

func sourceSpec(base, suffix string) types.SourceSpec {
	return types.SourceSpec{
		Pattern:    filepath.Join(base, suffix),
		BaseDir:    base,
		GlobSuffix: suffix,
	}
}

// startEngine runs the engine in the background and returns a cancel
// function that blocks until Run has returned (shutdown complete).
func startEngine(t *testing.T, cfg *config.Config, src types.EventSource, rep types.Reporter) func() {
	t.Helper()
	eng, err := New(cfg, filesystem.NewOS(), src, rep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not shut down")
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond, msg)
}

func linkExists(root, name string) func() bool {
	return func() bool {
		info, err := os.Lstat(filepath.Join(root, name))
		return err == nil && info.Mode()&os.ModeSymlink != 0
	}
}

func linkGone(root, name string) func() bool {
	return func() bool {
		_, err := os.Lstat(filepath.Join(root, name))
		return os.IsNotExist(err)
	}
}

func TestEngine_StartupScanAndCleanShutdown(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	root := t.TempDir()

	testutil.WriteFile(t, srcA, "a1.txt", "A")
	testutil.WriteFile(t, srcA, "a2.txt", "A")
	testutil.WriteFile(t, srcB, "b1.txt", "B")
	testutil.WriteFile(t, root, "precious.txt", "user file, not ours")

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcA, "*.txt"), sourceSpec(srcB, "*.txt")},
		HealIdleTimeout: 50 * time.Millisecond,
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)

	eventually(t, linkExists(root, "a1.txt"), "a1.txt not linked")
	eventually(t, linkExists(root, "b1.txt"), "b1.txt not linked")
	assert.True(t, src.watching(srcA))
	assert.True(t, src.watching(filepath.Dir(srcA)))

	stop()

	// Exactly the owned links are removed; the user's file survives.
	assert.Equal(t, []string{"precious.txt"}, testutil.ReadDirNames(t, root))
}

func TestEngine_CreateAndDeleteEvents(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcDir, "*.txt")},
		HealIdleTimeout: 50 * time.Millisecond,
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)
	defer stop()

	path := testutil.WriteFile(t, srcDir, "new.txt", "fresh")
	src.send(types.Event{Type: types.EventCreated, Path: path})
	eventually(t, linkExists(root, "new.txt"), "create event not reconciled")

	// A non-matching file produces no link.
	png := testutil.WriteFile(t, srcDir, "image.png", "nope")
	src.send(types.Event{Type: types.EventCreated, Path: png})

	require.NoError(t, os.Remove(path))
	src.send(types.Event{Type: types.EventDeleted, Path: path})
	eventually(t, linkGone(root, "new.txt"), "delete event not reconciled")

	assert.NoFileExists(t, filepath.Join(root, "image.png"))
}

func TestEngine_RenameTreatedAsDeleteThenCreate(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcDir, "*.txt")},
		HealIdleTimeout: 50 * time.Millisecond,
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)
	defer stop()

	oldPath := testutil.WriteFile(t, srcDir, "old.txt", "x")
	src.send(types.Event{Type: types.EventCreated, Path: oldPath})
	eventually(t, linkExists(root, "old.txt"), "initial link missing")

	newPath := filepath.Join(srcDir, "new.txt")
	require.NoError(t, os.Rename(oldPath, newPath))
	src.send(types.Event{Type: types.EventRenamed, Path: oldPath})
	src.send(types.Event{Type: types.EventCreated, Path: newPath})

	eventually(t, linkGone(root, "old.txt"), "old link not released")
	eventually(t, linkExists(root, "new.txt"), "new link not claimed")
}

func TestEngine_HealCycle(t *testing.T) {
	parent := t.TempDir()
	srcDir := testutil.MkDir(t, parent, "source")
	root := t.TempDir()
	quiet := 150 * time.Millisecond

	testutil.WriteFile(t, srcDir, "orig.txt", "original")

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcDir, "*.txt")},
		HealIdleTimeout: quiet,
	}

	rep := &recordingReporter{}
	src := newFakeSource()
	stop := startEngine(t, cfg, src, rep)
	defer stop()

	eventually(t, linkExists(root, "orig.txt"), "startup link missing")

	// The whole source directory goes away.
	require.NoError(t, os.RemoveAll(srcDir))
	src.send(types.Event{Type: types.EventDeleted, Path: srcDir})
	eventually(t, linkGone(root, "orig.txt"), "stale link kept after source deletion")

	// Recreate it and write three files with gaps shorter than the
	// quiet period; each write resets the debounce timer.
	require.NoError(t, os.Mkdir(srcDir, 0755))
	src.send(types.Event{Type: types.EventCreated, Path: srcDir, IsDir: true})

	for _, name := range []string{"f1.txt", "f2.txt", "f3.txt"} {
		time.Sleep(quiet / 3)
		path := testutil.WriteFile(t, srcDir, name, "healed")
		src.send(types.Event{Type: types.EventCreated, Path: path})
	}

	// Still settling: no rescan may have happened yet.
	assert.Empty(t, rep.completions())

	eventually(t, linkExists(root, "f1.txt"), "rescan missed f1")
	eventually(t, linkExists(root, "f2.txt"), "rescan missed f2")
	eventually(t, linkExists(root, "f3.txt"), "rescan missed f3")

	// Exactly one rescan, and it found all three files.
	eventually(t, func() bool { return len(rep.completions()) == 1 }, "expected one heal completion")
	assert.Equal(t, []int{3}, rep.completions())
}

func TestEngine_MissingSourceAtStartup(t *testing.T) {
	parent := t.TempDir()
	srcDir := filepath.Join(parent, "not_yet")
	root := t.TempDir()
	quiet := 50 * time.Millisecond

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcDir, "*.txt")},
		HealIdleTimeout: quiet,
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)
	defer stop()

	// The parent is watched even though the source is absent.
	eventually(t, func() bool { return src.watching(parent) }, "parent not watched")
	assert.False(t, src.watching(srcDir))

	// The source appears: heal kicks in and links its contents.
	require.NoError(t, os.Mkdir(srcDir, 0755))
	testutil.WriteFile(t, srcDir, "late.txt", "finally")
	src.send(types.Event{Type: types.EventCreated, Path: srcDir, IsDir: true})

	eventually(t, linkExists(root, "late.txt"), "late source never linked")
}

func TestEngine_EventsIgnoredWhileSourceDeleted(t *testing.T) {
	parent := t.TempDir()
	srcDir := testutil.MkDir(t, parent, "source")
	root := t.TempDir()

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{sourceSpec(srcDir, "*.txt")},
		HealIdleTimeout: time.Minute, // never quiesces during the test
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)
	defer stop()

	src.send(types.Event{Type: types.EventDeleted, Path: srcDir})

	// Content events while Deleted are stale and must not create links.
	// The file genuinely exists so only the phase check can reject it.
	ghost := testutil.WriteFile(t, srcDir, "ghost.txt", "stale")
	src.send(types.Event{Type: types.EventCreated, Path: ghost})

	time.Sleep(100 * time.Millisecond)
	assert.NoFileExists(t, filepath.Join(root, "ghost.txt"))
}

func TestEngine_RootCreationFailureIsFatal(t *testing.T) {
	// A root path below an existing regular file cannot be created.
	dir := t.TempDir()
	blocker := testutil.WriteFile(t, dir, "blocker", "file, not dir")

	cfg := &config.Config{
		Root:            filepath.Join(blocker, "root"),
		Sources:         []types.SourceSpec{sourceSpec(t.TempDir(), "*.txt")},
		HealIdleTimeout: time.Second,
	}

	_, err := New(cfg, filesystem.NewOS(), newFakeSource(), nil)
	require.Error(t, err)
}

func TestEngine_DisabledSpecNotWatched(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()
	testutil.WriteFile(t, srcDir, "a.txt", "x")

	disabled := sourceSpec(srcDir, "*.txt")
	disabled.Disabled = true
	disabled.DisabledReason = "invalid glob suffix"

	cfg := &config.Config{
		Root:            root,
		Sources:         []types.SourceSpec{disabled},
		HealIdleTimeout: time.Second,
	}

	src := newFakeSource()
	stop := startEngine(t, cfg, src, nil)
	time.Sleep(50 * time.Millisecond)
	stop()

	assert.False(t, src.watching(srcDir))
	assert.Empty(t, testutil.ReadDirNames(t, root))
}
