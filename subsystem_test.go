package stasis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler notes every event in order.
type recordingHandler struct {
	events []string
	saved  []SaveInfo
	loaded []SaveInfo
}

func (h *recordingHandler) HandleSaved(info SaveInfo) {
	h.events = append(h.events, "saved:"+info.Slot)
	h.saved = append(h.saved, info)
}

func (h *recordingHandler) HandleLoaded(info SaveInfo) {
	h.events = append(h.events, "loaded:"+info.Slot)
	h.loaded = append(h.loaded, info)
}

func (h *recordingHandler) HandleLevelCaptured(level string) {
	h.events = append(h.events, "captured:"+level)
}

func (h *recordingHandler) HandleLevelRestored(level string) {
	h.events = append(h.events, "restored:"+level)
}

func newTestSubsystem(t *testing.T, w World, h Handler) *Subsystem {
	t.Helper()
	b := NewBuilder().World(w).SaveDir(t.TempDir()).Logger(discardLogger())
	if h != nil {
		b.Handler(h)
	}
	sys, err := b.Init()
	require.NoError(t, err)
	return sys
}

func TestBuilder_RequiresWorld(t *testing.T) {
	_, err := NewBuilder().Init()
	assert.Error(t, err)
}

func TestBuilder_Defaults(t *testing.T) {
	sys, err := NewBuilder().World(newFakeWorld()).Init()
	require.NoError(t, err)
	assert.Equal(t, "saves", sys.SaveDir())
	assert.Equal(t, StateDisabled, sys.State())
}

func TestSubsystem_SaveLoadRoundTrip(t *testing.T) {
	w := newFakeWorld()
	d := &door{name: "front-door", Open: true}
	m := &mob{Health: 64}
	w.add("overworld", d, m)

	h := &recordingHandler{}
	sys := newTestSubsystem(t, w, h)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("slot1", "Before the boss"))
	assert.True(t, sys.SaveExists("slot1"))

	d.Open = false
	m.Health = 3
	require.NoError(t, sys.LoadGame("slot1"))

	assert.True(t, d.Open)
	assert.Equal(t, 64, m.Health)
	assert.Equal(t, StateIdle, sys.State())

	require.NotEmpty(t, h.saved)
	assert.Equal(t, "slot1", h.saved[0].Slot)
	assert.Equal(t, "Before the boss", h.saved[0].Title)
	require.NotEmpty(t, h.loaded)
	assert.Equal(t, "slot1", h.loaded[0].Slot)
}

func TestSubsystem_DisabledGate(t *testing.T) {
	sys := newTestSubsystem(t, newFakeWorld(), nil)

	assert.ErrorIs(t, sys.SaveGame("slot1", ""), ErrDisabled)
	assert.ErrorIs(t, sys.QuickSave(), ErrDisabled)
	assert.ErrorIs(t, sys.AutoSave(), ErrDisabled)
}

func TestSubsystem_LoadBeforeNewGame(t *testing.T) {
	w := newFakeWorld()
	d := &door{name: "front-door", Open: true}
	w.add("overworld", d)

	dir := t.TempDir()
	sys1, err := NewBuilder().World(w).SaveDir(dir).Logger(discardLogger()).Init()
	require.NoError(t, err)
	require.NoError(t, sys1.NewGame())
	require.NoError(t, sys1.LevelLoaded("overworld"))
	require.NoError(t, sys1.SaveGame("slot1", "handoff"))

	d.Open = false

	// A fresh subsystem, as after a process restart. No NewGame call.
	sys2, err := NewBuilder().World(w).SaveDir(dir).Logger(discardLogger()).Init()
	require.NoError(t, err)
	require.NoError(t, sys2.LevelLoaded("overworld"))
	require.NoError(t, sys2.LoadGame("slot1"))

	assert.True(t, d.Open)
	assert.Equal(t, StateIdle, sys2.State(), "a successful load should start the game")
}

func TestSubsystem_LoadGameMissing(t *testing.T) {
	sys := newTestSubsystem(t, newFakeWorld(), nil)

	assert.ErrorIs(t, sys.LoadGame("ghost"), ErrNoSuchSave)
	assert.Equal(t, StateDisabled, sys.State(), "a failed load should return to the previous state")

	require.NoError(t, sys.NewGame())
	assert.ErrorIs(t, sys.LoadGame("ghost"), ErrNoSuchSave)
	assert.Equal(t, StateIdle, sys.State())

	assert.ErrorIs(t, sys.LoadLatest(), ErrNoSuchSave, "no saves at all")
}

// reentrantHandler calls back into the subsystem mid-save.
type reentrantHandler struct {
	NopHandler
	sys *Subsystem
	err error
	hit bool
}

func (h *reentrantHandler) HandleLevelCaptured(string) {
	if !h.hit {
		h.hit = true
		h.err = h.sys.SaveGame("inner", "nested")
	}
}

func TestSubsystem_BusyDuringSave(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})

	h := &reentrantHandler{}
	sys := newTestSubsystem(t, w, h)
	h.sys = sys

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("outer", ""))

	require.True(t, h.hit)
	assert.ErrorIs(t, h.err, ErrBusy)
	assert.True(t, sys.SaveExists("outer"))
	assert.False(t, sys.SaveExists("inner"))
}

func TestSubsystem_ListSaves(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})
	sys := newTestSubsystem(t, w, nil)

	base := time.Unix(1_700_000_000, 0)
	step := 0
	sys.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("alpha", "First"))
	require.NoError(t, sys.SaveGame("beta", "Second"))
	require.NoError(t, sys.SaveGame("gamma", "Third"))

	// Noise the listing must ignore.
	require.NoError(t, os.WriteFile(filepath.Join(sys.SaveDir(), "junk.sav"), []byte("not a save"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sys.SaveDir(), "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(sys.SaveDir(), "nested.sav"), 0o755))

	infos, err := sys.ListSaves()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	var slots []string
	for _, info := range infos {
		slots = append(slots, info.Slot)
	}
	assert.Equal(t, []string{"gamma", "beta", "alpha"}, slots, "newest first")
	assert.Equal(t, "Third", infos[0].Title)
	assert.True(t, infos[0].SavedAt.After(infos[2].SavedAt))
}

func TestSubsystem_ListSavesNoDirectory(t *testing.T) {
	sys, err := NewBuilder().
		World(newFakeWorld()).
		SaveDir(filepath.Join(t.TempDir(), "missing")).
		Logger(discardLogger()).
		Init()
	require.NoError(t, err)

	infos, err := sys.ListSaves()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSubsystem_LoadLatest(t *testing.T) {
	w := newFakeWorld()
	d := &door{name: "d", Open: true}
	w.add("overworld", d)

	h := &recordingHandler{}
	sys := newTestSubsystem(t, w, h)

	base := time.Unix(1_700_000_000, 0)
	step := 0
	sys.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Hour)
	}

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("old", "Old"))
	d.Open = false
	require.NoError(t, sys.SaveGame("new", "New"))

	d.Open = true
	require.NoError(t, sys.LoadLatest())
	require.NotEmpty(t, h.loaded)
	assert.Equal(t, "new", h.loaded[0].Slot)
	assert.False(t, d.Open, "the newest save should win")
}

func TestSubsystem_QuickSaveQuickLoad(t *testing.T) {
	w := newFakeWorld()
	d := &door{name: "d", Open: true}
	w.add("overworld", d)
	sys := newTestSubsystem(t, w, nil)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.QuickSave())
	assert.True(t, sys.SaveExists(QuickSaveSlot))

	d.Open = false
	require.NoError(t, sys.QuickLoad())
	assert.True(t, d.Open)

	infos, err := sys.ListSaves()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Quick Save", infos[0].Title)
}

func TestSubsystem_AutoSave(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})
	sys := newTestSubsystem(t, w, nil)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.AutoSave())
	assert.True(t, sys.SaveExists(AutoSaveSlot))
}

func TestSubsystem_DeleteSave(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})
	sys := newTestSubsystem(t, w, nil)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("slot1", ""))

	require.NoError(t, sys.DeleteSave("slot1"))
	assert.False(t, sys.SaveExists("slot1"))
	assert.ErrorIs(t, sys.DeleteSave("slot1"), ErrNoSuchSave)
}

func TestSubsystem_InvalidSlotNames(t *testing.T) {
	sys := newTestSubsystem(t, newFakeWorld(), nil)
	require.NoError(t, sys.NewGame())

	for _, slot := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.Error(t, sys.SaveGame(slot, ""), "slot %q", slot)
		assert.Error(t, sys.LoadGame(slot), "slot %q", slot)
		assert.Error(t, sys.DeleteSave(slot), "slot %q", slot)
		assert.False(t, sys.SaveExists(slot), "slot %q", slot)
	}
}

func TestSubsystem_EndGame(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})
	sys := newTestSubsystem(t, w, nil)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("slot1", ""))
	require.NoError(t, sys.EndGame())

	assert.Equal(t, StateDisabled, sys.State())
	assert.Empty(t, sys.GameState().Document().Levels, "captured state should be dropped")
	assert.ErrorIs(t, sys.SaveGame("slot2", ""), ErrDisabled)
}

func TestSubsystem_LevelFlow(t *testing.T) {
	w := newFakeWorld()
	d := &door{name: "front-door", Open: true}
	w.add("overworld", d)

	h := &recordingHandler{}
	sys := newTestSubsystem(t, w, h)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))

	// Unloading captures into the running document without touching disk.
	require.NoError(t, sys.LevelUnloaded("overworld"))
	require.Contains(t, sys.GameState().Document().Levels, "overworld")
	assert.Contains(t, h.events, "captured:overworld")

	d.Open = false
	require.NoError(t, sys.LevelLoaded("overworld"))
	assert.True(t, d.Open, "reloading the level should restore its captured state")
}

func TestSubsystem_LevelFlowWhileDisabled(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})

	h := &recordingHandler{}
	sys := newTestSubsystem(t, w, h)

	// Levels come and go before any game starts: tracked, nothing captured.
	require.NoError(t, sys.LevelLoaded("overworld"))
	assert.Empty(t, h.events)
	assert.Empty(t, sys.GameState().Document().Levels)

	// The registration carries into the game that starts later.
	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.SaveGame("slot1", ""))
	assert.Contains(t, h.events, "captured:overworld")
}

func TestSubsystem_ForceReset(t *testing.T) {
	sys := newTestSubsystem(t, newFakeWorld(), nil)

	sys.state = StateLoading
	sys.ForceReset()
	assert.Equal(t, StateIdle, sys.State())
}

func TestSubsystem_SaveOverwriteLeavesNoTemp(t *testing.T) {
	w := newFakeWorld()
	w.add("overworld", &door{name: "d"})
	sys := newTestSubsystem(t, w, nil)

	require.NoError(t, sys.NewGame())
	require.NoError(t, sys.LevelLoaded("overworld"))
	require.NoError(t, sys.SaveGame("slot1", "one"))
	require.NoError(t, sys.SaveGame("slot1", "two"))

	infos, err := sys.ListSaves()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "two", infos[0].Title)

	entries, err := os.ReadDir(sys.SaveDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "no temp file should survive a save")
	}
}
