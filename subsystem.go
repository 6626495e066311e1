package stasis

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	saveExt = ".sav"

	// QuickSaveSlot is the slot QuickSave and QuickLoad use.
	QuickSaveSlot = "quicksave"

	// AutoSaveSlot is the slot AutoSave writes.
	AutoSaveSlot = "autosave"
)

// Subsystem is the central save game coordinator. It tracks which levels
// are active, moves game state to and from disk as named slots, and fires
// handler events around each operation.
//
// All methods must be called from the same goroutine. Save and load
// operations are rejected while another one is in progress and, except for
// LoadGame and the read-only slot operations, while no game is running.
type Subsystem struct {
	// game accumulates captured state during play.
	game *GameState

	// dir is the directory save slots are written to.
	dir string

	log     *slog.Logger
	handler Handler

	// state gates operations. See State.
	state State

	// activeLevels tracks loaded levels in load order. Saves capture
	// them; loads restore them.
	activeLevels []string
	activeSet    map[string]struct{}

	// now is swappable in tests.
	now func() time.Time
}

func newSubsystem(game *GameState, dir string, handler Handler, log *slog.Logger) *Subsystem {
	return &Subsystem{
		game:      game,
		dir:       dir,
		log:       log,
		handler:   handler,
		state:     StateDisabled,
		activeSet: make(map[string]struct{}),
		now:       time.Now,
	}
}

// State returns the subsystem's current operating state.
func (s *Subsystem) State() State {
	return s.state
}

// GameState returns the game state the subsystem coordinates. Hosts reach
// through it to register globals and record destroyed objects.
func (s *Subsystem) GameState() *GameState {
	return s.game
}

// SaveDir returns the directory save slots are written to.
func (s *Subsystem) SaveDir() string {
	return s.dir
}

// NewGame resets all captured state and enables save and load operations.
// Call it when a fresh game starts.
func (s *Subsystem) NewGame() error {
	switch s.state {
	case StateSaving, StateLoading:
		return ErrBusy
	}
	s.game.Reset()
	s.state = StateIdle
	s.log.Info("stasis: new game started")
	return nil
}

// EndGame resets all captured state and disables save and load operations.
// Active level tracking survives: it reflects the host's scene, not the
// game in progress.
func (s *Subsystem) EndGame() error {
	switch s.state {
	case StateSaving, StateLoading:
		return ErrBusy
	}
	s.game.Reset()
	s.state = StateDisabled
	s.log.Info("stasis: game ended")
	return nil
}

// ForceReset returns the subsystem to the idle running state no matter
// what it was doing. Operations normally restore the state themselves;
// if a handler panic recovered by the host leaves the gate stuck at
// Saving or Loading, this reopens it. A last resort, not part of any
// normal flow.
func (s *Subsystem) ForceReset() {
	if s.state == StateIdle {
		return
	}
	s.log.Warn("stasis: state forcibly reset", "from", s.state)
	s.state = StateIdle
}

// LevelLoaded registers a level as active and, while a game is running,
// restores its stored state onto the scene. Call it after the host has
// loaded the level's objects.
func (s *Subsystem) LevelLoaded(level string) error {
	if _, ok := s.activeSet[level]; !ok {
		s.activeSet[level] = struct{}{}
		s.activeLevels = append(s.activeLevels, level)
	}
	if s.state != StateIdle {
		return nil
	}
	if err := s.game.RestoreLevel(level); err != nil {
		return err
	}
	s.handler.HandleLevelRestored(level)
	return nil
}

// LevelUnloaded captures a level's state while a game is running and
// unregisters it. Call it before the host tears the level's objects down.
func (s *Subsystem) LevelUnloaded(level string) error {
	if _, ok := s.activeSet[level]; ok {
		delete(s.activeSet, level)
		s.activeLevels = slices.DeleteFunc(s.activeLevels, func(l string) bool { return l == level })
	}
	if s.state != StateIdle {
		return nil
	}
	if err := s.game.CaptureLevel(level); err != nil {
		return err
	}
	s.handler.HandleLevelCaptured(level)
	return nil
}

// SaveGame captures every active level and the globals, then writes the
// whole game state to the named slot. The file is written to a temporary
// name and renamed into place, so a failed save never clobbers an
// existing slot.
func (s *Subsystem) SaveGame(slot, title string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	switch s.state {
	case StateDisabled:
		return ErrDisabled
	case StateSaving, StateLoading:
		return ErrBusy
	}
	s.state = StateSaving
	defer func() { s.state = StateIdle }()

	for _, level := range s.activeLevels {
		if err := s.game.CaptureLevel(level); err != nil {
			return err
		}
		s.handler.HandleLevelCaptured(level)
	}
	if err := s.game.CaptureGlobals(); err != nil {
		return err
	}

	doc := s.game.Document()
	doc.Title = title
	doc.SavedAt = s.now()

	if err := s.writeSave(slot, doc); err != nil {
		return err
	}

	s.log.Info("stasis: game saved", "slot", slot, "title", title)
	s.handler.HandleSaved(SaveInfo{Slot: slot, Title: title, SavedAt: doc.SavedAt})
	return nil
}

// LoadGame reads the named slot, replaces the game state with its
// contents and restores the globals and every active level. It may be
// called before NewGame: a successful load starts the game.
func (s *Subsystem) LoadGame(slot string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	switch s.state {
	case StateSaving, StateLoading:
		return ErrBusy
	}
	prev := s.state
	s.state = StateLoading

	info, err := s.loadGame(slot)
	if err != nil {
		s.state = prev
		return err
	}
	s.state = StateIdle

	s.log.Info("stasis: game loaded", "slot", slot, "title", info.Title)
	s.handler.HandleLoaded(info)
	return nil
}

func (s *Subsystem) loadGame(slot string) (SaveInfo, error) {
	f, err := os.Open(s.slotPath(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return SaveInfo{}, fmt.Errorf("stasis: slot %q: %w", slot, ErrNoSuchSave)
	}
	if err != nil {
		return SaveInfo{}, fmt.Errorf("stasis: open save file: %w", err)
	}
	defer f.Close()

	doc, err := ReadSaveDocument(f)
	if err != nil {
		return SaveInfo{}, err
	}

	s.game.SetDocument(doc)
	if err := s.game.RestoreGlobals(); err != nil {
		return SaveInfo{}, err
	}
	for _, level := range s.activeLevels {
		if err := s.game.RestoreLevel(level); err != nil {
			return SaveInfo{}, err
		}
		s.handler.HandleLevelRestored(level)
	}

	return SaveInfo{Slot: slot, Title: doc.Title, SavedAt: doc.SavedAt}, nil
}

// QuickSave saves to the quick save slot.
func (s *Subsystem) QuickSave() error {
	return s.SaveGame(QuickSaveSlot, "Quick Save")
}

// QuickLoad loads the quick save slot.
func (s *Subsystem) QuickLoad() error {
	return s.LoadGame(QuickSaveSlot)
}

// AutoSave saves to the autosave slot.
func (s *Subsystem) AutoSave() error {
	return s.SaveGame(AutoSaveSlot, "Autosave")
}

// LoadLatest loads the most recently written save, or ErrNoSuchSave if
// there are none.
func (s *Subsystem) LoadLatest() error {
	infos, err := s.ListSaves()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return ErrNoSuchSave
	}
	return s.LoadGame(infos[0].Slot)
}

// ListSaves returns the header metadata of every save in the save
// directory, newest first. Only file headers are read, so listing stays
// cheap for large saves. Unreadable files are logged and skipped. It may
// be called in any state.
func (s *Subsystem) ListSaves() ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stasis: read save directory: %w", err)
	}

	var infos []SaveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), saveExt) {
			continue
		}
		info, err := readInfoFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("stasis: unreadable save file", "file", e.Name(), "error", err)
			continue
		}
		info.Slot = strings.TrimSuffix(e.Name(), saveExt)
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b SaveInfo) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slot, b.Slot)
	})
	return infos, nil
}

// DeleteSave removes the named slot from disk.
func (s *Subsystem) DeleteSave(slot string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	err := os.Remove(s.slotPath(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stasis: slot %q: %w", slot, ErrNoSuchSave)
	}
	if err != nil {
		return fmt.Errorf("stasis: delete save: %w", err)
	}
	s.log.Info("stasis: save deleted", "slot", slot)
	return nil
}

// SaveExists reports whether the named slot exists on disk.
func (s *Subsystem) SaveExists(slot string) bool {
	if validSlot(slot) != nil {
		return false
	}
	_, err := os.Stat(s.slotPath(slot))
	return err == nil
}

func (s *Subsystem) slotPath(slot string) string {
	return filepath.Join(s.dir, slot+saveExt)
}

func (s *Subsystem) writeSave(slot string, doc *SaveDocument) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("stasis: create save directory: %w", err)
	}
	path := s.slotPath(slot)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("stasis: create save file: %w", err)
	}
	if err := doc.Write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("stasis: close save file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("stasis: replace save file: %w", err)
	}
	return nil
}

func readInfoFile(path string) (SaveInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SaveInfo{}, err
	}
	defer f.Close()
	return ReadSaveInfo(f)
}

// validSlot rejects slot names that would escape the save directory or
// collide with path syntax.
func validSlot(slot string) error {
	if slot == "" || slot == "." || slot == ".." || strings.ContainsAny(slot, `/\`) {
		return fmt.Errorf("stasis: invalid slot name %q", slot)
	}
	return nil
}
