package stasis

import (
	"bytes"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// GameState is the in-memory state of the running game: one SaveDocument
// mutated during play. Levels are captured into it as they unload and
// restored out of it as they load; writing the whole document to disk is
// what makes a save.
//
// GameState performs no locking. The subsystem gates operations so at most
// one capture or restore runs at a time, and hosts must not call into it
// concurrently.
type GameState struct {
	doc      *SaveDocument
	world    World
	provider FieldProvider
	log      *slog.Logger
	policy   map[string]RespawnMode

	globals     map[string]any
	globalOrder []string
}

// NewGameState returns an empty game state bound to a world. provider and
// log may be nil, selecting the tag provider and slog.Default.
func NewGameState(world World, provider FieldProvider, policy map[string]RespawnMode, log *slog.Logger) *GameState {
	if provider == nil {
		provider = NewTagProvider()
	}
	if log == nil {
		log = slog.Default()
	}
	return &GameState{
		doc:      NewSaveDocument(),
		world:    world,
		provider: provider,
		log:      log,
		policy:   policy,
		globals:  make(map[string]any),
	}
}

// Document returns the live save document. Callers must not mutate it while
// a capture or restore is running.
func (g *GameState) Document() *SaveDocument {
	return g.doc
}

// SetDocument replaces the live document, e.g. after reading a save file.
func (g *GameState) SetDocument(doc *SaveDocument) {
	g.doc = doc
}

// Reset drops all captured state for a fresh game. Registered globals and
// the respawn policy stay.
func (g *GameState) Reset() {
	g.doc = NewSaveDocument()
}

// AddGlobalObject registers an object that lives outside any level, keyed
// by its class name.
func (g *GameState) AddGlobalObject(obj any) {
	g.AddNamedGlobalObject(className(obj), obj)
}

// AddNamedGlobalObject registers a global object under an explicit name.
// Registering an existing name replaces the object.
func (g *GameState) AddNamedGlobalObject(name string, obj any) {
	if _, ok := g.globals[name]; !ok {
		g.globalOrder = append(g.globalOrder, name)
	}
	g.globals[name] = obj
}

// RemoveGlobalObject unregisters a global object. Its stored data, if any,
// is kept and simply finds no target on restore.
func (g *GameState) RemoveGlobalObject(name string) {
	if _, ok := g.globals[name]; !ok {
		return
	}
	delete(g.globals, name)
	g.globalOrder = slices.DeleteFunc(g.globalOrder, func(s string) bool { return s == name })
}

// MarkDestroyed records the destruction of a structural object so the
// deletion survives saves: the object's record is dropped and the name is
// destroyed again on every later restore of the level. Hosts call this when
// a named object is removed during play.
func (g *GameState) MarkDestroyed(level, name string) {
	ld := g.doc.Level(level)
	delete(ld.Named, name)
	ld.Destroyed[name] = struct{}{}
	g.log.Debug("stasis: object marked destroyed", "level", level, "name", name)
}

// CaptureLevel captures every live persistent object of a level into the
// document, replacing the level's previous records. Deletions recorded with
// MarkDestroyed survive the capture. Per-object failures are logged and
// skipped; they never abort the capture.
func (g *GameState) CaptureLevel(level string) error {
	ld := g.doc.Level(level)
	ld.clearRecords()

	objs := g.world.Objects(level)

	// Identity pass. Ids must exist before any record is keyed and
	// before any reference to the object is serialized, so minting
	// happens up front rather than mid-walk.
	type target struct {
		obj  any
		kind identityKind
	}
	targets := make([]target, 0, len(objs))
	for _, obj := range objs {
		kind := classify(obj, g.policy)
		si, hasID := obj.(spawnIdentified)
		if hasID && si.SpawnID() == uuid.Nil {
			si.AssignSpawnID(uuid.New())
		}
		if kind == identitySpawned && !hasID {
			g.log.Warn("stasis: object excluded from save",
				"level", level,
				"class", className(obj),
				"error", ErrMissingIdentity)
			continue
		}
		targets = append(targets, target{obj: obj, kind: kind})
	}

	for _, t := range targets {
		data, err := captureObject(g.provider, ld.Catalog, t.obj, true, g.log)
		if err != nil {
			g.log.Error("stasis: capture failed",
				"level", level,
				"class", className(t.obj),
				"error", err)
			continue
		}
		switch t.kind {
		case identityNamed:
			name := structuralName(t.obj)
			var id uuid.UUID
			if si, ok := t.obj.(spawnIdentified); ok {
				id = si.SpawnID()
			}
			delete(ld.Destroyed, name)
			ld.Named[name] = &NamedObject{Name: name, SpawnID: id, Data: data}
		case identitySpawned:
			si := t.obj.(spawnIdentified)
			ld.Spawned[si.SpawnID()] = &SpawnedObject{
				SpawnID: si.SpawnID(),
				Class:   className(t.obj),
				Data:    data,
			}
		}
	}

	g.log.Info("stasis: level captured",
		"level", level,
		"named", len(ld.Named),
		"spawned", len(ld.Spawned))
	return nil
}

// RestoreLevel restores a level's stored state onto the live scene: missing
// spawned objects are recreated first and every stored id registered, then
// fields are restored on all matched objects, then structural objects
// recorded as destroyed are removed. A level with no stored data is left
// untouched.
func (g *GameState) RestoreLevel(level string) error {
	ld, ok := g.doc.Levels[level]
	if !ok {
		g.log.Debug("stasis: no data for level", "level", level)
		return nil
	}

	ctx := newRestoreContext(g.provider, g.log)

	objs := g.world.Objects(level)
	liveNamed := make(map[string]any, len(objs))
	liveSpawned := make(map[uuid.UUID]any)
	for _, obj := range objs {
		switch classify(obj, g.policy) {
		case identityNamed:
			liveNamed[structuralName(obj)] = obj
		case identitySpawned:
			if si, ok := obj.(spawnIdentified); ok && si.SpawnID() != uuid.Nil {
				liveSpawned[si.SpawnID()] = obj
			}
		}
	}

	// Identity pass. The id map must be complete before any field is
	// restored: references may point forward to objects later in the
	// batch.
	type target struct {
		obj  any
		data *ObjectData
	}
	var targets []target

	for _, id := range sortedSpawnIDs(ld.Spawned) {
		rec := ld.Spawned[id]
		obj, live := liveSpawned[id]
		if !live {
			if g.policy[rec.Class] == RespawnNever {
				continue
			}
			spawned, err := g.world.Spawn(rec.Class, level)
			if err != nil {
				g.log.Error("stasis: respawn failed",
					"level", level,
					"class", rec.Class,
					"id", id,
					"error", err)
				continue
			}
			obj = spawned
		}
		si, ok := obj.(spawnIdentified)
		if !ok {
			g.log.Warn("stasis: spawned object has no spawn identity",
				"level", level,
				"class", rec.Class,
				"error", ErrMissingIdentity)
			continue
		}
		si.AssignSpawnID(id)
		ctx.register(id, obj)
		targets = append(targets, target{obj: obj, data: &rec.Data})
	}

	for _, name := range sortedNames(ld.Named) {
		rec := ld.Named[name]
		obj, live := liveNamed[name]
		if !live {
			g.log.Debug("stasis: stored object not in scene",
				"level", level,
				"name", name)
			continue
		}
		if rec.SpawnID != uuid.Nil {
			if si, ok := obj.(spawnIdentified); ok {
				si.AssignSpawnID(rec.SpawnID)
				ctx.register(rec.SpawnID, obj)
			}
		}
		targets = append(targets, target{obj: obj, data: &rec.Data})
	}

	// Field pass.
	for _, t := range targets {
		if err := restoreObject(ctx, ld.Catalog, t.obj, t.data); err != nil {
			g.log.Warn("stasis: object restore skipped",
				"level", level,
				"class", className(t.obj),
				"error", err)
		}
	}

	// Deletion pass, after field restoration.
	for _, name := range sortedNames(ld.Destroyed) {
		obj, live := liveNamed[name]
		if !live {
			continue
		}
		if err := g.world.Destroy(level, obj); err != nil {
			g.log.Error("stasis: destroy failed",
				"level", level,
				"name", name,
				"error", err)
		}
	}

	g.log.Info("stasis: level restored",
		"level", level,
		"objects", len(targets),
		"destroyed", len(ld.Destroyed))
	return nil
}

// CaptureGlobals captures every registered global object, replacing the
// document's global partition. Globals carry no core record.
func (g *GameState) CaptureGlobals() error {
	gd := newGlobalData()
	g.doc.Global = gd

	for _, name := range g.globalOrder {
		obj := g.globals[name]
		if si, ok := obj.(spawnIdentified); ok && si.SpawnID() == uuid.Nil {
			si.AssignSpawnID(uuid.New())
		}
		data, err := captureObject(g.provider, gd.Catalog, obj, false, g.log)
		if err != nil {
			g.log.Error("stasis: global capture failed", "object", name, "error", err)
			continue
		}
		var id uuid.UUID
		if si, ok := obj.(spawnIdentified); ok {
			id = si.SpawnID()
		}
		gd.Named[name] = &NamedObject{Name: name, SpawnID: id, Data: data}
	}
	return nil
}

// RestoreGlobals restores stored state onto the registered global objects.
// Globals are matched by registered name; stored records with no registered
// object are left unused.
func (g *GameState) RestoreGlobals() error {
	gd := g.doc.Global
	if gd == nil || len(gd.Named) == 0 {
		return nil
	}

	ctx := newRestoreContext(g.provider, g.log)

	type target struct {
		obj  any
		data *ObjectData
	}
	var targets []target
	for _, name := range g.globalOrder {
		rec, ok := gd.Named[name]
		if !ok {
			g.log.Debug("stasis: no data for global object", "object", name)
			continue
		}
		obj := g.globals[name]
		if rec.SpawnID != uuid.Nil {
			if si, ok := obj.(spawnIdentified); ok {
				si.AssignSpawnID(rec.SpawnID)
				ctx.register(rec.SpawnID, obj)
			}
		}
		targets = append(targets, target{obj: obj, data: &rec.Data})
	}

	for _, t := range targets {
		if err := restoreObject(ctx, gd.Catalog, t.obj, t.data); err != nil {
			g.log.Warn("stasis: global restore skipped",
				"object", className(t.obj),
				"error", err)
		}
	}
	return nil
}

// sortedNames returns a map's string keys in sorted order, for
// deterministic iteration.
func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// sortedSpawnIDs returns a map's id keys in byte order, for deterministic
// iteration.
func sortedSpawnIDs[T any](m map[uuid.UUID]T) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return ids
}
