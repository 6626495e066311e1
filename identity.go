package stasis

import (
	"reflect"

	"github.com/google/uuid"
)

// SpawnIdentity gives an object a generated identity. Embed it in any
// object that is spawned at runtime, or that other objects hold a Ref to:
//
//	type Mob struct {
//	    stasis.SpawnIdentity
//	    Health int `stasis:"save"`
//	}
//
// The id is minted during the object's first capture and keeps its value
// for the object's lifetime. Ids are never reused.
type SpawnIdentity struct {
	id uuid.UUID
}

// SpawnID returns the generated id, or uuid.Nil before the first capture.
func (s *SpawnIdentity) SpawnID() uuid.UUID {
	return s.id
}

// AssignSpawnID sets the generated id. The engine calls this when minting
// an id at capture time and when writing stored ids back at restore time;
// hosts only need it when transplanting identity themselves.
func (s *SpawnIdentity) AssignSpawnID(id uuid.UUID) {
	s.id = id
}

// spawnIdentified is satisfied by objects embedding SpawnIdentity.
type spawnIdentified interface {
	SpawnID() uuid.UUID
	AssignSpawnID(id uuid.UUID)
}

// Named is implemented by objects with structural identity: level-placed
// objects and registered globals whose name is stable across play sessions.
// Names must be unique within their owning level or the global scope.
type Named interface {
	PersistentName() string
}

// RespawnMode controls whether an object is classified as spawned, stored
// under its generated id and recreated when absent at restore time, or
// structural, matched by stable name and never recreated.
type RespawnMode uint8

const (
	// RespawnAuto classifies named objects and objects carrying an
	// externally managed role as structural, everything else as spawned.
	RespawnAuto RespawnMode = iota

	// RespawnAlways forces spawned classification.
	RespawnAlways

	// RespawnNever forces structural classification.
	RespawnNever
)

// String returns the string representation of the mode.
func (m RespawnMode) String() string {
	switch m {
	case RespawnAuto:
		return "Auto"
	case RespawnAlways:
		return "Always"
	case RespawnNever:
		return "Never"
	default:
		return "Unknown"
	}
}

// RespawnModer overrides the respawn mode per instance. It takes precedence
// over the per-class policy registry.
type RespawnModer interface {
	RespawnMode() RespawnMode
}

// ControlledMarker marks an object as externally controlled, such as a
// player's avatar. Its lifecycle belongs to the host, so it is never
// classified as spawned under RespawnAuto.
type ControlledMarker struct{}

func (ControlledMarker) controlledRole() {}

// SingletonMarker marks an object as a one-per-world singleton, such as a
// game mode object. Singletons are never classified as spawned under
// RespawnAuto.
type SingletonMarker struct{}

func (SingletonMarker) singletonRole() {}

type controlledRole interface{ controlledRole() }

type singletonRole interface{ singletonRole() }

// identityKind is the outcome of classifying one live object.
type identityKind uint8

const (
	identityNamed identityKind = iota
	identitySpawned
)

// classify decides an object's identity: the instance override wins, then
// the per-class policy, then RespawnAuto.
func classify(obj any, policy map[string]RespawnMode) identityKind {
	mode := RespawnAuto
	if m, ok := obj.(RespawnModer); ok {
		mode = m.RespawnMode()
	} else if m, ok := policy[className(obj)]; ok {
		mode = m
	}

	switch mode {
	case RespawnAlways:
		return identitySpawned
	case RespawnNever:
		return identityNamed
	}

	if _, ok := obj.(controlledRole); ok {
		return identityNamed
	}
	if _, ok := obj.(singletonRole); ok {
		return identityNamed
	}
	if _, ok := obj.(Named); ok {
		return identityNamed
	}
	return identitySpawned
}

// structuralName returns an object's stable name: PersistentName when
// implemented, the class name otherwise.
func structuralName(obj any) string {
	if n, ok := obj.(Named); ok {
		return n.PersistentName()
	}
	return className(obj)
}

// className returns the bare type name of an object. Class identity in
// save data is this bare name, without the package path, so persistent
// object types must have unique names across all of the host's packages.
func className(obj any) string {
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
