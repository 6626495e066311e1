// Package stasis provides save and restore of live game state for Dragonfly servers.
//
// Stasis captures the state of a world's persistent objects into a versioned
// binary container and restores it later, tolerating drift between the schema
// recorded in a save and the schema of the running program:
//   - Struct-tag driven capture of object fields in a stable order
//   - Fast-path (order-matched) and slow-path (lookup-based) restoration
//   - Stable identity for level objects, generated identity for spawned ones
//   - Chunked save files with cheaply readable header metadata
//   - Save slots with quicksave, autosave and save listing
//
// # Quick Start
//
// Initialize stasis in your server setup:
//
//	sys, err := stasis.NewBuilder().
//	    World(myWorld).
//	    SaveDir("saves").
//	    Init()
//	if err != nil {
//	    panic(err)
//	}
//
//	sys.NewGame()
//	sys.LevelLoaded("overworld")
//
//	// later, on player request:
//	sys.SaveGame("slot1", "Before the boss")
//	sys.LoadGame("slot1")
//
// # Persistent Objects
//
// Objects are plain Go structs, identified in save data by their bare type
// name; give persistent object types unique names across packages. Fields
// tagged `stasis:"save"` are captured; everything else is left alone.
// Objects spawned at runtime embed SpawnIdentity so they can be recreated
// on load:
//
//	type Mob struct {
//	    stasis.SpawnIdentity
//	    Health int     `stasis:"save"`
//	    Target stasis.Ref[Mob] `stasis:"save"`
//	}
//
// Level-placed objects implement Named instead and are matched by name:
//
//	func (d *Door) PersistentName() string { return d.name }
//
// # Lifecycle Hooks
//
// Objects may implement any of PreSaver, SaveFinalizer, PostSaver, PreLoader,
// LoadFinalizer and PostLoader to run code around capture and restore, or to
// read and write an opaque payload of their own.
//
// # Tag Reference
//
//	(none)          Field is not persisted
//	stasis:"save"   Field is captured and restored
//	stasis:"-"      Field is explicitly skipped (same as no tag)
package stasis

// Version is the stasis version.
const Version = "1.0.0"
