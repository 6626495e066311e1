package stasis

// World is the lifecycle collaborator: the host's view of the live scene.
// Stasis consumes it to enumerate, recreate and remove persistent objects;
// it never owns object lifecycle itself.
//
// All methods are called from within save and restore operations on the
// caller's goroutine. Stasis is single-threaded by contract and performs no
// locking around these calls.
type World interface {
	// Objects returns the live persistent objects of a level. The order
	// determines capture order and should be stable for reproducible
	// saves.
	Objects(level string) []any

	// Spawn creates a new object of a named class in a level and returns
	// it. It is called during restore for spawned records with no live
	// counterpart. Classes are named by their bare Go type name, so the
	// types of persistent objects must have unique names across packages.
	Spawn(class, level string) (any, error)

	// Destroy removes a live object from a level. It is called after
	// field restoration for structural objects recorded as destroyed.
	Destroy(level string, obj any) error
}
