package stasis

// Lifecycle hooks are optional single-method interfaces fired by type
// assertion around capture and restore. An object implements only the ones
// it needs.
//
// Capture order: PreSave, field capture, FinalizeSave, PostSave.
// Restore order: PreLoad, core and field restore, FinalizeLoad, PostLoad.

// PreSaver runs before an object's fields are captured, e.g. to flatten
// derived live state into tagged fields.
type PreSaver interface {
	PreSave()
}

// SaveFinalizer appends an opaque payload of the object's own to its
// record, after field capture.
type SaveFinalizer interface {
	FinalizeSave(w *CustomWriter)
}

// PostSaver runs after the object's record is complete.
type PostSaver interface {
	PostSave()
}

// PreLoader runs before any stored state is written back to the object.
type PreLoader interface {
	PreLoad()
}

// LoadFinalizer reads back the payload written by FinalizeSave, after field
// restore.
type LoadFinalizer interface {
	FinalizeLoad(r *CustomReader)
}

// PostLoader runs after the object is fully restored.
type PostLoader interface {
	PostLoad()
}
