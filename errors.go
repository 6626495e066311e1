package stasis

import (
	"errors"
	"fmt"
)

// Errors returned by capture, restore and subsystem operations. All of them
// are surfaced wrapped, so callers should test with errors.Is.
var (
	// ErrUnknownClass is returned when a save holds no schema for an
	// object's class. The object's field restore is skipped and it keeps
	// its live state.
	ErrUnknownClass = errors.New("stasis: unknown class in save data")

	// ErrUnsupportedField is reported when a field's type cannot be
	// persisted. The field is omitted from the capture; this is accepted
	// data loss, not a failure.
	ErrUnsupportedField = errors.New("stasis: unsupported field type")

	// ErrCorruptCoreRecord is returned when an object's core record
	// carries an unrecognized format version. Only that object's core
	// restore is skipped.
	ErrCorruptCoreRecord = errors.New("stasis: corrupt core record")

	// ErrMissingIdentity is returned when an object classified as spawned
	// has no SpawnIdentity embed to hold its generated id. The object is
	// excluded from persistence entirely.
	ErrMissingIdentity = errors.New("stasis: object has no spawn identity")

	// ErrCorruptContainer is returned when a save file's chunk framing is
	// malformed. This is the only error that aborts a whole read.
	ErrCorruptContainer = errors.New("stasis: corrupt container")

	// ErrUnsupportedVersion is returned when a save file was written by a
	// newer container format than this package understands. It wraps
	// ErrCorruptContainer: either way the whole read is aborted.
	ErrUnsupportedVersion = fmt.Errorf("stasis: unsupported container version: %w", ErrCorruptContainer)

	// ErrDisabled is returned by subsystem operations before NewGame or
	// after EndGame.
	ErrDisabled = errors.New("stasis: subsystem disabled")

	// ErrBusy is returned by subsystem operations while a save or load is
	// already in progress.
	ErrBusy = errors.New("stasis: operation in progress")

	// ErrNoSuchSave is returned for slot operations on a save that does
	// not exist.
	ErrNoSuchSave = errors.New("stasis: no such save")
)
