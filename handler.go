package stasis

// Handler receives notifications about save and load activity. Hosts
// implement it to drive feedback such as save spinners and autosave
// toasts. Embed NopHandler to implement only the methods of interest.
//
// Handler methods are called synchronously from the subsystem operation
// that triggered them, on the same goroutine.
type Handler interface {
	// HandleSaved handles the completion of a save. The file named by
	// info has been written when it is called.
	HandleSaved(info SaveInfo)
	// HandleLoaded handles the completion of a load. The game state has
	// been restored from the file named by info when it is called.
	HandleLoaded(info SaveInfo)
	// HandleLevelCaptured handles a level's state being captured, either
	// during a save or because the level unloaded.
	HandleLevelCaptured(level string)
	// HandleLevelRestored handles a level's stored state being restored
	// onto the live scene.
	HandleLevelRestored(level string)
}

// NopHandler implements Handler with no-op methods. Embed it in handler
// structs to override only selected events.
type NopHandler struct{}

// Compile-time check that NopHandler implements Handler.
var _ Handler = NopHandler{}

// HandleSaved ...
func (NopHandler) HandleSaved(SaveInfo) {}

// HandleLoaded ...
func (NopHandler) HandleLoaded(SaveInfo) {}

// HandleLevelCaptured ...
func (NopHandler) HandleLevelCaptured(string) {}

// HandleLevelRestored ...
func (NopHandler) HandleLevelRestored(string) {}
