package stasis

import (
	"errors"
	"log/slog"
)

// Builder configures the save subsystem before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	world    World
	saveDir  string
	logger   *slog.Logger
	provider FieldProvider
	policy   map[string]RespawnMode
	handler  Handler
}

// NewBuilder creates a new subsystem builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// World sets the world adapter the subsystem captures from and restores
// into. It is the only required setting.
func (b *Builder) World(w World) *Builder {
	b.world = w
	return b
}

// SaveDir sets the directory save slots are written to. Defaults to
// "saves" under the working directory.
func (b *Builder) SaveDir(dir string) *Builder {
	b.saveDir = dir
	return b
}

// Logger sets the logger. Defaults to slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Provider sets the field provider objects are walked with. Defaults to
// the struct tag provider.
func (b *Builder) Provider(p FieldProvider) *Builder {
	b.provider = p
	return b
}

// Respawn sets the respawn mode for a class, overriding automatic
// classification for its objects. Objects implementing RespawnModer
// override this per instance.
//
// Example:
//
//	builder.Respawn("Projectile", stasis.RespawnNever)
func (b *Builder) Respawn(class string, mode RespawnMode) *Builder {
	if b.policy == nil {
		b.policy = make(map[string]RespawnMode)
	}
	b.policy[class] = mode
	return b
}

// Handler sets the handler notified of save and load activity. Defaults
// to NopHandler.
func (b *Builder) Handler(h Handler) *Builder {
	b.handler = h
	return b
}

// Init initializes the subsystem with the configured settings.
// Returns the Subsystem instance which should be stored and driven by the
// host's level and save hooks. Multiple Subsystem instances can coexist,
// e.g. for isolated save profiles.
func (b *Builder) Init() (*Subsystem, error) {
	if b.world == nil {
		return nil, errors.New("stasis: builder needs a World")
	}

	log := b.logger
	if log == nil {
		log = slog.Default()
	}
	dir := b.saveDir
	if dir == "" {
		dir = "saves"
	}
	handler := b.handler
	if handler == nil {
		handler = NopHandler{}
	}

	game := NewGameState(b.world, b.provider, b.policy, log)
	return newSubsystem(game, dir, handler, log), nil
}
