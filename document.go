package stasis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectData is one object's captured payload: the packed core record, the
// raw bytes of its tagged fields, the offset table aligned with its class
// def (entry i is the byte offset where value i starts in Props), and the
// opaque custom payload written by its SaveFinalizer.
type ObjectData struct {
	Core    []byte
	Props   []byte
	Offsets []uint32
	Custom  []byte
}

// NamedObject is the stored record of an object with structural identity:
// level-placed objects and registered globals. SpawnID carries the object's
// generated id when it has one, so references to it resolve; it is zero
// otherwise.
type NamedObject struct {
	Name    string
	SpawnID uuid.UUID
	Data    ObjectData
}

// SpawnedObject is the stored record of a dynamically spawned object. The
// class name is kept so the object can be recreated when it is absent at
// restore time.
type SpawnedObject struct {
	SpawnID uuid.UUID
	Class   string
	Data    ObjectData
}

// LevelData is the stored state of one level: its class catalog, its named
// and spawned object records, and the names of structural objects destroyed
// during play. A name is never both destroyed and recorded.
type LevelData struct {
	Name      string
	Catalog   *ClassCatalog
	Named     map[string]*NamedObject
	Spawned   map[uuid.UUID]*SpawnedObject
	Destroyed map[string]struct{}
}

func newLevelData(name string) *LevelData {
	return &LevelData{
		Name:      name,
		Catalog:   NewClassCatalog(),
		Named:     make(map[string]*NamedObject),
		Spawned:   make(map[uuid.UUID]*SpawnedObject),
		Destroyed: make(map[string]struct{}),
	}
}

// clearRecords drops the level's records and catalog for a fresh capture.
// The destroyed set survives: deletions accumulated during play must outlive
// every later capture of the level.
func (ld *LevelData) clearRecords() {
	ld.Catalog = NewClassCatalog()
	ld.Named = make(map[string]*NamedObject)
	ld.Spawned = make(map[uuid.UUID]*SpawnedObject)
}

// GlobalData is the stored state of objects outside any level scope.
type GlobalData struct {
	Catalog *ClassCatalog
	Named   map[string]*NamedObject
}

func newGlobalData() *GlobalData {
	return &GlobalData{
		Catalog: NewClassCatalog(),
		Named:   make(map[string]*NamedObject),
	}
}

// SaveDocument is the complete in-memory form of one save: header metadata,
// the global partition and every level partition captured so far.
type SaveDocument struct {
	Title   string
	SavedAt time.Time
	Global  *GlobalData
	Levels  map[string]*LevelData
}

// NewSaveDocument returns an empty document.
func NewSaveDocument() *SaveDocument {
	return &SaveDocument{
		Global: newGlobalData(),
		Levels: make(map[string]*LevelData),
	}
}

// Level returns the partition for a level, creating it if absent.
func (doc *SaveDocument) Level(name string) *LevelData {
	ld, ok := doc.Levels[name]
	if !ok {
		ld = newLevelData(name)
		doc.Levels[name] = ld
	}
	return ld
}

// SaveInfo identifies one save on disk. It is decodable from a save file's
// header chunk alone, without parsing the rest of the file.
type SaveInfo struct {
	Slot    string
	Title   string
	SavedAt time.Time
}

// appendObjectData encodes an object payload.
func appendObjectData(b []byte, d ObjectData) []byte {
	b = appendU32(b, uint32(len(d.Core)))
	b = append(b, d.Core...)
	b = appendU32(b, uint32(len(d.Props)))
	b = append(b, d.Props...)
	b = appendU32(b, uint32(len(d.Offsets)))
	for _, off := range d.Offsets {
		b = appendU32(b, off)
	}
	b = appendU32(b, uint32(len(d.Custom)))
	b = append(b, d.Custom...)
	return b
}

// readObjectData decodes an object payload.
func readObjectData(r *byteReader) (ObjectData, error) {
	var d ObjectData
	d.Core = append([]byte(nil), r.take(int(r.u32()))...)
	d.Props = append([]byte(nil), r.take(int(r.u32()))...)
	offCount := int(r.u32())
	if r.err != nil || offCount*4 > r.remaining() {
		return ObjectData{}, fmt.Errorf("stasis: object record truncated: %w", ErrCorruptContainer)
	}
	if offCount > 0 {
		d.Offsets = make([]uint32, 0, offCount)
		for range offCount {
			d.Offsets = append(d.Offsets, r.u32())
		}
	}
	d.Custom = append([]byte(nil), r.take(int(r.u32()))...)
	if r.err != nil {
		return ObjectData{}, fmt.Errorf("stasis: object record truncated: %w", ErrCorruptContainer)
	}
	return d, nil
}
