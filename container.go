package stasis

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Save files are chunked: a fixed header, then a sequence of chunks, each a
// four-byte id, a little-endian u32 body length and the body. Readers skip
// chunks they do not recognise, so the format can grow without breaking old
// readers. Partition chunks nest the same framing for their own parts.
const (
	containerMagic   = "STAS"
	containerVersion = 1

	// maxChunkSize bounds a single chunk body so a corrupt length field
	// cannot force a huge allocation.
	maxChunkSize = 1 << 30
)

var (
	chunkInfo      = [4]byte{'I', 'N', 'F', 'O'}
	chunkGlobal    = [4]byte{'G', 'L', 'O', 'B'}
	chunkLevel     = [4]byte{'L', 'E', 'V', 'L'}
	chunkClasses   = [4]byte{'C', 'M', 'E', 'T'}
	chunkNamed     = [4]byte{'N', 'O', 'B', 'J'}
	chunkSpawned   = [4]byte{'S', 'O', 'B', 'J'}
	chunkDestroyed = [4]byte{'D', 'E', 'S', 'T'}
)

func chunkName(id [4]byte) string {
	return string(id[:])
}

func appendChunk(b []byte, id [4]byte, body []byte) []byte {
	b = append(b, id[:]...)
	b = appendU32(b, uint32(len(body)))
	return append(b, body...)
}

// Write encodes the document to w. The caller sets Title and SavedAt first;
// Write does not touch them. Levels, objects and destroyed names are
// written in sorted order so identical documents produce identical bytes.
func (doc *SaveDocument) Write(w io.Writer) error {
	buf := append([]byte(nil), containerMagic...)
	buf = appendU16(buf, containerVersion)

	var info []byte
	info = appendString(info, doc.Title)
	info = appendI64(info, doc.SavedAt.Unix())
	buf = appendChunk(buf, chunkInfo, info)

	if doc.Global != nil && len(doc.Global.Named) > 0 {
		buf = appendChunk(buf, chunkGlobal, appendGlobalData(nil, doc.Global))
	}
	for _, name := range sortedNames(doc.Levels) {
		buf = appendChunk(buf, chunkLevel, appendLevelData(nil, doc.Levels[name]))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("stasis: write save: %w", err)
	}
	return nil
}

// ReadSaveDocument decodes a complete save file. Unknown chunks are
// skipped; a violation of the container framing itself aborts the read
// with ErrCorruptContainer.
func ReadSaveDocument(r io.Reader) (*SaveDocument, error) {
	if err := readContainerHeader(r); err != nil {
		return nil, err
	}

	doc := NewSaveDocument()
	seenInfo := false
	for {
		id, body, err := readChunk(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch id {
		case chunkInfo:
			rd := &byteReader{b: body}
			doc.Title = rd.str()
			doc.SavedAt = time.Unix(rd.i64(), 0)
			if rd.err != nil {
				return nil, fmt.Errorf("stasis: INFO chunk truncated: %w", ErrCorruptContainer)
			}
			seenInfo = true
		case chunkGlobal:
			gd, err := readGlobalData(body)
			if err != nil {
				return nil, err
			}
			doc.Global = gd
		case chunkLevel:
			ld, err := readLevelData(body)
			if err != nil {
				return nil, err
			}
			doc.Levels[ld.Name] = ld
		}
	}
	if !seenInfo {
		return nil, fmt.Errorf("stasis: missing INFO chunk: %w", ErrCorruptContainer)
	}
	return doc, nil
}

// ReadSaveInfo decodes only the header metadata of a save file, without
// parsing object data. Chunk bodies before INFO are discarded unread, so
// listing a directory of saves stays cheap.
func ReadSaveInfo(r io.Reader) (SaveInfo, error) {
	if err := readContainerHeader(r); err != nil {
		return SaveInfo{}, err
	}
	for {
		id, size, err := readChunkHeader(r)
		if err == io.EOF {
			return SaveInfo{}, fmt.Errorf("stasis: missing INFO chunk: %w", ErrCorruptContainer)
		}
		if err != nil {
			return SaveInfo{}, err
		}
		if id != chunkInfo {
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return SaveInfo{}, fmt.Errorf("stasis: %s chunk truncated: %w", chunkName(id), ErrCorruptContainer)
			}
			continue
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return SaveInfo{}, fmt.Errorf("stasis: INFO chunk truncated: %w", ErrCorruptContainer)
		}
		rd := &byteReader{b: body}
		info := SaveInfo{Title: rd.str()}
		info.SavedAt = time.Unix(rd.i64(), 0)
		if rd.err != nil {
			return SaveInfo{}, fmt.Errorf("stasis: INFO chunk truncated: %w", ErrCorruptContainer)
		}
		return info, nil
	}
}

func readContainerHeader(r io.Reader) error {
	hdr := make([]byte, 6)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return fmt.Errorf("stasis: short header: %w", ErrCorruptContainer)
	}
	if string(hdr[:4]) != containerMagic {
		return fmt.Errorf("stasis: bad magic: %w", ErrCorruptContainer)
	}
	if v := uint16(hdr[4]) | uint16(hdr[5])<<8; v != containerVersion {
		return fmt.Errorf("stasis: container version %d: %w", v, ErrUnsupportedVersion)
	}
	return nil
}

// readChunkHeader reads the next chunk's id and body length. A clean end
// of stream at a chunk boundary returns io.EOF.
func readChunkHeader(r io.Reader) ([4]byte, uint32, error) {
	hdr := make([]byte, 8)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF {
			return [4]byte{}, 0, io.EOF
		}
		return [4]byte{}, 0, fmt.Errorf("stasis: chunk header truncated: %w", ErrCorruptContainer)
	}
	var id [4]byte
	copy(id[:], hdr[:4])
	size := uint32(hdr[4]) | uint32(hdr[5])<<8 | uint32(hdr[6])<<16 | uint32(hdr[7])<<24
	if size > maxChunkSize {
		return [4]byte{}, 0, fmt.Errorf("stasis: %s chunk of %d bytes: %w", chunkName(id), size, ErrCorruptContainer)
	}
	return id, size, nil
}

func readChunk(r io.Reader) ([4]byte, []byte, error) {
	id, size, err := readChunkHeader(r)
	if err != nil {
		return id, nil, err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return id, nil, fmt.Errorf("stasis: %s chunk truncated: %w", chunkName(id), ErrCorruptContainer)
	}
	return id, body, nil
}

// nextNestedChunk reads one nested chunk out of a partition body. ok is
// false at the end of the body.
func nextNestedChunk(r *byteReader) (id [4]byte, body *byteReader, ok bool, err error) {
	if r.err != nil || r.remaining() == 0 {
		return [4]byte{}, nil, false, r.err
	}
	copy(id[:], r.take(4))
	size := int(r.u32())
	if r.err != nil || size > r.remaining() {
		return [4]byte{}, nil, false, fmt.Errorf("stasis: nested chunk truncated: %w", ErrCorruptContainer)
	}
	return id, &byteReader{b: r.take(size)}, true, nil
}

func appendGlobalData(b []byte, gd *GlobalData) []byte {
	b = appendChunk(b, chunkClasses, gd.Catalog.appendTo(nil))
	b = appendChunk(b, chunkNamed, appendNamedObjects(nil, gd.Named))
	return b
}

func readGlobalData(body []byte) (*GlobalData, error) {
	gd := newGlobalData()
	r := &byteReader{b: body}
	for {
		id, chunk, ok, err := nextNestedChunk(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch id {
		case chunkClasses:
			cat, err := readClassCatalog(chunk)
			if err != nil {
				return nil, err
			}
			gd.Catalog = cat
		case chunkNamed:
			named, err := readNamedObjects(chunk)
			if err != nil {
				return nil, err
			}
			gd.Named = named
		}
	}
	return gd, nil
}

func appendLevelData(b []byte, ld *LevelData) []byte {
	b = appendString(b, ld.Name)
	b = appendChunk(b, chunkClasses, ld.Catalog.appendTo(nil))
	b = appendChunk(b, chunkNamed, appendNamedObjects(nil, ld.Named))
	b = appendChunk(b, chunkSpawned, appendSpawnedObjects(nil, ld.Spawned))
	b = appendChunk(b, chunkDestroyed, appendDestroyed(nil, ld.Destroyed))
	return b
}

func readLevelData(body []byte) (*LevelData, error) {
	r := &byteReader{b: body}
	name := r.str()
	if r.err != nil {
		return nil, fmt.Errorf("stasis: LEVL chunk truncated: %w", ErrCorruptContainer)
	}
	ld := newLevelData(name)
	for {
		id, chunk, ok, err := nextNestedChunk(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch id {
		case chunkClasses:
			cat, err := readClassCatalog(chunk)
			if err != nil {
				return nil, err
			}
			ld.Catalog = cat
		case chunkNamed:
			named, err := readNamedObjects(chunk)
			if err != nil {
				return nil, err
			}
			ld.Named = named
		case chunkSpawned:
			spawned, err := readSpawnedObjects(chunk)
			if err != nil {
				return nil, err
			}
			ld.Spawned = spawned
		case chunkDestroyed:
			destroyed, err := readDestroyed(chunk)
			if err != nil {
				return nil, err
			}
			ld.Destroyed = destroyed
		}
	}
	return ld, nil
}

func appendNamedObjects(b []byte, m map[string]*NamedObject) []byte {
	b = appendU32(b, uint32(len(m)))
	for _, name := range sortedNames(m) {
		o := m[name]
		b = appendString(b, o.Name)
		b = appendUUID(b, o.SpawnID)
		b = appendObjectData(b, o.Data)
	}
	return b
}

func readNamedObjects(r *byteReader) (map[string]*NamedObject, error) {
	count := int(r.u32())
	if r.err != nil || count > r.remaining() {
		return nil, fmt.Errorf("stasis: NOBJ chunk truncated: %w", ErrCorruptContainer)
	}
	m := make(map[string]*NamedObject, count)
	for range count {
		o := &NamedObject{Name: r.str(), SpawnID: r.id()}
		data, err := readObjectData(r)
		if err != nil {
			return nil, err
		}
		o.Data = data
		m[o.Name] = o
	}
	if r.err != nil {
		return nil, fmt.Errorf("stasis: NOBJ chunk truncated: %w", ErrCorruptContainer)
	}
	return m, nil
}

func appendSpawnedObjects(b []byte, m map[uuid.UUID]*SpawnedObject) []byte {
	b = appendU32(b, uint32(len(m)))
	for _, id := range sortedSpawnIDs(m) {
		o := m[id]
		b = appendUUID(b, o.SpawnID)
		b = appendString(b, o.Class)
		b = appendObjectData(b, o.Data)
	}
	return b
}

func readSpawnedObjects(r *byteReader) (map[uuid.UUID]*SpawnedObject, error) {
	count := int(r.u32())
	if r.err != nil || count > r.remaining() {
		return nil, fmt.Errorf("stasis: SOBJ chunk truncated: %w", ErrCorruptContainer)
	}
	m := make(map[uuid.UUID]*SpawnedObject, count)
	for range count {
		o := &SpawnedObject{SpawnID: r.id(), Class: r.str()}
		data, err := readObjectData(r)
		if err != nil {
			return nil, err
		}
		o.Data = data
		m[o.SpawnID] = o
	}
	if r.err != nil {
		return nil, fmt.Errorf("stasis: SOBJ chunk truncated: %w", ErrCorruptContainer)
	}
	return m, nil
}

func appendDestroyed(b []byte, m map[string]struct{}) []byte {
	b = appendU32(b, uint32(len(m)))
	for _, name := range sortedNames(m) {
		b = appendString(b, name)
	}
	return b
}

func readDestroyed(r *byteReader) (map[string]struct{}, error) {
	count := int(r.u32())
	if r.err != nil || count > r.remaining() {
		return nil, fmt.Errorf("stasis: DEST chunk truncated: %w", ErrCorruptContainer)
	}
	m := make(map[string]struct{}, count)
	for range count {
		m[r.str()] = struct{}{}
	}
	if r.err != nil {
		return nil, fmt.Errorf("stasis: DEST chunk truncated: %w", ErrCorruptContainer)
	}
	return m, nil
}
