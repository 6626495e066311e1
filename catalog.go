package stasis

import (
	"fmt"
)

// PropertyDef describes one stored leaf field of a class: its interned name,
// the interned nesting scope ("prefix") it lives under, and its wire kind.
// Nested struct fields are scope markers only and get no PropertyDef.
type PropertyDef struct {
	NameID   uint32
	PrefixID uint32
	Kind     Kind
}

type propKey struct {
	prefix uint32
	name   uint32
}

// ClassDef is the stored schema of one class within a save partition. The
// order of Props is significant: it defines the offset-table semantics of
// every record captured for this class, so a def is never mutated once it
// has been used for reading.
type ClassDef struct {
	// Name is the class name the def was created under.
	Name string

	// Props holds the leaf property descriptors in capture order.
	Props []PropertyDef

	lookup map[propKey]int
	frozen bool
}

// ensure records the descriptor at position idx, appending it on first
// encounter. Capture walks a class's fields in a fixed order, so every
// instance produces the same sequence; a disagreement means the def was
// already frozen by a read, or the walk is not deterministic.
func (d *ClassDef) ensure(idx int, p PropertyDef) error {
	if idx < len(d.Props) {
		if d.Props[idx] != p {
			return fmt.Errorf("stasis: class %s property %d changed within one save context", d.Name, idx)
		}
		return nil
	}
	if idx != len(d.Props) {
		return fmt.Errorf("stasis: class %s property index %d out of sequence", d.Name, idx)
	}
	if d.frozen {
		return fmt.Errorf("stasis: class %s schema is frozen after reading", d.Name)
	}
	d.Props = append(d.Props, p)
	return nil
}

// indexOf resolves (prefix id, name id) to the stored descriptor index.
// Building the lookup freezes the def.
func (d *ClassDef) indexOf(prefixID, nameID uint32) (int, bool) {
	if d.lookup == nil {
		d.freeze()
		d.lookup = make(map[propKey]int, len(d.Props))
		for i, p := range d.Props {
			d.lookup[propKey{prefix: p.PrefixID, name: p.NameID}] = i
		}
	}
	i, ok := d.lookup[propKey{prefix: prefixID, name: nameID}]
	return i, ok
}

// freeze marks the def as used for reading. Further appends fail.
func (d *ClassDef) freeze() {
	d.frozen = true
}

// matchesLive reports whether the stored descriptor sequence is identical
// to the live one: same length, same order, same (name, prefix, kind)
// triples. Only then may the fast restore path run.
func (d *ClassDef) matchesLive(live []PropertyDef) bool {
	if len(live) != len(d.Props) {
		return false
	}
	for i, p := range d.Props {
		if live[i] != p {
			return false
		}
	}
	return true
}

// ClassCatalog is the per-partition table of class schemas and interned
// name identifiers. Every string a partition's records refer to, class
// names, field names and nesting scope paths, is interned here exactly
// once. Id 0 is always the empty string, the root nesting scope.
type ClassCatalog struct {
	names   []string
	nameIDs map[string]uint32
	classes map[string]*ClassDef
	order   []string
}

// NewClassCatalog returns an empty catalog with the root scope interned.
func NewClassCatalog() *ClassCatalog {
	c := &ClassCatalog{
		nameIDs: make(map[string]uint32),
		classes: make(map[string]*ClassDef),
	}
	c.intern("")
	return c
}

// intern returns the id for s, assigning the next one on first encounter.
// Ids are stable for the catalog's lifetime.
func (c *ClassCatalog) intern(s string) uint32 {
	if id, ok := c.nameIDs[s]; ok {
		return id
	}
	id := uint32(len(c.names))
	c.names = append(c.names, s)
	c.nameIDs[s] = id
	return id
}

// NameOf resolves an interned id back to its string. Tooling uses it to
// render stored schemas; id 0 is always the empty root scope.
func (c *ClassCatalog) NameOf(id uint32) (string, bool) {
	if int(id) >= len(c.names) {
		return "", false
	}
	return c.names[id], true
}

// Define returns the def for a class, creating it if absent. Capture-time
// counterpart of Lookup.
func (c *ClassCatalog) Define(class string) *ClassDef {
	if d, ok := c.classes[class]; ok {
		return d
	}
	c.intern(class)
	d := &ClassDef{Name: class}
	c.classes[class] = d
	c.order = append(c.order, class)
	return d
}

// Lookup returns the stored def for a class, or ErrUnknownClass if this
// partition never captured one. Restore-time counterpart of Define.
func (c *ClassCatalog) Lookup(class string) (*ClassDef, error) {
	d, ok := c.classes[class]
	if !ok {
		return nil, fmt.Errorf("stasis: class %q: %w", class, ErrUnknownClass)
	}
	return d, nil
}

// Classes returns the class names in definition order.
func (c *ClassCatalog) Classes() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// appendTo encodes the catalog: the interned string table followed by each
// class def in definition order.
func (c *ClassCatalog) appendTo(b []byte) []byte {
	b = appendU32(b, uint32(len(c.names)))
	for _, s := range c.names {
		b = appendString(b, s)
	}
	b = appendU32(b, uint32(len(c.order)))
	for _, class := range c.order {
		d := c.classes[class]
		b = appendU32(b, c.nameIDs[class])
		b = appendU32(b, uint32(len(d.Props)))
		for _, p := range d.Props {
			b = appendU32(b, p.NameID)
			b = appendU32(b, p.PrefixID)
			b = appendU16(b, uint16(p.Kind))
		}
	}
	return b
}

// readClassCatalog decodes a catalog from a CMET chunk body.
func readClassCatalog(r *byteReader) (*ClassCatalog, error) {
	c := &ClassCatalog{
		nameIDs: make(map[string]uint32),
		classes: make(map[string]*ClassDef),
	}

	nameCount := int(r.u32())
	if r.err != nil || nameCount > r.remaining() {
		return nil, fmt.Errorf("stasis: class table truncated: %w", ErrCorruptContainer)
	}
	c.names = make([]string, 0, nameCount)
	for range nameCount {
		s := r.str()
		if r.err != nil {
			return nil, fmt.Errorf("stasis: class table truncated: %w", ErrCorruptContainer)
		}
		c.nameIDs[s] = uint32(len(c.names))
		c.names = append(c.names, s)
	}

	classCount := int(r.u32())
	if r.err != nil || classCount > r.remaining() {
		return nil, fmt.Errorf("stasis: class table truncated: %w", ErrCorruptContainer)
	}
	for range classCount {
		classID := r.u32()
		propCount := int(r.u32())
		if r.err != nil || propCount > r.remaining() {
			return nil, fmt.Errorf("stasis: class table truncated: %w", ErrCorruptContainer)
		}
		name, ok := c.NameOf(classID)
		if !ok {
			return nil, fmt.Errorf("stasis: class id %d not in string table: %w", classID, ErrCorruptContainer)
		}
		d := &ClassDef{Name: name, Props: make([]PropertyDef, 0, propCount)}
		for range propCount {
			p := PropertyDef{
				NameID:   r.u32(),
				PrefixID: r.u32(),
				Kind:     Kind(r.u16()),
			}
			d.Props = append(d.Props, p)
		}
		if r.err != nil {
			return nil, fmt.Errorf("stasis: class table truncated: %w", ErrCorruptContainer)
		}
		c.classes[name] = d
		c.order = append(c.order, name)
	}

	return c, nil
}
