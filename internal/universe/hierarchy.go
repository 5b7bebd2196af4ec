package universe

import (
	"weak"

	"github.com/rotisserie/eris"
)

// Hierarchy is the shadow lookup tree. It mirrors the topology of the owning
// tree so an ID resolves in O(depth) without locking the chunks on the way
// down. Nodes only hold weak pointers: the owning tree keeps chunks and
// entities alive, never this index.
type Hierarchy struct {
	guard
	roots map[LocalChunkID]*chunkInfo
}

type chunkInfo struct {
	guard
	chunk weak.Pointer[Chunk]
	// mirrors the owning chunk's data stage
	dataLoaded bool
	leaf       bool
	children   map[LocalChunkID]*chunkInfo
	entities   map[LocalEntityID]*entityInfo
}

type entityInfo struct {
	entity weak.Pointer[Entity]
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{roots: make(map[LocalChunkID]*chunkInfo)}
}

func newChunkInfo(c *Chunk) *chunkInfo {
	return &chunkInfo{chunk: weak.Make(c)}
}

// node resolves id by first resolving its parent. Any missing segment
// yields nil.
func (h *Hierarchy) node(id ChunkID) *chunkInfo {
	if !id.IsValid() {
		return nil
	}
	parentID, ok := id.Parent()
	if !ok {
		h.lock()
		defer h.unlock()
		return h.roots[id.Local()]
	}
	parent := h.node(parentID)
	if parent == nil {
		return nil
	}
	parent.lock()
	defer parent.unlock()
	return parent.children[id.Local()]
}

// ChunkInfo returns the chunk registered under id.
func (h *Hierarchy) ChunkInfo(id ChunkID) (*Chunk, bool) {
	n := h.node(id)
	if n == nil {
		return nil, false
	}
	c := n.chunk.Value()
	return c, c != nil
}

func (h *Hierarchy) IsChunkInfoRegistered(id ChunkID) bool {
	_, ok := h.ChunkInfo(id)
	return ok
}

// InsertChunkInfo links c under parent, or among the roots when parent is nil.
func (h *Hierarchy) InsertChunkInfo(parent *ChunkID, local LocalChunkID, c *Chunk) error {
	if c == nil {
		return eris.Wrap(ErrInvalidOperation, "insert nil chunk info")
	}
	var want ChunkID
	if parent == nil {
		want = RootChunkID(local)
	} else {
		want = ChildChunkID(*parent, local)
	}
	if c.id != want {
		return eris.Wrapf(ErrWrongParentChunk, "chunk %s inserted as %s", c.id, want)
	}

	if parent == nil {
		h.lock()
		defer h.unlock()
		if _, dup := h.roots[local]; dup {
			return eris.Wrapf(ErrChunkAlreadyRegistered, "insert %s", want)
		}
		h.roots[local] = newChunkInfo(c)
		return nil
	}

	p := h.node(*parent)
	if p == nil {
		return eris.Wrapf(ErrParentChunkNotRegistered, "insert %s", want)
	}
	p.lock()
	defer p.unlock()
	switch {
	case !p.dataLoaded:
		return eris.Wrapf(ErrParentChunkDataNotLoaded, "insert %s", want)
	case p.leaf:
		return eris.Wrapf(ErrParentChunkNotAllowedToHaveChildChunks, "insert %s", want)
	}
	if _, dup := p.children[local]; dup {
		return eris.Wrapf(ErrChunkAlreadyRegistered, "insert %s", want)
	}
	p.children[local] = newChunkInfo(c)
	return nil
}

// RemoveChunkInfo unlinks id from its parent or from the roots.
func (h *Hierarchy) RemoveChunkInfo(id ChunkID) error {
	parentID, ok := id.Parent()
	if !ok {
		if !id.IsValid() {
			return eris.Wrapf(ErrInvalidChunkID, "remove %s", id)
		}
		h.lock()
		defer h.unlock()
		if _, found := h.roots[id.Local()]; !found {
			return eris.Wrapf(ErrChunkNotRegistered, "remove %s", id)
		}
		delete(h.roots, id.Local())
		return nil
	}
	p := h.node(parentID)
	if p == nil {
		return eris.Wrapf(ErrChunkNotRegistered, "remove %s", id)
	}
	p.lock()
	defer p.unlock()
	if _, found := p.children[id.Local()]; !found {
		return eris.Wrapf(ErrChunkNotRegistered, "remove %s", id)
	}
	delete(p.children, id.Local())
	return nil
}

// SetChunkInfoData mirrors a data load or unload of id. Unloading drops the
// node's child and entity maps, which the owning tree guarantees are empty.
func (h *Hierarchy) SetChunkInfoData(id ChunkID, loaded, leaf bool) error {
	n := h.node(id)
	if n == nil {
		return eris.Wrapf(ErrChunkNotRegistered, "set data %s", id)
	}
	n.lock()
	defer n.unlock()
	n.dataLoaded = loaded
	n.leaf = loaded && leaf
	n.children, n.entities = nil, nil
	if loaded {
		n.entities = make(map[LocalEntityID]*entityInfo)
		if !leaf {
			n.children = make(map[LocalChunkID]*chunkInfo)
		}
	}
	return nil
}

// EntityInfo resolves id through its owning chunk's node.
func (h *Hierarchy) EntityInfo(id EntityID) (*Entity, bool) {
	n := h.node(id.Chunk)
	if n == nil {
		return nil, false
	}
	n.lock()
	info := n.entities[id.Local]
	n.unlock()
	if info == nil {
		return nil, false
	}
	e := info.entity.Value()
	return e, e != nil
}

func (h *Hierarchy) IsEntityInfoRegistered(id EntityID) bool {
	_, ok := h.EntityInfo(id)
	return ok
}

func (h *Hierarchy) InsertEntityInfo(chunk ChunkID, local LocalEntityID, e *Entity) error {
	if e == nil {
		return eris.Wrap(ErrInvalidOperation, "insert nil entity info")
	}
	want := NewEntityID(chunk, local)
	if e.id != want {
		return eris.Wrapf(ErrWrongParentChunk, "entity %s inserted as %s", e.id, want)
	}
	n := h.node(chunk)
	if n == nil {
		return eris.Wrapf(ErrParentChunkNotRegistered, "insert %s", want)
	}
	n.lock()
	defer n.unlock()
	if !n.dataLoaded {
		return eris.Wrapf(ErrParentChunkDataNotLoaded, "insert %s", want)
	}
	if _, dup := n.entities[local]; dup {
		return eris.Wrapf(ErrEntityAlreadyRegistered, "insert %s", want)
	}
	n.entities[local] = &entityInfo{entity: weak.Make(e)}
	return nil
}

func (h *Hierarchy) RemoveEntityInfo(id EntityID) error {
	n := h.node(id.Chunk)
	if n == nil {
		return eris.Wrapf(ErrEntityNotRegistered, "remove %s", id)
	}
	n.lock()
	defer n.unlock()
	if _, found := n.entities[id.Local]; !found {
		return eris.Wrapf(ErrEntityNotRegistered, "remove %s", id)
	}
	delete(n.entities, id.Local)
	return nil
}

// Counts returns the number of chunk and entity nodes in the index.
func (h *Hierarchy) Counts() (chunks, entities int) {
	h.lock()
	roots := make([]*chunkInfo, 0, len(h.roots))
	for _, n := range h.roots {
		roots = append(roots, n)
	}
	h.unlock()
	for _, n := range roots {
		c, e := n.counts()
		chunks += c
		entities += e
	}
	return chunks, entities
}

func (n *chunkInfo) counts() (chunks, entities int) {
	n.lock()
	kids := make([]*chunkInfo, 0, len(n.children))
	for _, k := range n.children {
		kids = append(kids, k)
	}
	entities = len(n.entities)
	n.unlock()
	chunks = 1
	for _, k := range kids {
		c, e := k.counts()
		chunks += c
		entities += e
	}
	return chunks, entities
}
