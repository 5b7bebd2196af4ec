package universe

import (
	"math"
	"strconv"
	"strings"
)

// LocalChunkID identifies a chunk among its siblings.
type LocalChunkID uint32

// LocalEntityID identifies an entity among the entities of one chunk.
type LocalEntityID uint32

// ParseLocalChunkID validates an externally supplied integer.
func ParseLocalChunkID(v int64) (LocalChunkID, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, invalidLocalID(v)
	}
	return LocalChunkID(v), nil
}

// ParseLocalEntityID validates an externally supplied integer.
func ParseLocalEntityID(v int64) (LocalEntityID, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, invalidLocalID(v)
	}
	return LocalEntityID(v), nil
}

// ChunkID is the path of local IDs from a root chunk down to the chunk it
// names. It is immutable and comparable, so it can key maps directly.
// The zero value names no chunk.
type ChunkID struct {
	// four big-endian bytes per segment
	path string
}

// RootChunkID names a root chunk.
func RootChunkID(local LocalChunkID) ChunkID {
	return ChunkID{path: appendSegment("", uint32(local))}
}

// ChildChunkID names the child local of parent. It returns the zero ChunkID
// when parent is invalid.
func ChildChunkID(parent ChunkID, local LocalChunkID) ChunkID {
	if !parent.IsValid() {
		return ChunkID{}
	}
	return ChunkID{path: appendSegment(parent.path, uint32(local))}
}

// ChunkIDFromPath builds a ChunkID from root-first segments.
func ChunkIDFromPath(path []LocalChunkID) ChunkID {
	var b strings.Builder
	b.Grow(len(path) * 4)
	for _, seg := range path {
		b.WriteString(appendSegment("", uint32(seg)))
	}
	return ChunkID{path: b.String()}
}

func appendSegment(prefix string, v uint32) string {
	return prefix + string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (id ChunkID) segment(i int) LocalChunkID {
	s := id.path[i*4 : i*4+4]
	return LocalChunkID(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

func (id ChunkID) IsValid() bool { return len(id.path) >= 4 && len(id.path)%4 == 0 }

func (id ChunkID) IsRoot() bool { return len(id.path) == 4 }

// Depth is 1 for root chunks.
func (id ChunkID) Depth() int { return len(id.path) / 4 }

func (id ChunkID) Local() LocalChunkID {
	if !id.IsValid() {
		return 0
	}
	return id.segment(id.Depth() - 1)
}

// Parent returns the owning chunk; root chunks have none.
func (id ChunkID) Parent() (ChunkID, bool) {
	if !id.IsValid() || id.IsRoot() {
		return ChunkID{}, false
	}
	return ChunkID{path: id.path[:len(id.path)-4]}, true
}

// Path returns the root-first segments.
func (id ChunkID) Path() []LocalChunkID {
	out := make([]LocalChunkID, id.Depth())
	for i := range out {
		out[i] = id.segment(i)
	}
	return out
}

// IsAncestorOf reports whether id lies strictly above other.
func (id ChunkID) IsAncestorOf(other ChunkID) bool {
	return id.IsValid() && len(other.path) > len(id.path) && strings.HasPrefix(other.path, id.path)
}

func (id ChunkID) String() string {
	if !id.IsValid() {
		return "chunk/<invalid>"
	}
	var b strings.Builder
	b.WriteString("chunk")
	for i := 0; i < id.Depth(); i++ {
		b.WriteByte('/')
		b.WriteString(strconv.FormatUint(uint64(id.segment(i)), 10))
	}
	return b.String()
}

// EntityID names an entity by its owning chunk and local ID.
type EntityID struct {
	Chunk ChunkID
	Local LocalEntityID
}

func NewEntityID(chunk ChunkID, local LocalEntityID) EntityID {
	return EntityID{Chunk: chunk, Local: local}
}

func (id EntityID) IsValid() bool { return id.Chunk.IsValid() }

func (id EntityID) String() string {
	return "entity" + strings.TrimPrefix(id.Chunk.String(), "chunk") + "#" + strconv.FormatUint(uint64(id.Local), 10)
}
