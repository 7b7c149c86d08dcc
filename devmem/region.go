package devmem

import (
	"fmt"

	"github.com/liufeipengkk1/LLGL/memutils/metadata"
)

// ChunkID identifies a chunk in a Manager's chunk table. The generation changes each time the
// slot is reused, so a ChunkID held after its chunk was destroyed no longer resolves.
type ChunkID struct {
	index      uint32
	generation uint32
}

func (c ChunkID) String() string {
	return fmt.Sprintf("%d@%d", c.index, c.generation)
}

// Region is a range of device memory handed out by Manager.Allocate. Regions are small values
// that may be copied freely, but only the copy passed to Manager.Release is cleared by it. A
// Region must not be used after its chunk has been destroyed.
type Region struct {
	chunk           ChunkID
	handle          metadata.BlockAllocationHandle
	id              uint64
	offset          int
	size            int
	memoryTypeIndex int
}

// IsValid returns false for the zero Region and for Regions that have been released
func (r *Region) IsValid() bool {
	return r != nil && r.id != 0
}

// Offset is the offset in bytes of the region within its chunk
func (r *Region) Offset() int { return r.offset }

func (r *Region) Size() int { return r.size }

func (r *Region) MemoryTypeIndex() int { return r.memoryTypeIndex }

func (r *Region) Chunk() ChunkID { return r.chunk }

func (r Region) String() string {
	if r.id == 0 {
		return "region(released)"
	}
	return fmt.Sprintf("region(chunk %s, offset %d, size %d, type %d)", r.chunk, r.offset, r.size, r.memoryTypeIndex)
}
