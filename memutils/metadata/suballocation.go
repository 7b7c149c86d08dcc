package metadata

import "math"

// BlockAllocationHandle identifies a region within a BlockMetadata. The zero value never refers
// to a live region.
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// SuballocationType marks a region of a block as used or free
type SuballocationType uint32

const (
	SuballocationFree SuballocationType = iota
	SuballocationUsed
)

var suballocationTypeMapping = map[SuballocationType]string{
	SuballocationFree: "FREE",
	SuballocationUsed: "USED",
}

func (t SuballocationType) String() string {
	return suballocationTypeMapping[t]
}

type Suballocation struct {
	Offset   int
	Size     int
	UserData any
	Type     SuballocationType
}
