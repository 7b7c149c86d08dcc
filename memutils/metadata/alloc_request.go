package metadata

// AllocationRequestType identifies the BlockMetadata implementation that produced an AllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestFirstFit indicates that the allocation request was sourced from FirstFitBlockMetadata
	AllocationRequestFirstFit AllocationRequestType = iota
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestFirstFit: "FirstFit",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is returned from BlockMetadata.CreateAllocationRequest and indicates where the
// metadata intends to place new memory. It is committed with BlockMetadata.Alloc
type AllocationRequest struct {
	// BlockAllocationHandle identifies the free region the allocation will be carved from
	BlockAllocationHandle BlockAllocationHandle
	// Size is the size in bytes of the allocation
	Size int
	// Item describes the allocation as it will exist once committed
	Item Suballocation
	// Type identifies the BlockMetadata implementation used to generate this request
	Type AllocationRequestType

	// AlgorithmData is arbitrary data used by the BlockMetadata implementation for internal
	// purposes
	AlgorithmData uint64
}
