package devmem

import (
	"context"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/dustin/go-humanize"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/internal/utils"
	"github.com/liufeipengkk1/LLGL/memutils"
	"golang.org/x/exp/slices"
)

// maxChunkSizeShift is the number of times chunk creation halves its preferred size after the
// device runs out of memory, before giving up
const maxChunkSizeShift = 3

type chunkSlot struct {
	chunk      *chunk
	generation uint32
}

type memoryTypeKey struct {
	memoryTypeBits uint32
	requiredFlags  hal.MemoryPropertyFlags
}

// Manager suballocates device memory. It owns a list of chunks per memory type, routes each
// request to the first chunk of the right type with room for it, and creates a new chunk when
// none has. A chunk is returned to the device as soon as its last region is released.
//
// Unless Config.ExternallySynchronized is set, a Manager is safe for concurrent use.
type Manager struct {
	logger           *slog.Logger
	device           hal.Device
	config           Config
	memoryProperties hal.MemoryProperties

	mutex        utils.OptionalMutex
	typeCache    *swiss.Map[memoryTypeKey, int]
	slots        []chunkSlot
	freeSlots    []uint32
	chunksByType [][]*chunk
	nextRegionID uint64
}

// New creates a Manager that allocates chunks from device
func New(logger *slog.Logger, device hal.Device, config Config) (*Manager, error) {
	if logger == nil {
		return nil, cerrors.New("cannot create a memory manager without a logger")
	}

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	props := device.MemoryProperties()
	if len(props.MemoryTypes) == 0 || len(props.MemoryTypes) > 32 {
		return nil, cerrors.Newf("device reported %d memory types", len(props.MemoryTypes))
	}

	for typeIndex, memoryType := range props.MemoryTypes {
		if memoryType.HeapIndex < 0 || memoryType.HeapIndex >= len(props.MemoryHeaps) {
			return nil, cerrors.Newf("memory type %d refers to heap %d, but the device only has %d heaps", typeIndex, memoryType.HeapIndex, len(props.MemoryHeaps))
		}
	}

	return &Manager{
		logger:           logger,
		device:           device,
		config:           config,
		memoryProperties: props,
		mutex:            utils.OptionalMutex{UseMutex: !config.ExternallySynchronized},
		typeCache:        swiss.NewMap[memoryTypeKey, int](uint32(len(props.MemoryTypes))),
		chunksByType:     make([][]*chunk, len(props.MemoryTypes)),
	}, nil
}

// MemoryProperties returns the memory types and heaps of the Manager's device
func (m *Manager) MemoryProperties() hal.MemoryProperties {
	return m.memoryProperties
}

// FindMemoryTypeIndex returns the first memory type permitted by memoryTypeBits whose properties
// include every flag in requiredFlags
func (m *Manager) FindMemoryTypeIndex(memoryTypeBits uint32, requiredFlags hal.MemoryPropertyFlags) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.findMemoryTypeIndex(memoryTypeBits, requiredFlags)
}

func (m *Manager) findMemoryTypeIndex(memoryTypeBits uint32, requiredFlags hal.MemoryPropertyFlags) (int, error) {
	key := memoryTypeKey{memoryTypeBits: memoryTypeBits, requiredFlags: requiredFlags}
	if typeIndex, ok := m.typeCache.Get(key); ok {
		return typeIndex, nil
	}

	for typeIndex, memoryType := range m.memoryProperties.MemoryTypes {
		if memoryTypeBits&(1<<typeIndex) == 0 {
			// This memory type is banned by the bitmask
			continue
		}

		if memoryType.PropertyFlags&requiredFlags != requiredFlags {
			continue
		}

		m.typeCache.Put(key, typeIndex)
		return typeIndex, nil
	}

	return -1, memutils.WithClass(
		cerrors.Newf("no memory type permitted by bits %#x has the properties %s", memoryTypeBits, requiredFlags),
		memutils.ErrResourceExhausted)
}

// Allocate carves a region of size bytes, aligned to alignment, out of a chunk whose memory type
// is permitted by memoryTypeBits and has every flag in requiredFlags. An alignment of 0 is
// treated as 1.
//
// The returned error matches memutils.ErrInvalidUsage for bad arguments,
// memutils.ErrResourceExhausted when no chunk can be found or created, and
// memutils.ErrDeviceFailure when the device fails for any other reason.
func (m *Manager) Allocate(size, alignment int, memoryTypeBits uint32, requiredFlags hal.MemoryPropertyFlags) (*Region, error) {
	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "Manager::Allocate",
		slog.Int("size", size),
		slog.Int("alignment", alignment),
		slog.String("requiredFlags", requiredFlags.String()),
	)

	if size <= 0 {
		return nil, memutils.WithClass(cerrors.Newf("cannot allocate a region of %d bytes", size), memutils.ErrInvalidUsage)
	}

	if alignment == 0 {
		alignment = 1
	}

	err := memutils.CheckPow2(alignment, "alignment")
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	typeIndex, err := m.findMemoryTypeIndex(memoryTypeBits, requiredFlags)
	if err != nil {
		return nil, err
	}

	// 1. Search the existing chunks of this type in creation order
	for _, c := range m.chunksByType[typeIndex] {
		region, err := m.allocateFromChunk(c, size, alignment)
		if err != nil {
			return nil, err
		} else if region != nil {
			return region, nil
		}
	}

	// 2. Try to create a new chunk
	c, err := m.createChunkFor(typeIndex, size, alignment)
	if err != nil {
		return nil, err
	}

	region, err := m.allocateFromChunk(c, size, alignment)
	if err == nil && region == nil {
		err = cerrors.AssertionFailedf("created chunk %s of %d bytes for an allocation of %d bytes, but it did not fit", c.id, c.metadata.Size(), size)
	}
	if err != nil {
		m.destroyChunk(c)
		return nil, err
	}

	return region, nil
}

func (m *Manager) allocateFromChunk(c *chunk, size, alignment int) (*Region, error) {
	success, request, err := c.metadata.CreateAllocationRequest(size, alignment)
	if err != nil || !success {
		return nil, err
	}

	m.nextRegionID++
	regionID := m.nextRegionID

	handle, err := c.metadata.Alloc(request, regionID)
	if err != nil {
		return nil, err
	}

	memutils.DebugValidate(c.metadata)

	return &Region{
		chunk:           c.id,
		handle:          handle,
		id:              regionID,
		offset:          request.Item.Offset,
		size:            size,
		memoryTypeIndex: c.memoryTypeIndex,
	}, nil
}

// preferredChunkSize decides how large a new chunk for a request should be. The second return
// value is true if the request is too large for a shared chunk and gets one of its own.
func (m *Manager) preferredChunkSize(typeIndex, size, alignment int) (int, bool) {
	required := memutils.AlignUp(size, alignment)
	minimum := int(m.config.MinimumChunkSize)
	if required > minimum {
		return required, true
	}

	chunkSize := minimum
	if m.config.ReduceFragmentation {
		var largest int
		for _, c := range m.chunksByType[typeIndex] {
			if !c.dedicated {
				largest = max(largest, c.metadata.Size())
			}
		}

		heapSize := m.memoryProperties.MemoryHeaps[m.memoryProperties.MemoryTypes[typeIndex].HeapIndex].Size
		limit := min(int(m.config.MaxChunkSize), heapSize/8)
		chunkSize = max(minimum, min(largest*2, limit))
	}

	return memutils.AlignUp(chunkSize, alignment), false
}

func (m *Manager) createChunkFor(typeIndex, size, alignment int) (*chunk, error) {
	chunkSize, dedicated := m.preferredChunkSize(typeIndex, size, alignment)
	required := memutils.AlignUp(size, alignment)

	c, err := m.createChunk(typeIndex, chunkSize, dedicated)
	for shift := 0; err != nil && cerrors.Is(err, memutils.ErrResourceExhausted) && shift < maxChunkSizeShift; shift++ {
		smallerChunkSize := memutils.AlignUp(chunkSize/2, alignment)
		if smallerChunkSize < required || smallerChunkSize == chunkSize {
			break
		}

		chunkSize = smallerChunkSize
		c, err = m.createChunk(typeIndex, chunkSize, dedicated)
	}

	return c, err
}

func (m *Manager) createChunk(typeIndex, chunkSize int, dedicated bool) (*chunk, error) {
	memory, err := m.device.AllocateMemory(typeIndex, chunkSize)
	if err != nil {
		err = cerrors.Wrapf(err, "allocating a chunk of %s from memory type %d", humanize.IBytes(uint64(chunkSize)), typeIndex)
		if cerrors.Is(err, hal.ErrOutOfDeviceMemory) {
			return nil, memutils.WithClass(err, memutils.ErrResourceExhausted)
		}
		return nil, memutils.WithClass(err, memutils.ErrDeviceFailure)
	}

	var index uint32
	if len(m.freeSlots) > 0 {
		index = m.freeSlots[len(m.freeSlots)-1]
		m.freeSlots = m.freeSlots[:len(m.freeSlots)-1]
	} else {
		index = uint32(len(m.slots))
		m.slots = append(m.slots, chunkSlot{})
	}

	id := ChunkID{index: index, generation: m.slots[index].generation}
	c := newChunk(m.logger, id, typeIndex, dedicated, memory, !m.config.ExternallySynchronized)
	m.slots[index].chunk = c
	m.chunksByType[typeIndex] = append(m.chunksByType[typeIndex], c)

	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "created chunk",
		slog.String("chunk", id.String()),
		slog.Int("memoryTypeIndex", typeIndex),
		slog.String("size", humanize.IBytes(uint64(chunkSize))),
		slog.Bool("dedicated", dedicated),
	)

	return c, nil
}

func (m *Manager) destroyChunk(c *chunk) error {
	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "destroying chunk",
		slog.String("chunk", c.id.String()),
		slog.Int("memoryTypeIndex", c.memoryTypeIndex),
	)

	list := m.chunksByType[c.memoryTypeIndex]
	if i := slices.Index(list, c); i >= 0 {
		m.chunksByType[c.memoryTypeIndex] = slices.Delete(list, i, i+1)
	}

	slot := &m.slots[c.id.index]
	slot.chunk = nil
	slot.generation++
	m.freeSlots = append(m.freeSlots, c.id.index)

	return c.Destroy()
}

func (m *Manager) resolve(id ChunkID) (*chunk, error) {
	if int(id.index) >= len(m.slots) {
		return nil, memutils.WithClass(cerrors.Newf("region refers to unknown chunk %s", id), memutils.ErrInvalidUsage)
	}

	slot := m.slots[id.index]
	if slot.chunk == nil || slot.generation != id.generation {
		return nil, memutils.WithClass(cerrors.Newf("region refers to chunk %s, which has been destroyed", id), memutils.ErrInvalidUsage)
	}

	return slot.chunk, nil
}

// resolveRegion finds the chunk backing a live region
func (m *Manager) resolveRegion(region *Region) (*chunk, error) {
	if !region.IsValid() {
		return nil, memutils.WithClass(cerrors.New("region has been released"), memutils.ErrInvalidUsage)
	}

	c, err := m.resolve(region.chunk)
	if err != nil {
		return nil, err
	}

	userData, err := c.metadata.AllocationUserData(region.handle)
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrapf(err, "looking up %s", region), memutils.ErrInvalidUsage)
	}

	if regionID, _ := userData.(uint64); regionID != region.id {
		return nil, memutils.WithClass(cerrors.Newf("%s has already been released", region), memutils.ErrInvalidUsage)
	}

	return c, nil
}

// Release returns a region to its chunk, and the chunk to the device if it no longer holds any
// regions. Releasing a nil or already released region does nothing. On success the region is
// cleared.
func (m *Manager) Release(region *Region) error {
	if !region.IsValid() {
		return nil
	}

	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "Manager::Release",
		slog.String("region", region.String()),
	)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, err := m.resolveRegion(region)
	if err != nil {
		return err
	}

	freeSize, err := c.metadata.Free(region.handle)
	if err != nil {
		return err
	}

	memutils.DebugValidate(c.metadata)
	*region = Region{}

	if freeSize == c.metadata.Size() {
		return m.destroyChunk(c)
	}

	return nil
}

// ChunkCount returns the number of chunks currently held from the device
func (m *Manager) ChunkCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var count int
	for _, chunks := range m.chunksByType {
		count += len(chunks)
	}
	return count
}

// Validate checks the internal consistency of every chunk
func (m *Manager) Validate() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, chunks := range m.chunksByType {
		for _, c := range chunks {
			err := c.Validate()
			if err != nil {
				return cerrors.Wrapf(err, "validating chunk %s", c.id)
			}

			if c.metadata.IsEmpty() {
				return cerrors.Newf("chunk %s holds no regions but was not destroyed", c.id)
			}
		}
	}

	return nil
}

// Destroy returns every chunk to the device. Regions that were never released are logged, and
// an error matching memutils.ErrInvalidUsage is returned if there were any. The Manager must
// not be used afterwards.
func (m *Manager) Destroy() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var leaked error
	for _, chunks := range m.chunksByType {
		// destroyChunk removes the chunk from the list being iterated
		for _, c := range slices.Clone(chunks) {
			leaked = cerrors.CombineErrors(leaked, m.destroyChunk(c))
		}
	}

	clear(m.chunksByType)
	return leaked
}
