package devmem

import (
	"context"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/internal/utils"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/liufeipengkk1/LLGL/memutils/metadata"
)

// chunk is a single allocation of device memory together with the metadata that tracks the
// regions carved out of it. The whole chunk is mapped at once and the mapping is shared between
// every region that asks for it.
type chunk struct {
	id              ChunkID
	memoryTypeIndex int
	dedicated       bool
	logger          *slog.Logger

	memory   hal.Memory
	metadata metadata.BlockMetadata

	mapMutex      utils.OptionalMutex
	mapReferences int
	mapData       []byte
}

func newChunk(logger *slog.Logger, id ChunkID, memoryTypeIndex int, dedicated bool, memory hal.Memory, useMutex bool) *chunk {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(memory.Size())

	return &chunk{
		id:              id,
		memoryTypeIndex: memoryTypeIndex,
		dedicated:       dedicated,
		logger:          logger,
		memory:          memory,
		metadata:        md,
		mapMutex:        utils.OptionalMutex{UseMutex: useMutex},
	}
}

func (c *chunk) References() int {
	c.mapMutex.Lock()
	defer c.mapMutex.Unlock()

	return c.mapReferences
}

// Map adds references to the chunk's host mapping, mapping the memory if this is the first
// reference
func (c *chunk) Map(references int) ([]byte, error) {
	if references == 0 {
		return nil, nil
	}

	c.mapMutex.Lock()
	defer c.mapMutex.Unlock()

	if c.mapReferences > 0 {
		if c.mapData == nil {
			return nil, cerrors.New("the chunk is showing existing memory mapping references, but no mapped memory")
		}

		c.mapReferences += references
		return c.mapData, nil
	}

	data, err := c.memory.Map(0, c.memory.Size())
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrapf(err, "mapping chunk %s", c.id), memutils.ErrDeviceFailure)
	}

	c.mapData = data
	c.mapReferences = references
	return data, nil
}

func (c *chunk) Unmap(references int) error {
	c.mapMutex.Lock()
	defer c.mapMutex.Unlock()

	if c.mapReferences < references {
		return memutils.WithClass(cerrors.Newf("chunk %s has %d mapping references, but %d were unmapped", c.id, c.mapReferences, references), memutils.ErrInvalidUsage)
	}

	c.mapReferences -= references
	if c.mapReferences == 0 && c.mapData != nil {
		c.memory.Unmap()
		c.mapData = nil
	}

	return nil
}

// Destroy frees the chunk's device memory. Regions that are still live are logged and reported
// through the returned error, but the memory is freed regardless.
func (c *chunk) Destroy() error {
	if c.memory == nil {
		panic("attempting to destroy a chunk, but it did not have a backing memory handle")
	}

	var err error
	if !c.metadata.IsEmpty() {
		visitErr := c.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
			if !free {
				c.logUnreleasedMemory(offset, size, userData)
			}
			return nil
		})
		if visitErr != nil {
			c.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED MEMORY] error while iterating unreleased memory",
				slog.Any("error", visitErr))
		}

		err = memutils.WithClass(cerrors.Newf("%d regions of chunk %s were not released before it was destroyed", c.metadata.AllocationCount(), c.id), memutils.ErrInvalidUsage)
	}

	if c.mapData != nil {
		c.memory.Unmap()
		c.mapData = nil
		c.mapReferences = 0
	}

	c.memory.Free()
	c.memory = nil
	c.metadata = nil
	return err
}

func (c *chunk) logUnreleasedMemory(offset, size int, userData any) {
	c.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unreleased region",
		slog.String("chunk", c.id.String()),
		slog.Int("offset", offset),
		slog.Int("size", size),
		slog.Any("regionID", userData),
	)
}

func (c *chunk) Validate() error {
	if c.memory == nil {
		return cerrors.Newf("chunk %s has no backing memory", c.id)
	}

	if c.memory.Size() != c.metadata.Size() {
		return cerrors.Newf("chunk %s has %d bytes of memory, but its metadata covers %d bytes", c.id, c.memory.Size(), c.metadata.Size())
	}

	if c.mapReferences > 0 && c.mapData == nil {
		return cerrors.Newf("chunk %s has %d mapping references but no mapped memory", c.id, c.mapReferences)
	}

	return c.metadata.Validate()
}
