package staging

import (
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/devmem"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

// stagingBuffer is a host-visible buffer that transfers are copied through
type stagingBuffer struct {
	buffer hal.Buffer
	region *devmem.Region
	size   int
}

func (u *Uploader) createStagingBuffer(size int, usage hal.BufferUsageFlags, initialData []byte) (_ *stagingBuffer, err error) {
	u.debug("creating staging buffer",
		slog.Int("size", size),
		slog.String("usage", usage.String()))

	buffer, err := u.device.CreateBuffer(hal.BufferDescriptor{Size: size, Usage: usage})
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrap(err, "creating staging buffer"), memutils.ErrDeviceFailure)
	}

	staging := &stagingBuffer{buffer: buffer, size: size}
	defer func() {
		if err != nil {
			_ = u.releaseStagingBuffer(staging)
		}
	}()

	reqs := buffer.MemoryRequirements()
	staging.region, err = u.memory.Allocate(reqs.Size, reqs.Alignment, reqs.MemoryTypeBits,
		hal.MemoryPropertyHostVisible|hal.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	err = u.memory.BindBuffer(staging.region, buffer)
	if err != nil {
		return nil, err
	}

	if len(initialData) > 0 {
		err = u.writeStagingBuffer(staging, initialData, 0)
		if err != nil {
			return nil, err
		}
	}

	return staging, nil
}

func (u *Uploader) writeStagingBuffer(staging *stagingBuffer, data []byte, offset int) error {
	mapped, err := u.memory.Map(staging.region)
	if err != nil {
		return err
	}

	copy(mapped[offset:staging.size], data)
	return u.memory.Unmap(staging.region)
}

// releaseStagingBuffer destroys the buffer and returns its memory. It may be called on a
// partially created staging buffer.
func (u *Uploader) releaseStagingBuffer(staging *stagingBuffer) error {
	if staging == nil {
		return nil
	}

	if staging.buffer != nil {
		staging.buffer.Destroy()
		staging.buffer = nil
	}

	return u.memory.Release(staging.region)
}
