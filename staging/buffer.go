package staging

import (
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/devmem"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/vkngwrapper/core/v2/common"
)

// BufferFlags request host access to a buffer. A buffer created with any of them keeps its
// staging buffer for its whole lifetime.
type BufferFlags int32

var bufferFlagsMapping = common.NewFlagStringMapping[BufferFlags]()

func (f BufferFlags) Register(str string) {
	bufferFlagsMapping.Register(f, str)
}
func (f BufferFlags) String() string {
	return bufferFlagsMapping.FlagsToString(f)
}

const (
	// BufferMapRead permits MapBuffer with read access
	BufferMapRead BufferFlags = 1 << iota
	// BufferMapWrite permits MapBuffer with write access
	BufferMapWrite
	// BufferDynamicUsage marks a buffer that is rewritten often. Uploads reuse its staging
	// buffer instead of creating a new one each time.
	BufferDynamicUsage

	cpuAccessFlags = BufferMapRead | BufferMapWrite | BufferDynamicUsage
)

func init() {
	BufferMapRead.Register("MapRead")
	BufferMapWrite.Register("MapWrite")
	BufferDynamicUsage.Register("DynamicUsage")
}

// CPUAccess is the host access requested by MapBuffer
type CPUAccess int

const (
	CPUAccessReadOnly CPUAccess = iota
	CPUAccessWriteOnly
	CPUAccessReadWrite
)

var cpuAccessMapping = map[CPUAccess]string{
	CPUAccessReadOnly:  "ReadOnly",
	CPUAccessWriteOnly: "WriteOnly",
	CPUAccessReadWrite: "ReadWrite",
}

func (a CPUAccess) String() string {
	return cpuAccessMapping[a]
}

func (a CPUAccess) reads() bool  { return a != CPUAccessWriteOnly }
func (a CPUAccess) writes() bool { return a != CPUAccessReadOnly }

type BufferDescriptor struct {
	Size  int
	Usage hal.BufferUsageFlags
	Flags BufferFlags
}

// Buffer is a device-local buffer created by an Uploader
type Buffer struct {
	desc    BufferDescriptor
	buffer  hal.Buffer
	region  *devmem.Region
	staging *stagingBuffer

	mapped    bool
	mapAccess CPUAccess
}

func (b *Buffer) Descriptor() BufferDescriptor { return b.desc }

// Buffer returns the device buffer, or nil once the Buffer has been released
func (b *Buffer) Buffer() hal.Buffer { return b.buffer }

// Region returns the device memory backing the buffer
func (b *Buffer) Region() *devmem.Region { return b.region }

// HasStaging reports whether the buffer keeps a staging buffer for host access
func (b *Buffer) HasStaging() bool { return b.staging != nil }

func (b *Buffer) released() bool {
	return b == nil || b.buffer == nil
}

func deviceBufferUsage(desc BufferDescriptor) hal.BufferUsageFlags {
	usage := desc.Usage | hal.BufferUsageTransferDst
	if desc.Flags&BufferMapRead != 0 {
		usage |= hal.BufferUsageTransferSrc
	}
	return usage
}

func stagingBufferUsage(flags BufferFlags) hal.BufferUsageFlags {
	usage := hal.BufferUsageTransferSrc
	if flags&BufferMapRead != 0 {
		usage |= hal.BufferUsageTransferDst
	}
	return usage
}

// CreateBuffer creates a buffer in device-local memory and fills it with initialData, which may
// be shorter than the buffer or nil. The staging buffer used for the upload is released unless
// desc.Flags requests host access.
func (u *Uploader) CreateBuffer(desc BufferDescriptor, initialData []byte) (_ *Buffer, err error) {
	u.debug("Uploader::CreateBuffer",
		slog.Int("size", desc.Size),
		slog.String("usage", desc.Usage.String()),
		slog.String("flags", desc.Flags.String()))

	if desc.Size <= 0 {
		return nil, invalidUsagef("cannot create a buffer of %d bytes", desc.Size)
	}

	if u.config.exceedsBufferLimit(desc.Size) {
		return nil, invalidUsagef("buffer of %d bytes exceeds the limit of %s", desc.Size, u.config.MaxBufferSize.HumanReadable())
	}

	if len(initialData) > desc.Size {
		return nil, invalidUsagef("initial data of %d bytes does not fit a buffer of %d bytes", len(initialData), desc.Size)
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()

	buffer := &Buffer{desc: desc}
	defer func() {
		if err != nil {
			_ = u.releaseBuffer(buffer)
		}
	}()

	if len(initialData) > 0 || desc.Flags&cpuAccessFlags != 0 {
		buffer.staging, err = u.createStagingBuffer(desc.Size, stagingBufferUsage(desc.Flags), initialData)
		if err != nil {
			return nil, err
		}
	}

	buffer.buffer, err = u.device.CreateBuffer(hal.BufferDescriptor{Size: desc.Size, Usage: deviceBufferUsage(desc)})
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrap(err, "creating device buffer"), memutils.ErrDeviceFailure)
	}

	reqs := buffer.buffer.MemoryRequirements()
	buffer.region, err = u.memory.Allocate(reqs.Size, reqs.Alignment, reqs.MemoryTypeBits, hal.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = u.memory.BindBuffer(buffer.region, buffer.buffer)
	if err != nil {
		return nil, err
	}

	if len(initialData) > 0 {
		err = u.submit(func(cmd hal.CommandBuffer) error {
			return cmd.CopyBuffer(buffer.staging.buffer, buffer.buffer, hal.BufferCopy{Size: len(initialData)})
		})
		if err != nil {
			return nil, err
		}
	}

	if desc.Flags&cpuAccessFlags == 0 {
		staging := buffer.staging
		buffer.staging = nil
		err = u.releaseStagingBuffer(staging)
		if err != nil {
			return nil, err
		}
	}

	return buffer, nil
}

// UploadToBuffer copies data into dst at offset. Buffers with a staging buffer reuse it;
// others get a temporary one for the duration of the call.
func (u *Uploader) UploadToBuffer(dst *Buffer, data []byte, offset int) error {
	u.debug("Uploader::UploadToBuffer",
		slog.Int("size", len(data)),
		slog.Int("offset", offset))

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if dst.released() {
		return invalidUsagef("cannot upload to a released buffer")
	}

	if dst.mapped {
		return invalidUsagef("cannot upload to a buffer while it is mapped")
	}

	if offset < 0 || offset+len(data) > dst.desc.Size {
		return invalidUsagef("upload of %d bytes at offset %d exceeds a buffer of %d bytes", len(data), offset, dst.desc.Size)
	}

	if u.config.exceedsBufferLimit(len(data)) {
		return invalidUsagef("upload of %d bytes exceeds the limit of %s", len(data), u.config.MaxBufferSize.HumanReadable())
	}

	if len(data) == 0 {
		return nil
	}

	if dst.staging != nil {
		err := u.writeStagingBuffer(dst.staging, data, offset)
		if err != nil {
			return err
		}

		return u.submit(func(cmd hal.CommandBuffer) error {
			return cmd.CopyBuffer(dst.staging.buffer, dst.buffer, hal.BufferCopy{
				SrcOffset: offset,
				DstOffset: offset,
				Size:      len(data),
			})
		})
	}

	staging, err := u.createStagingBuffer(len(data), hal.BufferUsageTransferSrc, data)
	if err != nil {
		return err
	}

	err = u.submit(func(cmd hal.CommandBuffer) error {
		return cmd.CopyBuffer(staging.buffer, dst.buffer, hal.BufferCopy{
			DstOffset: offset,
			Size:      len(data),
		})
	})

	return cerrors.CombineErrors(err, u.releaseStagingBuffer(staging))
}

// MapBuffer maps the staging buffer of buf for host access. With read access, the contents of
// the device buffer are copied into it first. The buffer must have been created with the flags
// that permit access, and must be unmapped with UnmapBuffer.
func (u *Uploader) MapBuffer(buf *Buffer, access CPUAccess) ([]byte, error) {
	u.debug("Uploader::MapBuffer", slog.String("access", access.String()))

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if buf.released() {
		return nil, invalidUsagef("cannot map a released buffer")
	}

	if buf.staging == nil {
		return nil, invalidUsagef("buffer was not created with host access (flags %s)", buf.desc.Flags)
	}

	if buf.mapped {
		return nil, invalidUsagef("buffer is already mapped")
	}

	if access.reads() && buf.desc.Flags&BufferMapRead == 0 {
		return nil, invalidUsagef("buffer was not created with %s and cannot be mapped for %s access", BufferMapRead, access)
	}

	if access.writes() && buf.desc.Flags&(BufferMapWrite|BufferDynamicUsage) == 0 {
		return nil, invalidUsagef("buffer was not created with %s and cannot be mapped for %s access", BufferMapWrite, access)
	}

	if access.reads() {
		err := u.submit(func(cmd hal.CommandBuffer) error {
			return cmd.CopyBuffer(buf.buffer, buf.staging.buffer, hal.BufferCopy{Size: buf.desc.Size})
		})
		if err != nil {
			return nil, err
		}
	}

	data, err := u.memory.Map(buf.staging.region)
	if err != nil {
		return nil, err
	}

	buf.mapped = true
	buf.mapAccess = access
	return data[:buf.desc.Size:buf.desc.Size], nil
}

// UnmapBuffer ends a mapping started by MapBuffer. With write access, the staging buffer is
// copied back into the device buffer.
func (u *Uploader) UnmapBuffer(buf *Buffer) error {
	u.debug("Uploader::UnmapBuffer")

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if buf.released() || !buf.mapped {
		return invalidUsagef("buffer is not mapped")
	}

	err := u.memory.Unmap(buf.staging.region)
	if err != nil {
		return err
	}
	buf.mapped = false

	if !buf.mapAccess.writes() {
		return nil
	}

	return u.submit(func(cmd hal.CommandBuffer) error {
		return cmd.CopyBuffer(buf.staging.buffer, buf.buffer, hal.BufferCopy{Size: buf.desc.Size})
	})
}

// ReleaseBuffer destroys buf and returns its memory, along with its staging buffer if it has
// one. Releasing a nil or already released Buffer does nothing.
func (u *Uploader) ReleaseBuffer(buf *Buffer) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if buf.released() {
		return nil
	}

	u.debug("Uploader::ReleaseBuffer", slog.Int("size", buf.desc.Size))

	return u.releaseBuffer(buf)
}

func (u *Uploader) releaseBuffer(buf *Buffer) error {
	var err error
	if buf.mapped {
		err = u.memory.Unmap(buf.staging.region)
		buf.mapped = false
	}

	err = cerrors.CombineErrors(err, u.releaseStagingBuffer(buf.staging))
	buf.staging = nil

	if buf.buffer != nil {
		buf.buffer.Destroy()
		buf.buffer = nil
	}

	return cerrors.CombineErrors(err, u.memory.Release(buf.region))
}
