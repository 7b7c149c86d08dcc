package staging

import (
	"context"
	"log/slog"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/devmem"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

// Uploader moves bytes from host memory into device-local buffers and textures. Every operation
// records its work on a transient command buffer, submits it, and waits for the queue to go idle
// before returning, so an upload is complete once the call returns. Operations are serialized.
type Uploader struct {
	logger *slog.Logger
	device hal.Device
	memory *devmem.Manager
	config Config

	mutex sync.Mutex
}

func New(logger *slog.Logger, device hal.Device, memory *devmem.Manager, config Config) (*Uploader, error) {
	if logger == nil {
		return nil, cerrors.New("cannot create an uploader without a logger")
	}

	if device == nil || memory == nil {
		return nil, cerrors.New("an uploader requires a device and a memory manager")
	}

	return &Uploader{
		logger: logger,
		device: device,
		memory: memory,
		config: config,
	}, nil
}

// submit records commands on a transient command buffer, submits it to the device queue, and
// waits for the queue to go idle. The command buffer is freed on every path.
func (u *Uploader) submit(record func(cmd hal.CommandBuffer) error) error {
	cmd, err := u.device.AllocateCommandBuffer()
	if err != nil {
		return memutils.WithClass(cerrors.Wrap(err, "allocating a transient command buffer"), memutils.ErrDeviceFailure)
	}
	defer cmd.Free()

	err = cmd.Begin()
	if err != nil {
		return memutils.WithClass(cerrors.Wrap(err, "beginning a transient command buffer"), memutils.ErrDeviceFailure)
	}

	err = record(cmd)
	if err != nil {
		if !cerrors.Is(err, memutils.ErrInvalidUsage) {
			err = memutils.WithClass(cerrors.Wrap(err, "recording transfer commands"), memutils.ErrDeviceFailure)
		}
		return err
	}

	err = cmd.End()
	if err != nil {
		return memutils.WithClass(cerrors.Wrap(err, "ending a transient command buffer"), memutils.ErrDeviceFailure)
	}

	queue := u.device.Queue()
	err = queue.Submit(cmd)
	if err != nil {
		return memutils.WithClass(cerrors.Wrap(err, "submitting transfer commands"), memutils.ErrDeviceFailure)
	}

	err = queue.WaitIdle()
	if err != nil {
		return memutils.WithClass(cerrors.Wrap(err, "waiting for transfer commands"), memutils.ErrDeviceFailure)
	}

	return nil
}

func (u *Uploader) debug(msg string, attrs ...slog.Attr) {
	u.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func invalidUsagef(format string, args ...any) error {
	return memutils.WithClass(cerrors.Newf(format, args...), memutils.ErrInvalidUsage)
}
