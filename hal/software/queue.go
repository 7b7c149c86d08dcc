package software

import (
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
)

// queue defers all execution to WaitIdle, which makes anything that releases resources
// before waiting fail loudly
type queue struct {
	device *Device

	mutex   sync.Mutex
	pending [][]command
}

var _ hal.Queue = &queue{}

func (q *queue) Submit(commandBuffers ...hal.CommandBuffer) error {
	batches := make([][]command, 0, len(commandBuffers))
	for _, cmd := range commandBuffers {
		softwareCommandBuffer, err := asCommandBuffer(q.device, cmd)
		if err != nil {
			return err
		}

		if softwareCommandBuffer.freed {
			return cerrors.New("cannot submit a freed command buffer")
		}

		if softwareCommandBuffer.state != commandBufferExecutable {
			return cerrors.New("only command buffers that have finished recording can be submitted")
		}

		commands := make([]command, len(softwareCommandBuffer.commands))
		copy(commands, softwareCommandBuffer.commands)
		batches = append(batches, commands)
	}

	for _, cmd := range commandBuffers {
		cmd.(*commandBuffer).state = commandBufferSubmitted
	}

	q.mutex.Lock()
	q.pending = append(q.pending, batches...)
	q.mutex.Unlock()

	q.device.mutex.Lock()
	q.device.submissions++
	q.device.mutex.Unlock()

	return nil
}

func (q *queue) WaitIdle() error {
	q.mutex.Lock()
	pending := q.pending
	q.pending = nil
	q.mutex.Unlock()

	q.device.mutex.Lock()
	q.device.waits++
	q.device.mutex.Unlock()

	for _, batch := range pending {
		for _, cmd := range batch {
			err := cmd()
			if err != nil {
				return cerrors.Wrap(err, "executing submitted commands")
			}
		}
	}

	return nil
}
