package devmem

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

// BindBuffer binds buffer to the memory backing region
func (m *Manager) BindBuffer(region *Region, buffer hal.Buffer) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, err := m.resolveRegion(region)
	if err != nil {
		return err
	}

	err = buffer.BindMemory(c.memory, region.offset)
	if err != nil {
		return memutils.WithClass(cerrors.Wrapf(err, "binding buffer to %s", region), memutils.ErrDeviceFailure)
	}

	return nil
}

// BindImage binds image to the memory backing region
func (m *Manager) BindImage(region *Region, image hal.Image) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, err := m.resolveRegion(region)
	if err != nil {
		return err
	}

	err = image.BindMemory(c.memory, region.offset)
	if err != nil {
		return memutils.WithClass(cerrors.Wrapf(err, "binding image to %s", region), memutils.ErrDeviceFailure)
	}

	return nil
}

// Map returns the bytes of region for host access. The memory type of the region must be host
// visible. Each successful call must be paired with a call to Unmap; the returned slice is not
// valid after it.
func (m *Manager) Map(region *Region) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, err := m.resolveRegion(region)
	if err != nil {
		return nil, err
	}

	flags := m.memoryProperties.MemoryTypes[c.memoryTypeIndex].PropertyFlags
	if flags&hal.MemoryPropertyHostVisible == 0 {
		return nil, memutils.WithClass(cerrors.Newf("%s is in memory type %d (%s), which cannot be mapped", region, c.memoryTypeIndex, flags), memutils.ErrInvalidUsage)
	}

	data, err := c.Map(1)
	if err != nil {
		return nil, err
	}

	return data[region.offset : region.offset+region.size : region.offset+region.size], nil
}

// Unmap releases a mapping obtained from Map
func (m *Manager) Unmap(region *Region) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, err := m.resolveRegion(region)
	if err != nil {
		return err
	}

	return c.Unmap(1)
}
