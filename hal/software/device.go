package software

import (
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

const (
	defaultHeapSize = 256 * 1024 * 1024
)

// Options configures the memory layout of a software Device
type Options struct {
	MemoryTypes []hal.MemoryType
	MemoryHeaps []hal.MemoryHeap

	// BufferAlignment is the alignment buffers request from memory. Must be a power of two.
	BufferAlignment int
	// ImageAlignment is the alignment images request from memory. Must be a power of two.
	ImageAlignment int
	// MaxMemoryAllocationCount limits the number of live memory allocations, like the Vulkan
	// limit of the same name. 0 means unlimited.
	MaxMemoryAllocationCount int
}

// DefaultOptions describes a discrete GPU: one device-local heap, one host heap, and a small
// device-local heap that the host can also see
func DefaultOptions() Options {
	return Options{
		MemoryHeaps: []hal.MemoryHeap{
			{Size: defaultHeapSize, DeviceLocal: true},
			{Size: defaultHeapSize},
			{Size: 16 * 1024 * 1024, DeviceLocal: true},
		},
		MemoryTypes: []hal.MemoryType{
			{PropertyFlags: hal.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: hal.MemoryPropertyHostVisible | hal.MemoryPropertyHostCoherent, HeapIndex: 1},
			{PropertyFlags: hal.MemoryPropertyHostVisible | hal.MemoryPropertyHostCoherent | hal.MemoryPropertyHostCached, HeapIndex: 1},
			{PropertyFlags: hal.MemoryPropertyDeviceLocal | hal.MemoryPropertyHostVisible | hal.MemoryPropertyHostCoherent, HeapIndex: 2},
		},
		BufferAlignment: 16,
		ImageAlignment:  256,
	}
}

type objectKind int

const (
	objectMemory objectKind = iota
	objectBuffer
	objectImage
	objectCommandBuffer
)

// Stats counts what a software Device has done and what it still holds
type Stats struct {
	LiveMemory         int
	LiveBuffers        int
	LiveImages         int
	LiveCommandBuffers int
	MemoryAllocations  int
	Submissions        int
	Waits              int
	HeapUsage          []int
}

// Device is a hal.Device that keeps all of its memory in host RAM and executes transfer commands
// on the CPU. Submitted work is only executed by Queue.WaitIdle, and commands check image layouts
// and buffer usage the way a validation layer would, so synchronization mistakes surface as errors.
type Device struct {
	mutex   sync.Mutex
	options Options

	nextID    uint64
	objects   *swiss.Map[uint64, objectKind]
	heapUsage []int
	queue     *queue

	memoryAllocations int
	submissions       int
	waits             int
}

var _ hal.Device = &Device{}

func New(options Options) (*Device, error) {
	if len(options.MemoryTypes) == 0 || len(options.MemoryTypes) > 32 {
		return nil, cerrors.Newf("a device must expose between 1 and 32 memory types, but %d were provided", len(options.MemoryTypes))
	}

	for index, memoryType := range options.MemoryTypes {
		if memoryType.HeapIndex < 0 || memoryType.HeapIndex >= len(options.MemoryHeaps) {
			return nil, cerrors.Newf("memory type %d refers to heap %d, but there are only %d heaps", index, memoryType.HeapIndex, len(options.MemoryHeaps))
		}
	}

	err := memutils.CheckPow2(options.BufferAlignment, "buffer alignment")
	if err != nil {
		return nil, err
	}

	err = memutils.CheckPow2(options.ImageAlignment, "image alignment")
	if err != nil {
		return nil, err
	}

	device := &Device{
		options:   options,
		objects:   swiss.NewMap[uint64, objectKind](42),
		heapUsage: make([]int, len(options.MemoryHeaps)),
	}
	device.queue = &queue{device: device}

	return device, nil
}

func (d *Device) register(kind objectKind) uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.nextID++
	d.objects.Put(d.nextID, kind)
	return d.nextID
}

func (d *Device) unregister(id uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.objects.Delete(id)
}

func (d *Device) allMemoryTypeBits() uint32 {
	return uint32(1)<<len(d.options.MemoryTypes) - 1
}

func (d *Device) MemoryProperties() hal.MemoryProperties {
	types := make([]hal.MemoryType, len(d.options.MemoryTypes))
	copy(types, d.options.MemoryTypes)
	heaps := make([]hal.MemoryHeap, len(d.options.MemoryHeaps))
	copy(heaps, d.options.MemoryHeaps)

	return hal.MemoryProperties{
		MemoryTypes: types,
		MemoryHeaps: heaps,
	}
}

func (d *Device) AllocateMemory(memoryTypeIndex int, size int) (hal.Memory, error) {
	if memoryTypeIndex < 0 || memoryTypeIndex >= len(d.options.MemoryTypes) {
		return nil, cerrors.Newf("memory type index %d is out of range", memoryTypeIndex)
	}

	if size <= 0 {
		return nil, cerrors.Newf("cannot allocate %d bytes of device memory", size)
	}

	heapIndex := d.options.MemoryTypes[memoryTypeIndex].HeapIndex

	d.mutex.Lock()
	if d.options.MaxMemoryAllocationCount > 0 && d.liveCount(objectMemory) >= d.options.MaxMemoryAllocationCount {
		d.mutex.Unlock()
		return nil, cerrors.Newf("the device already holds its maximum of %d memory allocations", d.options.MaxMemoryAllocationCount)
	}

	if d.heapUsage[heapIndex]+size > d.options.MemoryHeaps[heapIndex].Size {
		d.mutex.Unlock()
		return nil, cerrors.Wrapf(hal.ErrOutOfDeviceMemory, "heap %d has %d of %d bytes in use and cannot fit %d more",
			heapIndex, d.heapUsage[heapIndex], d.options.MemoryHeaps[heapIndex].Size, size)
	}

	d.heapUsage[heapIndex] += size
	d.memoryAllocations++
	d.mutex.Unlock()

	return &memory{
		device:    d,
		id:        d.register(objectMemory),
		typeIndex: memoryTypeIndex,
		heapIndex: heapIndex,
		data:      make([]byte, size),
	}, nil
}

func (d *Device) releaseHeap(heapIndex, size int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.heapUsage[heapIndex] -= size
}

func (d *Device) CreateBuffer(desc hal.BufferDescriptor) (hal.Buffer, error) {
	if desc.Size <= 0 {
		return nil, cerrors.Newf("cannot create a buffer of %d bytes", desc.Size)
	}

	if desc.Usage == 0 {
		return nil, cerrors.New("cannot create a buffer without usage flags")
	}

	return &buffer{
		device: d,
		id:     d.register(objectBuffer),
		desc:   desc,
	}, nil
}

func (d *Device) CreateImage(desc hal.ImageDescriptor) (hal.Image, error) {
	err := validateImageDescriptor(desc)
	if err != nil {
		return nil, err
	}

	return newImage(d, desc), nil
}

func (d *Device) AllocateCommandBuffer() (hal.CommandBuffer, error) {
	return &commandBuffer{
		device: d,
		id:     d.register(objectCommandBuffer),
	}, nil
}

func (d *Device) Queue() hal.Queue {
	return d.queue
}

// liveCount must be called with the mutex held
func (d *Device) liveCount(kind objectKind) int {
	var count int
	d.objects.Iter(func(id uint64, objKind objectKind) bool {
		if objKind == kind {
			count++
		}
		return false
	})
	return count
}

// Stats returns a snapshot of the device's object and work counters
func (d *Device) Stats() Stats {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	heapUsage := make([]int, len(d.heapUsage))
	copy(heapUsage, d.heapUsage)

	return Stats{
		LiveMemory:         d.liveCount(objectMemory),
		LiveBuffers:        d.liveCount(objectBuffer),
		LiveImages:         d.liveCount(objectImage),
		LiveCommandBuffers: d.liveCount(objectCommandBuffer),
		MemoryAllocations:  d.memoryAllocations,
		Submissions:        d.submissions,
		Waits:              d.waits,
		HeapUsage:          heapUsage,
	}
}

// ImageContents returns a copy of one mip level of one array layer of an image created by this
// device. It is meant for tests and debugging; it does not wait for pending work.
func (d *Device) ImageContents(img hal.Image, mipLevel, layer int) ([]byte, error) {
	softwareImage, err := asImage(d, img)
	if err != nil {
		return nil, err
	}

	err = softwareImage.checkUsable()
	if err != nil {
		return nil, err
	}

	err = softwareImage.checkLayers(mipLevel, layer, 1)
	if err != nil {
		return nil, err
	}

	level := softwareImage.level(mipLevel, layer)
	out := make([]byte, len(level))
	copy(out, level)
	return out, nil
}

// ImageLayout returns the layout one subresource of an image is currently in
func (d *Device) ImageLayout(img hal.Image, mipLevel, layer int) (hal.ImageLayout, error) {
	softwareImage, err := asImage(d, img)
	if err != nil {
		return hal.ImageLayoutUndefined, err
	}

	err = softwareImage.checkLayers(mipLevel, layer, 1)
	if err != nil {
		return hal.ImageLayoutUndefined, err
	}

	return softwareImage.layout(mipLevel, layer), nil
}

// BufferContents returns a copy of the bytes backing a buffer created by this device. Like
// ImageContents it does not wait for pending work.
func (d *Device) BufferContents(buf hal.Buffer) ([]byte, error) {
	softwareBuffer, err := asBuffer(d, buf)
	if err != nil {
		return nil, err
	}

	data, err := softwareBuffer.contents()
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
