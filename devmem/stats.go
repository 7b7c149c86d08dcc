package devmem

import (
	"strconv"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/liufeipengkk1/LLGL/memutils/metadata"
)

// Statistics sums the chunks and regions of every memory type
func (m *Manager) Statistics() memutils.Statistics {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var stats memutils.Statistics
	for _, chunks := range m.chunksByType {
		for _, c := range chunks {
			c.metadata.AddStatistics(&stats)
		}
	}

	return stats
}

// CalculateStatistics populates stats with detailed statistics for every chunk the Manager
// holds. The previous contents of stats are cleared.
func (m *Manager) CalculateStatistics(stats *memutils.DetailedStatistics) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats.Clear()
	for _, chunks := range m.chunksByType {
		for _, c := range chunks {
			c.metadata.AddDetailedStatistics(stats)
		}
	}
}

// PrintDetailedMap writes a json object describing every chunk and every region in it to writer
func (m *Manager) PrintDetailedMap(writer *jwriter.Writer) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	objState := writer.Object()
	defer objState.End()

	var total memutils.DetailedStatistics
	total.Clear()
	for _, chunks := range m.chunksByType {
		for _, c := range chunks {
			c.metadata.AddDetailedStatistics(&total)
		}
	}

	totalObj := objState.Name("Total").Object()
	total.PrintJson(&totalObj)
	totalObj.End()

	typesObj := objState.Name("MemoryTypes").Object()
	defer typesObj.End()

	for typeIndex, chunks := range m.chunksByType {
		if len(chunks) == 0 {
			continue
		}

		typeObj := typesObj.Name(strconv.Itoa(typeIndex)).Object()
		typeObj.Name("Flags").String(m.memoryProperties.MemoryTypes[typeIndex].PropertyFlags.String())

		chunksObj := typeObj.Name("Chunks").Object()
		for _, c := range chunks {
			chunkObj := chunksObj.Name(c.id.String()).Object()

			chunkObj.Name("Dedicated").Bool(c.dedicated)
			chunkObj.Name("MapReferences").Int(c.mapReferences)
			c.metadata.PrintDetailedMapHeader(chunkObj)
			printDetailedMapRegions(c.metadata, chunkObj)

			chunkObj.End()
		}
		chunksObj.End()

		typeObj.End()
	}
}

func printDetailedMapRegions(md metadata.BlockMetadata, json jwriter.ObjectState) {
	arrayState := json.Name("Suballocations").Array()
	defer arrayState.End()

	_ = md.VisitAllRegions(
		func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			obj.Name("Offset").Int(offset)
			if free {
				obj.Name("Type").String(metadata.SuballocationFree.String())
			} else {
				obj.Name("Type").String(metadata.SuballocationUsed.String())
				if regionID, ok := userData.(uint64); ok {
					obj.Name("RegionID").Int(int(regionID))
				}
			}
			obj.Name("Size").Int(size)
			return nil
		})
}
