package memutils

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics counts chunks and the regions carved out of them
type Statistics struct {
	ChunkCount  int
	RegionCount int
	ChunkBytes  int
	RegionBytes int
}

func (s *Statistics) Clear() {
	s.ChunkCount = 0
	s.RegionCount = 0
	s.ChunkBytes = 0
	s.RegionBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.ChunkCount += other.ChunkCount
	s.RegionCount += other.RegionCount
	s.ChunkBytes += other.ChunkBytes
	s.RegionBytes += other.RegionBytes
}

// FreeBytes is the number of bytes held by chunks but not handed out as regions
func (s *Statistics) FreeBytes() int {
	return s.ChunkBytes - s.RegionBytes
}

func (s Statistics) String() string {
	return fmt.Sprintf("%d regions (%s) in %d chunks (%s)",
		s.RegionCount, humanize.IBytes(uint64(s.RegionBytes)),
		s.ChunkCount, humanize.IBytes(uint64(s.ChunkBytes)))
}

// DetailedStatistics extends Statistics with the size distribution of regions and of the
// free ranges between them
type DetailedStatistics struct {
	Statistics
	FreeRangeCount   int
	RegionSizeMin    int
	RegionSizeMax    int
	FreeRangeSizeMin int
	FreeRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.RegionSizeMin = math.MaxInt
	s.RegionSizeMax = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddRegion(size int) {
	s.RegionCount++
	s.RegionBytes += size

	if size < s.RegionSizeMin {
		s.RegionSizeMin = size
	}

	if size > s.RegionSizeMax {
		s.RegionSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}

	if other.RegionSizeMin < s.RegionSizeMin {
		s.RegionSizeMin = other.RegionSizeMin
	}

	if other.RegionSizeMax > s.RegionSizeMax {
		s.RegionSizeMax = other.RegionSizeMax
	}
}

// PrintJson writes the statistics as members of an already-open JSON object
func (s *DetailedStatistics) PrintJson(json *jwriter.ObjectState) {
	json.Name("ChunkCount").Int(s.ChunkCount)
	json.Name("ChunkBytes").Int(s.ChunkBytes)
	json.Name("RegionCount").Int(s.RegionCount)
	json.Name("RegionBytes").Int(s.RegionBytes)
	json.Name("FreeRangeCount").Int(s.FreeRangeCount)

	if s.RegionCount > 1 {
		json.Name("RegionSizeMin").Int(s.RegionSizeMin)
		json.Name("RegionSizeMax").Int(s.RegionSizeMax)
	}

	if s.FreeRangeCount > 1 {
		json.Name("FreeRangeSizeMin").Int(s.FreeRangeSizeMin)
		json.Name("FreeRangeSizeMax").Int(s.FreeRangeSizeMax)
	}
}
