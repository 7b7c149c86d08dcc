package devmem

import (
	"flag"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
minimum_chunk_size: 4MB
reduce_fragmentation: true
`))
	require.NoError(t, err)
	require.Equal(t, Config{
		MinimumChunkSize:    4 * datasize.MB,
		MaxChunkSize:        256 * datasize.MB,
		ReduceFragmentation: true,
	}, cfg)

	_, err = ParseConfig([]byte(`minimum_chunk_sise: 4MB`))
	require.Error(t, err)

	_, err = ParseConfig([]byte(`
minimum_chunk_size: 8MB
max_chunk_size: 4MB
`))
	require.Error(t, err)
}

func TestConfigFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlagsWithPrefix("renderer.", fs)

	require.Equal(t, DefaultConfig(), cfg)

	err := fs.Parse([]string{
		"-renderer.memory.minimum-chunk-size=64KB",
		"-renderer.memory.reduce-fragmentation",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 64*datasize.KB, cfg.MinimumChunkSize)
	require.Equal(t, 256*datasize.MB, cfg.MaxChunkSize)
	require.True(t, cfg.ReduceFragmentation)
	require.False(t, cfg.ExternallySynchronized)
}
