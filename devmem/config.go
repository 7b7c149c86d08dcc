package devmem

import (
	"bytes"
	"flag"

	"github.com/c2h5oh/datasize"
	cerrors "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultMinimumChunkSize = datasize.MB
	defaultMaxChunkSize     = 256 * datasize.MB
)

// Config controls how the Manager sizes the chunks it requests from the device
type Config struct {
	// MinimumChunkSize is the smallest chunk the Manager will allocate from the device. Requests
	// larger than this get a chunk of their own.
	MinimumChunkSize datasize.ByteSize `yaml:"minimum_chunk_size"`
	// MaxChunkSize caps chunk growth when ReduceFragmentation is enabled
	MaxChunkSize datasize.ByteSize `yaml:"max_chunk_size"`
	// ReduceFragmentation grows each new chunk of a memory type to double the largest existing one,
	// instead of always allocating MinimumChunkSize. Fewer, larger chunks fragment the device's
	// address space less at the cost of holding more memory.
	ReduceFragmentation bool `yaml:"reduce_fragmentation"`
	// ExternallySynchronized disables the Manager's internal locking. Only set it when a single
	// goroutine owns the Manager.
	ExternallySynchronized bool `yaml:"externally_synchronized"`
}

func DefaultConfig() Config {
	return Config{
		MinimumChunkSize: defaultMinimumChunkSize,
		MaxChunkSize:     defaultMaxChunkSize,
	}
}

// RegisterFlags registers flags for the memory manager configuration
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("", f)
}

// RegisterFlagsWithPrefix registers flags for the memory manager configuration, with every flag
// name prefixed by prefix
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.TextVar(&c.MinimumChunkSize, prefix+"memory.minimum-chunk-size", defaultMinimumChunkSize, "Smallest chunk of device memory to allocate at once.")
	f.TextVar(&c.MaxChunkSize, prefix+"memory.max-chunk-size", defaultMaxChunkSize, "Largest chunk size that chunk growth may reach when reducing fragmentation.")
	f.BoolVar(&c.ReduceFragmentation, prefix+"memory.reduce-fragmentation", false, "Grow chunk sizes geometrically to reduce device memory fragmentation.")
	f.BoolVar(&c.ExternallySynchronized, prefix+"memory.externally-synchronized", false, "Disable internal locking; the caller guarantees single-goroutine access.")
}

func (c *Config) Validate() error {
	if c.MinimumChunkSize == 0 {
		return cerrors.New("memory.minimum-chunk-size must be greater than zero")
	}

	if c.MaxChunkSize < c.MinimumChunkSize {
		return cerrors.Newf("memory.max-chunk-size (%s) must not be smaller than memory.minimum-chunk-size (%s)",
			c.MaxChunkSize.HumanReadable(), c.MinimumChunkSize.HumanReadable())
	}

	return nil
}

// ParseConfig reads a yaml document into a Config, starting from DefaultConfig. Unknown keys
// are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&cfg)
	if err != nil {
		return Config{}, cerrors.Wrap(err, "parsing memory manager config")
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}
