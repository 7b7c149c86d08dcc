package staging

import (
	"flag"

	"github.com/c2h5oh/datasize"
)

const defaultMaxBufferSize = 256 * datasize.MB

// Config holds the limits of the upload pipeline
type Config struct {
	// MaxBufferSize is the largest buffer that may be created, and the largest single upload.
	// Zero removes the limit.
	MaxBufferSize datasize.ByteSize `yaml:"max_buffer_size"`
}

func DefaultConfig() Config {
	return Config{
		MaxBufferSize: defaultMaxBufferSize,
	}
}

// RegisterFlags registers flags for the upload pipeline configuration
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("", f)
}

// RegisterFlagsWithPrefix registers flags for the upload pipeline configuration, with every flag
// name prefixed by prefix
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.TextVar(&c.MaxBufferSize, prefix+"staging.max-buffer-size", defaultMaxBufferSize, "Largest buffer that may be created or uploaded at once. 0 to disable the limit.")
}

func (c *Config) exceedsBufferLimit(size int) bool {
	return c.MaxBufferSize > 0 && uint64(size) > c.MaxBufferSize.Bytes()
}
