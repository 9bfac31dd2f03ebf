// Package config holds the jsonstreams command configuration. Values come
// from an optional YAML file and are overridden by command line flags that
// were given explicitly.
package config

import (
	"io"
	"os"
	"slices"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dcbaker/jsonstreams"
	"github.com/dcbaker/jsonstreams/sinks/compress"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// CompressAuto picks the compression algorithm from the output file name.
const CompressAuto = "auto"

var (
	InputFormats = []string{"ndjson", "csv", "msgpack", "yaml"}

	// Encoders the command offers. The protojson and msgpack encoders need
	// typed values and are library only.
	Encoders  = []string{"json", "jsoniter", "gojson"}
	LogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	Input    InputConfig  `yaml:"input"`
	Output   OutputConfig `yaml:"output"`
	NATS     NATSConfig   `yaml:"nats"`
	LogLevel string       `yaml:"log_level"`
}

type InputConfig struct {
	// Path is the file records are read from; empty or "-" reads stdin.
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

type OutputConfig struct {
	// Path is the file the document is written to; empty or "-" writes
	// stdout.
	Path          string `yaml:"path"`
	Kind          string `yaml:"kind"`
	KeyField      string `yaml:"key_field"`
	Indent        int    `yaml:"indent"`
	Pretty        bool   `yaml:"pretty"`
	Encoder       string `yaml:"encoder"`
	Compress      string `yaml:"compress"`
	CompressLevel int    `yaml:"compress_level"`
	BufferSize    int    `yaml:"buffer_size"`
}

// NATSConfig selects publishing the document over NATS. It is enabled by a
// non-empty URL.
type NATSConfig struct {
	URL      string `yaml:"url"`
	Service  string `yaml:"service"`
	Document string `yaml:"document"`
	Source   string `yaml:"source"`
}

func Default() Config {
	return Config{
		Input: InputConfig{Format: "ndjson"},
		Output: OutputConfig{
			Kind:       "array",
			Encoder:    "json",
			Compress:   CompressAuto,
			BufferSize: jsonstreams.DefaultBufferSize,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file on top of the defaults. Unknown keys are an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// NATSEnabled reports whether the document goes to NATS instead of a file.
func (c *Config) NATSEnabled() bool {
	return c.NATS.URL != ""
}

// Kind returns the root container kind.
func (c *Config) Kind() (jsonstreams.Kind, error) {
	return jsonstreams.ParseKind(c.Output.Kind)
}

// Compression returns the output compression algorithm, resolving
// CompressAuto against the output path.
func (c *Config) Compression() (compress.Algorithm, error) {
	if c.Output.Compress == CompressAuto {
		return compress.FromFilename(c.Output.Path), nil
	}
	return compress.Parse(c.Output.Compress)
}

func (c *Config) Validate() error {
	if !slices.Contains(InputFormats, c.Input.Format) {
		return errors.Wrapf(ErrInvalidConfig, "unknown input format %q", c.Input.Format)
	}
	kind, err := c.Kind()
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "output kind: %v", err)
	}
	if kind == jsonstreams.KindObject && c.Output.KeyField == "" {
		return errors.Wrap(ErrInvalidConfig, "key field is required for object output")
	}
	if c.Output.Indent < 0 {
		return errors.Wrapf(ErrInvalidConfig, "indent must not be negative, got %d", c.Output.Indent)
	}
	if c.Output.BufferSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "buffer size must be positive, got %d", c.Output.BufferSize)
	}
	if !slices.Contains(Encoders, c.Output.Encoder) {
		return errors.Wrapf(ErrInvalidConfig, "unknown encoder %q", c.Output.Encoder)
	}
	if _, err := c.Compression(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "compress: %v", err)
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return errors.Wrapf(ErrInvalidConfig, "unknown log level %q", c.LogLevel)
	}
	if c.NATSEnabled() {
		if c.NATS.Service == "" || c.NATS.Document == "" {
			return errors.Wrap(ErrInvalidConfig, "nats output needs a service and a document name")
		}
		if c.Output.Path != "" && c.Output.Path != "-" {
			return errors.Wrap(ErrInvalidConfig, "nats output and an output file are mutually exclusive")
		}
	}
	return nil
}
