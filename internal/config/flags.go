package config

import (
	"strconv"

	"github.com/alecthomas/kingpin/v2"

	"github.com/dcbaker/jsonstreams/sinks/compress"
)

// Flags binds the configuration to a kingpin application.
type Flags struct {
	ConfigFile string

	app       *kingpin.Application
	parsed    Config
	overrides []func(*Config)
}

// RegisterFlags registers a flag for every config field, and the input
// path argument, on app.
func RegisterFlags(app *kingpin.Application) *Flags {
	f := &Flags{app: app, parsed: Default()}

	app.Flag("config.file", "YAML config file.").PlaceHolder("FILE").StringVar(&f.ConfigFile)

	f.enum("input.format", "Format of the input records.", func(c *Config) *string { return &c.Input.Format }, InputFormats...)
	f.str("output", "Output file, stdout when empty or -.", func(c *Config) *string { return &c.Output.Path })
	f.enum("kind", "Root container of the document.", func(c *Config) *string { return &c.Output.Kind }, "array", "object")
	f.str("key-field", "Record field used as the key when --kind=object.", func(c *Config) *string { return &c.Output.KeyField })
	f.num("indent", "Spaces per nesting level, 0 for a single line.", func(c *Config) *int { return &c.Output.Indent })
	f.boolean("pretty", "Also indent inside compound record values.", func(c *Config) *bool { return &c.Output.Pretty })
	f.enum("encoder", "Value encoder.", func(c *Config) *string { return &c.Output.Encoder }, Encoders...)
	f.enum("compress", "Compress the output; auto picks the algorithm from the output file extension.", func(c *Config) *string { return &c.Output.Compress }, append(compress.Algorithms(), CompressAuto)...)
	f.num("compress.level", "Compression level, 0 for the algorithm default.", func(c *Config) *int { return &c.Output.CompressLevel })
	f.num("buffer-size", "Output buffer size in bytes.", func(c *Config) *int { return &c.Output.BufferSize })
	f.str("nats.url", "Publish the document to this NATS server instead of writing a file.", func(c *Config) *string { return &c.NATS.URL })
	f.str("nats.service", "Receiving service name.", func(c *Config) *string { return &c.NATS.Service })
	f.str("nats.document", "Document name announced to the receiver.", func(c *Config) *string { return &c.NATS.Document })
	f.str("nats.source", "Sender name announced to the receiver.", func(c *Config) *string { return &c.NATS.Source })
	f.enum("log.level", "Only log messages with the given severity or above.", func(c *Config) *string { return &c.LogLevel }, LogLevels...)

	var set bool
	app.Arg("input", "Input file, stdin when omitted or -.").IsSetByUser(&set).StringVar(&f.parsed.Input.Path)
	f.track(&set, func(c *Config) { c.Input.Path = f.parsed.Input.Path })

	return f
}

// Resolve loads the config file, if any, applies the flags given on the
// command line and validates the result. Call it after the application has
// parsed its arguments.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = Load(f.ConfigFile); err != nil {
			return cfg, err
		}
	}
	for _, override := range f.overrides {
		override(&cfg)
	}
	return cfg, cfg.Validate()
}

// track records an override applied by Resolve when the flag behind set was
// given explicitly.
func (f *Flags) track(set *bool, apply func(*Config)) {
	f.overrides = append(f.overrides, func(c *Config) {
		if *set {
			apply(c)
		}
	})
}

func (f *Flags) str(name, help string, field func(*Config) *string) {
	set := new(bool)
	def := Default()
	dst := field(&f.parsed)
	f.app.Flag(name, help).Default(*field(&def)).IsSetByUser(set).StringVar(dst)
	f.track(set, func(c *Config) { *field(c) = *dst })
}

func (f *Flags) enum(name, help string, field func(*Config) *string, options ...string) {
	set := new(bool)
	def := Default()
	dst := field(&f.parsed)
	f.app.Flag(name, help).Default(*field(&def)).IsSetByUser(set).EnumVar(dst, options...)
	f.track(set, func(c *Config) { *field(c) = *dst })
}

func (f *Flags) num(name, help string, field func(*Config) *int) {
	set := new(bool)
	def := Default()
	dst := field(&f.parsed)
	f.app.Flag(name, help).Default(strconv.Itoa(*field(&def))).IsSetByUser(set).IntVar(dst)
	f.track(set, func(c *Config) { *field(c) = *dst })
}

func (f *Flags) boolean(name, help string, field func(*Config) *bool) {
	set := new(bool)
	def := Default()
	dst := field(&f.parsed)
	f.app.Flag(name, help).Default(strconv.FormatBool(*field(&def))).IsSetByUser(set).BoolVar(dst)
	f.track(set, func(c *Config) { *field(c) = *dst })
}
