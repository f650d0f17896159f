package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mcncl/jsonmigration"
	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/config"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/dispatch"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/internal/generator"
	"github.com/mcncl/jsonmigration/internal/logging"
	"github.com/mcncl/jsonmigration/jsonnode"
	"github.com/mcncl/jsonmigration/jsontree"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config string `help:"Path to a configuration file. Defaults to the nearest .jsonmigration.yml." type:"path"`
	Debug  bool   `help:"Enable debug logging." short:"d"`

	Convert  ConvertCmd  `cmd:"" help:"Convert JSON text from one representation to another."`
	Inspect  InspectCmd  `cmd:"" help:"Summarize a JSON document and the strategy a host version selects."`
	Generate GenerateCmd `cmd:"" help:"Generate a converting wrapper from a component descriptor."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Context holds the runtime context shared by every command
type Context struct {
	Config *config.Config
	Logger *zap.Logger
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("jsonmigrate"),
		kong.Description("Convert JSON between the elemental and jsonnode representations and generate converting wrappers"),
		kong.UsageOnError(),
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		// kong.UsageOnError has already printed the usage
		parser.FatalIfErrorf(err)
	}

	ctx, err := newContext(cli.Config, cli.Debug)
	if err == nil {
		err = kctx.Run(ctx)
		_ = ctx.Logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonmigrate --help\n")
		os.Exit(1)
	}
}

// newContext loads the configuration and builds the process logger.
func newContext(configPath string, debug bool) (*Context, error) {
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, 0, debug)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load configuration", err)
	}

	logger, err := logging.New(cfg.Logging.Debug)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		logger.Debug("loaded configuration", zap.String("path", configPath))
	}

	return &Context{
		Config: cfg,
		Logger: logger,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

// ConvertCmd converts JSON text through the canonical tree
type ConvertCmd struct {
	From   string `help:"Representation the input is parsed into." enum:"elemental,node" default:"elemental"`
	To     string `help:"Representation the output is rendered from." enum:"elemental,node,canonical" default:"node"`
	Input  string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
}

func (c *ConvertCmd) Run(ctx *Context) error {
	text, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}

	source, err := parseAs(text, c.From)
	if err != nil {
		return err
	}
	tree, err := convert.ToCanonical(source)
	if err != nil {
		return err
	}

	out, err := render(tree, c.To, ctx.Config.Convert.Indent)
	if err != nil {
		return err
	}
	ctx.Logger.Debug("converted document",
		zap.String("from", c.From), zap.String("to", c.To), zap.Int("bytes", len(text)))
	return writeOutput(ctx, c.Output, out)
}

// parseAs parses text into the named representation.
func parseAs(text, rep string) (any, error) {
	if rep == "elemental" {
		return elemental.Parse(text)
	}
	tree, err := jsontree.ParseString(text)
	if err != nil {
		return nil, err
	}
	return convert.ToNodeValue(tree)
}

// render prints tree in the named representation. Only the canonical form
// honours indent.
func render(tree jsontree.Value, rep, indent string) (string, error) {
	switch rep {
	case "canonical":
		var data []byte
		var err error
		if indent == "" {
			data, err = jsontree.Marshal(tree)
		} else {
			data, err = jsontree.MarshalIndent(tree, indent)
		}
		if err != nil {
			return "", errors.NewOutputError("failed to render canonical JSON", err)
		}
		return string(data), nil
	case "node":
		n, err := convert.ToNodeValue(tree)
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		v, err := convert.ToElementalValue(tree)
		if err != nil {
			return "", err
		}
		return v.ToJSON(), nil
	}
}

// InspectCmd reports what a document contains and how a host would see it
type InspectCmd struct {
	HostVersion int    `help:"Host major version. Overrides host_version and JSONMIGRATION_HOST_VERSION." name:"host-version"`
	File        string `arg:"" help:"JSON file to inspect." type:"path"`
}

// stats counts the values of a canonical tree.
type stats struct {
	kinds map[jsontree.Kind]int
	total int
	depth int
	// widened counts integral numbers that jsonnode renders with a
	// fractional part.
	widened int
}

func collect(v jsontree.Value) *stats {
	s := &stats{kinds: make(map[jsontree.Kind]int)}
	s.walk(v, 1)
	return s
}

func (s *stats) walk(v jsontree.Value, depth int) {
	s.total++
	s.kinds[v.Kind()]++
	s.depth = max(s.depth, depth)

	switch t := v.(type) {
	case *jsontree.Object:
		for _, m := range t.Members() {
			s.walk(m.Value, depth+1)
		}
	case jsontree.Array:
		for _, e := range t {
			s.walk(e, depth+1)
		}
	case jsontree.Number:
		f := float64(t)
		if !math.IsInf(f, 0) && jsonnode.NumberNode(f).String() != jsontree.FormatNumber(f) {
			s.widened++
		}
	}
}

func (c *InspectCmd) Run(ctx *Context) error {
	info, err := os.Stat(c.File)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewInputError(fmt.Sprintf("file '%s' not found", c.File), errors.ErrFileNotFound)
		}
		return errors.NewInputError(fmt.Sprintf("failed to stat '%s'", c.File), err)
	}
	tree, err := jsontree.ParseFile(c.File)
	if err != nil {
		return err
	}
	s := collect(tree)

	out := ctx.Stdout
	fmt.Fprintf(out, "file:      %s\n", c.File)
	fmt.Fprintf(out, "size:      %s\n", humanize.Bytes(uint64(info.Size())))
	fmt.Fprintf(out, "root:      %s\n", tree.Kind())
	fmt.Fprintf(out, "values:    %s\n", humanize.Comma(int64(s.total)))
	for k := jsontree.KindNull; k <= jsontree.KindObject; k++ {
		if n := s.kinds[k]; n > 0 {
			fmt.Fprintf(out, "  %-8s %s\n", k, humanize.Comma(int64(n)))
		}
	}
	fmt.Fprintf(out, "depth:     %d\n", s.depth)
	fmt.Fprintf(out, "widened:   %s integral numbers render with a fraction as jsonnode\n", humanize.Comma(int64(s.widened)))

	version := ctx.Config.HostVersion
	if c.HostVersion > 0 {
		version = c.HostVersion
	}
	if version == 0 {
		fmt.Fprintf(out, "strategy:  unresolved (no host version)\n")
		return nil
	}

	h := jsonmigration.New(jsonmigration.WithHostVersion(version), jsonmigration.WithLogger(ctx.Logger))
	strategy, err := h.Strategy()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "strategy:  %s (host %d exchanges %s, modern since %d)\n",
		strategy.Name(), version, strategy.Host(), dispatch.ModernSince)
	return nil
}

// GenerateCmd writes the converting wrapper for a component descriptor
type GenerateCmd struct {
	Descriptor string `help:"Path to the component descriptor (YAML)." short:"c" required:"" type:"path"`
	Output     string `help:"Path to output Go file. If not specified, writes to stdout." short:"o" type:"path"`
	Package    string `help:"Package name for generated code. Overrides codegen.package." short:"p"`
	Name       string `help:"Name of the wrapper type. Defaults to the component type followed by codegen.suffix." short:"n"`
}

func (c *GenerateCmd) Run(ctx *Context) error {
	d, err := generator.LoadDescriptor(c.Descriptor)
	if err != nil {
		return err
	}

	opts := generator.Options{
		Package:    ctx.Config.Codegen.Package,
		Name:       c.Name,
		Suffix:     ctx.Config.Codegen.Suffix,
		FileHeader: ctx.Config.Codegen.FileHeader,
	}
	if c.Package != "" {
		opts.Package = c.Package
	}
	if opts.Name == "" {
		opts.Name = ctx.Config.WrapperName(d.Type)
	}

	code, err := generator.NewGenerator(opts, ctx.Logger).Generate(d)
	if err != nil {
		return err
	}
	if code == "" {
		fmt.Fprintf(ctx.Stderr, "%s has no methods that need converting; nothing generated\n", d.Type)
		return nil
	}
	return writeOutput(ctx, c.Output, code)
}

// VersionCmd prints version information
type VersionCmd struct{}

func (VersionCmd) Run(ctx *Context) error {
	fmt.Fprintf(ctx.Stdout, "jsonmigrate version %s\n", Version)
	return nil
}

// readInput reads JSON text from file or stdin
func readInput(ctx *Context, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
			}
			return "", errors.NewInputError(fmt.Sprintf("failed to read file '%s'", path), err)
		}
		if len(data) == 0 {
			return "", errors.NewInputError(fmt.Sprintf("input file '%s' is empty", path), errors.ErrFileEmpty)
		}
		return string(data), nil
	}

	stdinInfo, err := ctx.Stdin.Stat()
	if err != nil {
		return "", errors.NewInputError("failed to access stdin", err)
	}
	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		// Terminal is interactive (not piped)
		return "", errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return "", errors.NewInputError("failed to read from stdin", err)
	}
	if len(data) == 0 {
		return "", errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	return string(data), nil
}

// writeOutput writes text to file or stdout
func writeOutput(ctx *Context, path, text string) error {
	if path != "" {
		err := os.WriteFile(path, []byte(text), 0644)
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(ctx.Stderr, "Output written to %s\n", path)
		return nil
	}

	_, err := fmt.Fprintln(ctx.Stdout, strings.TrimSpace(text))
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
