package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ironsheep/image-merge-mcp/internal/config"
	"github.com/ironsheep/image-merge-mcp/internal/engine"
	"github.com/ironsheep/image-merge-mcp/internal/imaging"
	"github.com/ironsheep/image-merge-mcp/internal/intake"
	"github.com/ironsheep/image-merge-mcp/internal/logging"
	"github.com/ironsheep/image-merge-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Configure logging to stderr (stdout carries protocol traffic and images)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps merge error kinds to distinct process exit codes.
func exitCode(err error) int {
	var e *engine.Error
	if !errors.As(err, &e) {
		return 1
	}
	switch e.Kind {
	case engine.KindNoImages:
		return 2
	case engine.KindUnsupportedFormat, engine.KindDecodeFailed:
		return 3
	case engine.KindOutputTooLarge:
		return 4
	}
	return 1
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "image-merge %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return nil
		case "help":
			printHelp(stdout)
			return nil
		case "serve":
			return runServe(args[1:], stderr)
		case "config":
			return runConfig(args[1:], stdout, stderr)
		}
	}
	return runMerge(args, stdout, stderr)
}

// setup loads the config file, applies the environment and the log level
// flag, and configures logging.
func setup(configPath, logLevel string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if logLevel != "" {
		if !logging.ValidLevel(logLevel) {
			return nil, fmt.Errorf("unknown log level %q", logLevel)
		}
		cfg.Log.Level = logLevel
	}
	logging.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func runServe(args []string, stderr io.Writer) error {
	var configPath, logLevel, transport string

	flagSet := pflag.NewFlagSet("image-merge serve", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&transport, "transport", "json", "stdio transport: json (MCP JSON-RPC) or cbor")
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	eng := engine.New(cfg.EngineConfig())
	logging.Info("image-merge %s (built %s, commit %s) serving %s on stdio, %d workers, log level %s",
		Version, BuildTime, GitCommit, transport, eng.Workers(), logging.Level())
	srv := server.New(eng, opts)
	switch transport {
	case "json":
		return srv.Run()
	case "cbor":
		return srv.RunCBOR()
	default:
		return fmt.Errorf("unknown transport %q: expected json or cbor", transport)
	}
}

// runConfig handles "config init PATH", which writes the default
// configuration so it can be edited.
func runConfig(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] != "init" {
		return errors.New("usage: image-merge config init [--force] PATH")
	}

	var force bool
	flagSet := pflag.NewFlagSet("image-merge config init", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVar(&force, "force", false, "overwrite an existing file")
	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: image-merge config init [--force] PATH")
	}

	path := flagSet.Arg(0)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote default config to %s\n", path)
	return nil
}

func runMerge(args []string, stdout, stderr io.Writer) error {
	var (
		configPath  string
		logLevel    string
		output      string
		direction   string
		background  string
		sensitivity int
		noChrome    bool
		maxPixels   int64
		workers     int
	)

	flagSet := pflag.NewFlagSet("image-merge", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&output, "output", "o", "", "write the merged PNG here (- for stdout)")
	flagSet.StringVarP(&direction, "direction", "d", "", "vertical, horizontal or smart")
	flagSet.StringVar(&background, "background", "", "canvas color: #RGB, #RRGGBB, #RRGGBBAA, white, black or transparent")
	flagSet.IntVar(&sensitivity, "sensitivity", imaging.DefaultSensitivity, "overlap tolerance for smart merges, 0-100")
	flagSet.BoolVar(&noChrome, "no-chrome-strip", false, "keep headers and footers repeated between images")
	flagSet.Int64Var(&maxPixels, "max-pixels", engine.DefaultMaxOutputPixels, "reject outputs larger than this many pixels (0 for no limit)")
	flagSet.IntVar(&workers, "workers", 0, "images decoded and scaled in parallel (default: number of CPUs)")
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout)
		return nil
	}
	if output == "" {
		return errors.New("an output path is required (-o FILE, or -o - for stdout)")
	}

	cfg, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	// Flags override the config file only when given.
	if flagSet.Changed("direction") {
		if opts.Direction, err = engine.ParseDirection(direction); err != nil {
			return err
		}
	}
	if flagSet.Changed("background") {
		if opts.Background, err = imaging.ParseBackground(background); err != nil {
			return err
		}
	}
	if flagSet.Changed("sensitivity") {
		if sensitivity < 0 || sensitivity > 100 {
			return fmt.Errorf("sensitivity %d is outside 0-100", sensitivity)
		}
		opts.OverlapSensitivity = sensitivity
	}
	if noChrome {
		opts.StripChrome = false
	}
	if flagSet.Changed("max-pixels") {
		opts.MaxOutputPixels = maxPixels
	}
	engineCfg := cfg.EngineConfig()
	if flagSet.Changed("workers") {
		engineCfg.Workers = workers
	}

	// File indexes in errors count command-line image arguments, including
	// skipped ones.
	files, err := intake.FilterPaths(flagSet.Args())
	if err != nil {
		var rejected *intake.RejectedError
		if errors.As(err, &rejected) {
			return engine.NewFileError(engine.KindUnsupportedFormat, rejected.Index, rejected.Name, err)
		}
		return err
	}
	if skipped := flagSet.NArg() - len(files); skipped > 0 {
		logging.Warn("skipped %d non-image argument(s)", skipped)
	}

	inputs := make([]engine.Input, len(files))
	origin := make([]int, len(files))
	for i, f := range files {
		name := filepath.Base(f.Name)
		data, err := os.ReadFile(f.Name)
		if err != nil {
			return engine.NewFileError(engine.KindDecodeFailed, f.Index, name, err)
		}
		inputs[i] = engine.Input{Data: data, Name: name}
		origin[i] = f.Index
	}

	res, err := engine.New(engineCfg).Merge(inputs, opts)
	if err != nil {
		return engine.RemapFileIndex(err, origin)
	}

	if output == "-" {
		_, err := stdout.Write(res.Data)
		return err
	}
	if err := os.WriteFile(output, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(stdout, "%dx%d %s %s\n", res.Width, res.Height, res.PixelDigest, output)
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `image-merge - stack images into one PNG

Usage:
  image-merge [flags] -o OUTPUT IMAGE...
  image-merge serve [--transport json|cbor] [--config FILE]
  image-merge config init [--force] FILE
  image-merge version

Merge flags:
  -o, --output FILE         write the merged PNG here (- for stdout)
  -d, --direction DIR       vertical (default), horizontal or smart
      --background COLOR    canvas color, default white
      --sensitivity N       overlap tolerance for smart merges, 0-100 (default 35)
      --no-chrome-strip     keep headers and footers repeated between images
      --max-pixels N        reject larger outputs (0 for no limit)
      --workers N           parallel decode/scale workers
      --config FILE         YAML config file
      --log-level LEVEL     debug, info, warn or error

Smart mode stitches scrolling screenshots top to bottom, trimming repeated
headers/footers and the content each capture shares with the previous one.

The serve command speaks MCP (JSON-RPC 2.0) over stdin/stdout by default.
Configure it in your MCP client (e.g., Claude Desktop). With --transport cbor
it reads CBOR merge requests instead.

Environment variables:
  IMAGE_MERGE_LOG_LEVEL=debug    Enable debug logging

Exit codes: 1 general error, 2 too few images, 3 unreadable image,
4 output too large.
`)
}
