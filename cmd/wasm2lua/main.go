package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-lua/compiler"
	"github.com/wippyai/wasm-lua/edition"
	"github.com/wippyai/wasm-lua/errors"
	"github.com/wippyai/wasm-lua/lower"
)

type options struct {
	wasmFile string
	outFile  string
	tree     bool
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command and returns the process exit code. Deferred
// cleanup, including the logger flush, completes before main exits.
func execute(args []string) int {
	fs := flag.NewFlagSet("wasm2lua", flag.ContinueOnError)
	var (
		wasmFile   = fs.String("wasm", "", "Path to core wasm module")
		outFile    = fs.String("o", "", "Output Lua file (default stdout)")
		editionArg = fs.String("edition", "", "Target runtime: "+strings.Join(edition.Names(), ", "))
		configFile = fs.String("config", "", "YAML config file")
		funcs      = fs.String("func", "", "Only emit these exported functions (comma-separated)")
		tree       = fs.Bool("tree", false, "Print control trees instead of Lua")
		watch      = fs.Bool("watch", false, "Recompile whenever the input changes")
		verbose    = fs.Bool("v", false, "Debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasm2lua -wasm <file.wasm> [-o out.lua] [-edition luajit|luau] [-config file.yaml]")
		fmt.Fprintln(os.Stderr, "       wasm2lua -wasm <file.wasm> -tree")
		fmt.Fprintln(os.Stderr, "       wasm2lua -wasm <file.wasm> -o out.lua -watch")
		return 1
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			report(err)
			return 1
		}
		compiler.SetLogger(logger)
		lower.SetLogger(logger)
		defer func() {
			_ = logger.Sync()
			compiler.SetLogger(zap.NewNop())
			lower.SetLogger(zap.NewNop())
		}()
	}

	cfg, err := loadConfig(*configFile, *editionArg, *funcs)
	if err != nil {
		report(err)
		return 1
	}
	c, err := compiler.New(cfg)
	if err != nil {
		report(err)
		return 1
	}

	opts := options{wasmFile: *wasmFile, outFile: *outFile, tree: *tree}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch {
		err = watchAndRun(ctx, c, opts)
	} else {
		err = run(ctx, c, opts)
	}
	if err != nil {
		report(err)
		return 1
	}
	return 0
}

// loadConfig applies command-line overrides on top of the config file.
func loadConfig(path, editionName, funcs string) (*compiler.Config, error) {
	cfg := compiler.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = compiler.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if editionName != "" {
		cfg = cfg.WithEdition(editionName)
	}
	if funcs != "" {
		cfg = cfg.WithFunctions(strings.Split(funcs, ",")...)
	}
	return cfg, nil
}

func run(ctx context.Context, c *compiler.Compiler, opts options) error {
	data, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return errors.Load("read "+opts.wasmFile, err)
	}

	var buf bytes.Buffer
	if opts.tree {
		err = c.DumpTrees(ctx, data, &buf)
	} else {
		err = c.Compile(ctx, data, &buf)
	}
	if err != nil {
		return err
	}

	if opts.outFile == "" {
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return errors.WriteFailed("stdout", err)
		}
		return nil
	}
	if err := os.WriteFile(opts.outFile, buf.Bytes(), 0o644); err != nil {
		return errors.WriteFailed(opts.outFile, err)
	}
	status("wrote %s (%s)", opts.outFile, c.Edition().Runtime())
	return nil
}
