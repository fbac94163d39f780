package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/wippyai/wasm-lua/compiler"
	"github.com/wippyai/wasm-lua/errors"
)

// watchAndRun compiles once, then again each time the input file is
// written, until ctx is cancelled. Compile errors are reported and do not
// stop the watch.
func watchAndRun(ctx context.Context, c *compiler.Compiler, opts options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindIO, err, "create watcher")
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	target := filepath.Clean(opts.wasmFile)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindIO, err, "watch "+filepath.Dir(target))
	}

	report(run(ctx, c, opts))
	status("watching %s", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			report(run(ctx, c, opts))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(errors.Wrap(errors.PhaseLoad, errors.KindIO, err, "watcher"))
		}
	}
}

func report(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
	}
}
