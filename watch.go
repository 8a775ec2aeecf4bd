package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay groups the bursts of events editors produce when saving.
const debounceDelay = 200 * time.Millisecond

// watch calls render once and then again every time the input file or a file
// in one of dirs changes, until ctx is done.
func watch(ctx context.Context, inputFileName string, dirs []string, log *zap.SugaredLogger, render func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory of the input, editors often replace files instead of writing them
	if err := watcher.Add(filepath.Dir(inputFileName)); err != nil {
		return fmt.Errorf("watching %s: %w", inputFileName, err)
	}
	for _, dir := range dirs {
		if err := addTree(watcher, dir); err != nil {
			log.Warnw("not watching template directory", "dir", dir, "error", err)
		}
	}

	rerender := func() {
		fmt.Println("************Processing*************")
		if err := render(); err != nil {
			log.Errorw("render failed", "file", inputFileName, "error", err)
		}
	}
	rerender()

	input, _ := filepath.Abs(inputFileName)
	timer := time.NewTimer(debounceDelay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, input, dirs) {
				continue
			}
			log.Debugw("change detected", "file", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			timer.Reset(debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", "error", err)

		case <-timer.C:
			rerender()
		}
	}
}

// relevant reports whether the event touches the input file or a template.
func relevant(event fsnotify.Event, input string, dirs []string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if name == input {
		return true
	}
	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(root, name); err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

// addTree watches dir and all its subdirectories.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
