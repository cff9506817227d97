package credstore

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/gommon/log"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/model"
)

// Store persists the serialized session blob (the remote client's cookie
// jar) under the configured data directory.
type Store struct {
	path string
}

func New(config *boot.Config) (*Store, error) {
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", model.ErrorStorage, err)
	}
	return &Store{path: config.CookiesFile()}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the saved session blob, or model.ErrorNoSession when no
// usable blob exists.
func (s *Store) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.ErrorNoSession
		}
		return nil, fmt.Errorf("%w: reading session blob: %v", model.ErrorStorage, err)
	}
	if len(data) == 0 {
		return nil, model.ErrorNoSession
	}
	return data, nil
}

// Save writes the blob atomically: a partial write never replaces the
// previous blob. Write to a temp file in the same directory, sync, rename.
func (s *Store) Save(blob []byte) error {
	dir := path.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", model.ErrorStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing session blob: %v", model.ErrorStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing session blob: %v", model.ErrorStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing session blob: %v", model.ErrorStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replacing session blob: %v", model.ErrorStorage, err)
	}
	return nil
}

// Watch invokes onChange whenever the blob file is rewritten outside the
// process, e.g. an operator dropping in a fresh cookie export. Returns a
// close function for the watcher.
func (s *Store) Watch(onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Infof("credstore: session blob changed on disk")
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("credstore: watcher: %+v", err)
			}
		}
	}()

	// Watch the directory: renames over the file would drop a file-level
	// watch.
	if err := watcher.Add(path.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching data directory: %w", err)
	}

	return func() { watcher.Close() }, nil
}
