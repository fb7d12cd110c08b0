package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/session"
	"golang.org/x/oauth2"
)

// Driver represents the token storage driver backed by a JSON file on disk.
// The file maps storage keys to token records and plays the role browser local storage plays
// for the web front end: a token written by one process is picked up by the next one.
type Driver struct {
	mtx  sync.Mutex
	path string
}

var _ session.Storage = (*Driver)(nil)

// New creates a new file token storage driver.
// The file and its parent directory are created on the first Save.
func New(path string) *Driver {
	return &Driver{path: path}
}

// Path returns the path of the backing file
func (driver *Driver) Path() string {
	return driver.path
}

// Load retrieves the token stored under the given key
func (driver *Driver) Load(_ context.Context, key string) (*oauth2.Token, error) {
	driver.mtx.Lock()
	defer driver.mtx.Unlock()

	tokens, err := driver.read()
	if err != nil {
		return nil, err
	}
	token, ok := tokens[key]
	if !ok {
		return nil, nil
	}
	return token, nil
}

// Save stores a token under the given key, replacing the previous one
func (driver *Driver) Save(_ context.Context, key string, token *oauth2.Token) error {
	driver.mtx.Lock()
	defer driver.mtx.Unlock()

	tokens, err := driver.read()
	if err != nil {
		return err
	}
	if token == nil {
		delete(tokens, key)
	} else {
		tokens[key] = token
	}
	return driver.write(tokens)
}

// Delete removes the token stored under the given key
func (driver *Driver) Delete(_ context.Context, key string) error {
	driver.mtx.Lock()
	defer driver.mtx.Unlock()

	tokens, err := driver.read()
	if err != nil {
		return err
	}
	if _, ok := tokens[key]; !ok {
		return nil
	}
	delete(tokens, key)
	return driver.write(tokens)
}

// Watch calls onChange whenever the backing file is written, replaced or removed by anyone,
// including other processes. Watching stops when the context is done.
func (driver *Driver) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(driver.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Writes replace the file, so the directory is watched
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		name := filepath.Clean(driver.path)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != name {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("path", driver.path).Msg("token file watcher reported an error")
			}
		}
	}()
	return nil
}

func (driver *Driver) read() (map[string]*oauth2.Token, error) {
	tokens := make(map[string]*oauth2.Token)

	data, err := os.ReadFile(driver.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tokens, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (driver *Driver) write(tokens map[string]*oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(driver.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	tmp := driver.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, driver.path)
}
