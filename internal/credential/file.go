package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/gommon/log"
)

// FileProvider reads the token from a file in the client's data directory.
// A missing file means no credential.
type FileProvider struct {
	path    string
	logger  *log.Logger
	mu      sync.RWMutex
	token   string
	loaded  bool
	watcher *fsnotify.Watcher
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{
		path:   path,
		logger: log.New("credential"),
	}
}

func (p *FileProvider) Path() string {
	return p.path
}

func (p *FileProvider) Credential(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.loaded {
		token := p.token
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	return p.reload()
}

// Store writes a new token to the file and caches it.
func (p *FileProvider) Store(token string) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}

	p.mu.Lock()
	p.token = strings.TrimSpace(token)
	p.loaded = true
	p.mu.Unlock()
	return nil
}

func (p *FileProvider) reload() (string, error) {
	data, err := os.ReadFile(p.path)
	token := ""
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading credential file: %w", err)
		}
	} else {
		token = strings.TrimSpace(string(data))
	}

	p.mu.Lock()
	p.token = token
	p.loaded = true
	p.mu.Unlock()
	return token, nil
}

func (p *FileProvider) invalidate() {
	p.mu.Lock()
	p.loaded = false
	p.mu.Unlock()
}

// Watch reloads the token whenever the file changes on disk. The directory is
// watched rather than the file so that replacing the file is noticed too.
func (p *FileProvider) Watch() error {
	var err error

	p.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-p.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(p.path) {
					continue
				}
				p.logger.Debugf("credential file event: %+v", event)
				p.invalidate()
			case err, ok := <-p.watcher.Errors:
				if !ok {
					return
				}
				p.logger.Errorf("watcher: %+v", err)
			}
		}
	}()

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		p.watcher.Close()
		return fmt.Errorf("creating credential directory: %w", err)
	}
	if err := p.watcher.Add(dir); err != nil {
		p.watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	return nil
}

func (p *FileProvider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
