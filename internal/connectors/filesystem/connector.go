// Package filesystem provides a connector that reads documents from
// local files and directories, with optional change watching.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// supportedExtensions are the file types worth embedding as text.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".rst":      true,
	".org":      true,
	".log":      true,
}

// Connector reads documents from a root path. A root that is a single
// file yields exactly that file; a directory is walked recursively.
type Connector struct {
	root string

	mu     sync.Mutex
	closed bool
}

// New creates a filesystem connector rooted at the given path.
func New(root string) *Connector {
	return &Connector{root: root}
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceFile
}

// Fetch walks the root and emits one raw document per supported file.
// Hidden files and directories are skipped. Unreadable files are
// reported on the error channel without stopping the walk.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		info, err := os.Stat(c.root)
		if err != nil {
			errs <- fmt.Errorf("stat %s: %w", c.root, err)
			return
		}

		if !info.IsDir() {
			c.emitFile(ctx, docs, errs, c.root)
			return
		}

		walkErr := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				errs <- fmt.Errorf("walk %s: %w", path, err)
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if isHidden(entry.Name()) && path != c.root {
				if entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.emitFile(ctx, docs, errs, path)
			return nil
		})
		if walkErr != nil && ctx.Err() == nil {
			errs <- walkErr
		}
	}()

	return docs, errs
}

// emitFile reads one file and sends it as a raw document.
func (c *Connector) emitFile(ctx context.Context, docs chan<- domain.RawDocument, errs chan<- error, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		select {
		case errs <- fmt.Errorf("read %s: %w", path, err):
		case <-ctx.Done():
		}
		return
	}

	info, err := os.Stat(path)
	var metadata map[string]any
	if err == nil {
		metadata = map[string]any{
			"path":     path,
			"size":     info.Size(),
			"mod_time": info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	doc := domain.RawDocument{
		SourceType: domain.SourceFile,
		SourceID:   path,
		Content:    content,
		MIMEType:   detectMIMEType(path),
		Metadata:   metadata,
	}

	select {
	case docs <- doc:
	case <-ctx.Done():
	}
}

// Watch emits a raw document whenever a supported file under the root
// is created or written. The channels close when ctx is cancelled.
// The root must be an existing directory.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocument, <-chan error, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, nil, fmt.Errorf("connector is closed")
	}

	info, err := os.Stat(c.root)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("watch root %s is not a directory", c.root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and all existing subdirectories.
	addErr := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if isHidden(entry.Name()) && path != c.root {
				return fs.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if addErr != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("watch %s: %w", c.root, addErr)
	}

	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.handleEvent(ctx, watcher, event, docs, errs)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return docs, errs, nil
}

// handleEvent reacts to a single fsnotify event.
func (c *Connector) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, docs chan<- domain.RawDocument, errs chan<- error) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if isHidden(filepath.Base(event.Name)) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone already, nothing to emit.
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				logger.Warn("Could not watch new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	if !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	c.emitFile(ctx, docs, errs, event.Name)
}

// Close releases resources. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// isHidden reports whether a file or directory name is dot-prefixed.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// detectMIMEType resolves a MIME type from the file extension,
// stripping any charset parameter.
func detectMIMEType(path string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		return "text/plain"
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
