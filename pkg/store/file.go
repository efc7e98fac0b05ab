package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// FileSource serves galleries from a directory of manifests named
// <gallery>.json or <gallery>.toml.
type FileSource struct {
	dir string
}

// NewFileSource creates a source over dir.
func NewFileSource(dir string) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "gallery directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}
	return &FileSource{dir: dir}, nil
}

// Dir returns the manifest directory.
func (s *FileSource) Dir() string { return s.dir }

// Images implements Source.
func (s *FileSource) Images(_ context.Context, galleryID string) ([]gallery.Image, error) {
	if err := errors.ValidateID("gallery", galleryID); err != nil {
		return nil, err
	}
	for _, ext := range manifestExts {
		path := filepath.Join(s.dir, galleryID+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := ReadManifest(path)
		if err != nil {
			return nil, err
		}
		return m.Images, nil
	}
	return nil, notFound(galleryID)
}

// Galleries lists the gallery ids present in the directory.
func (s *FileSource) Galleries() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := galleryIDOf(e.Name())
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Watch calls onChange with the gallery id whenever a manifest in the
// directory is written, created, renamed or removed. Bursts of events for
// one gallery within debounce are coalesced. Watch blocks until ctx is done.
func (s *FileSource) Watch(ctx context.Context, debounce time.Duration, onChange func(galleryID string)) error {
	return watchDir(ctx, s.dir, debounce, func(name string) {
		if id, ok := galleryIDOf(name); ok {
			onChange(id)
		}
	})
}

// WatchFile calls onChange whenever the file at path changes. Editors often
// replace files by renaming, so the parent directory is watched.
func WatchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	base := filepath.Base(path)
	return watchDir(ctx, filepath.Dir(path), debounce, func(name string) {
		if name == base {
			onChange()
		}
	})
}

func watchDir(ctx context.Context, dir string, debounce time.Duration, fire func(name string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[filepath.Base(ev.Name)] = true
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			for name := range pending {
				fire(name)
			}
			clear(pending)
		}
	}
}

func galleryIDOf(name string) (string, bool) {
	ext := filepath.Ext(name)
	for _, e := range manifestExts {
		if strings.EqualFold(ext, e) {
			id := strings.TrimSuffix(name, ext)
			return id, id != "" && !strings.HasPrefix(id, ".")
		}
	}
	return "", false
}

var _ Source = (*FileSource)(nil)
