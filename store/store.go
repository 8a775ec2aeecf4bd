// Package store provides template backends for the wikitext parser. Every
// backend has a Lookup method with the signature of wikitext.TemplateFunc.
package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a template does not exist.
var ErrNotFound = errors.New("template not found")

// Lookuper is implemented by every template backend.
type Lookuper interface {
	Lookup(name string) (string, bool)
}

// MapStore keeps templates in memory, keyed by name.
type MapStore map[string]string

func (m MapStore) Lookup(name string) (string, bool) {
	body, ok := m[name]
	return body, ok
}

// Chain searches several backends in order and returns the first hit.
type Chain []Lookuper

func (c Chain) Lookup(name string) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if body, ok := l.Lookup(name); ok {
			return body, true
		}
	}
	return "", false
}

// Extension is the file extension of templates in a FileStore.
const Extension = ".wiki"

// FileStore reads templates from a directory, one "<name>.wiki" file per template.
// Subpages like "Infobox/row" map to subdirectories.
type FileStore struct {
	dir string
	log *zap.SugaredLogger
}

// NewFileStore returns a FileStore rooted at dir. A nil logger disables logging.
func NewFileStore(dir string, log *zap.SugaredLogger) *FileStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileStore{dir: dir, log: log}
}

// Dir returns the root directory of the store.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// path returns the file holding the named template, refusing names that
// would escape the root directory.
func (fs *FileStore) path(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	rel := filepath.FromSlash(name + Extension)
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(fs.dir, rel), true
}

func (fs *FileStore) Lookup(name string) (string, bool) {
	body, err := fs.Get(name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			fs.log.Warnw("reading template", "template", name, "error", err)
		}
		return "", false
	}
	return body, true
}

// Get returns the body of the named template.
func (fs *FileStore) Get(name string) (string, error) {
	path, ok := fs.path(name)
	if !ok {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Names returns the names of the templates in the store, sorted.
func (fs *FileStore) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(fs.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Extension) {
			return nil
		}
		rel, err := filepath.Rel(fs.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, Extension)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
