package bridge

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ErrModuleNotFound is returned by a ModuleLoader that has no source for a specifier.
var ErrModuleNotFound = errors.New("module not found")

// ModuleLoader supplies the source of imported modules. Specifiers arrive
// already resolved to absolute slash-separated paths, e.g. "/lib/util.js";
// relative imports are resolved against the importing module's location
// before the loader is asked.
type ModuleLoader interface {
	Load(specifier string) ([]byte, error)
}

// ModuleLoaderFunc adapts a function to ModuleLoader.
type ModuleLoaderFunc func(specifier string) ([]byte, error)

func (f ModuleLoaderFunc) Load(specifier string) ([]byte, error) {
	return f(specifier)
}

// NoImports returns a loader that rejects every import.
func NoImports() ModuleLoader {
	return ModuleLoaderFunc(func(string) ([]byte, error) {
		return nil, ErrModuleNotFound
	})
}

type fsLoader struct {
	fsys fs.FS
}

// FSLoader resolves specifiers against fsys, with "/" mapped to the root of fsys.
func FSLoader(fsys fs.FS) ModuleLoader {
	return &fsLoader{fsys: fsys}
}

func (l *fsLoader) Load(specifier string) ([]byte, error) {
	name := strings.TrimPrefix(path.Clean("/"+specifier), "/")
	if name == "" || !fs.ValidPath(name) {
		return nil, ErrModuleNotFound
	}
	info, err := fs.Stat(l.fsys, name)
	if err != nil || info.IsDir() {
		return nil, ErrModuleNotFound
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", specifier, err)
	}
	return data, nil
}

// MapLoader serves modules from memory. Keys are module paths; a missing
// leading slash is added.
func MapLoader(files map[string]string) ModuleLoader {
	m := make(map[string]string, len(files))
	for k, v := range files {
		m[path.Clean("/"+k)] = v
	}
	return ModuleLoaderFunc(func(specifier string) ([]byte, error) {
		src, ok := m[path.Clean("/"+specifier)]
		if !ok {
			return nil, ErrModuleNotFound
		}
		return []byte(src), nil
	})
}
