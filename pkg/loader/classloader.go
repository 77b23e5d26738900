// Package loader finds class files in directories, jars and jmods and
// turns them into class metadata.
package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/daimatz/jvmc/pkg/classfile"
)

// ErrNotFound is wrapped by every ClassLoader when a class does not exist.
var ErrNotFound = errors.New("class not found")

// ClassLoader loads .class files by class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

var jmodMagic = []byte("JM\x01\x00")

// ArchiveLoader loads classes from a jar or a JDK jmod file. jmod files
// carry a four byte header before the zip data and keep classes under
// classes/.
type ArchiveLoader struct {
	Path string

	mu      sync.Mutex
	cache   map[string]*classfile.ClassFile
	entries map[string]*zip.File
	prefix  string
}

// NewArchiveLoader creates a new ArchiveLoader.
func NewArchiveLoader(path string) *ArchiveLoader {
	return &ArchiveLoader{Path: path, cache: make(map[string]*classfile.ClassFile)}
}

func (cl *ArchiveLoader) ensureIndex() error {
	if cl.entries != nil {
		return nil
	}
	data, err := os.ReadFile(cl.Path)
	if err != nil {
		return fmt.Errorf("archive: reading %s: %w", cl.Path, err)
	}
	if bytes.HasPrefix(data, jmodMagic) {
		data = data[len(jmodMagic):]
		cl.prefix = "classes/"
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("archive: opening zip %s: %w", cl.Path, err)
	}
	cl.entries = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			cl.entries[f.Name] = f
		}
	}
	return nil
}

func (cl *ArchiveLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cf, ok := cl.cache[name]; ok {
		return cf, nil
	}
	if err := cl.ensureIndex(); err != nil {
		return nil, err
	}
	target := cl.prefix + name + ".class"
	f, ok := cl.entries[target]
	if !ok {
		return nil, fmt.Errorf("archive: class %s in %s: %w", name, cl.Path, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", target, err)
	}
	defer rc.Close()
	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
	}
	cl.cache[name] = cf
	return cf, nil
}

// Resource returns the contents of a non-class entry, such as a project
// file bundled in a jar.
func (cl *ArchiveLoader) Resource(name string) ([]byte, bool, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if err := cl.ensureIndex(); err != nil {
		return nil, false, err
	}
	f, ok := cl.entries[name]
	if !ok {
		return nil, false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false, fmt.Errorf("archive: opening %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("archive: reading %s: %w", name, err)
	}
	return data, true, nil
}

// Names lists the classes in the archive, sorted.
func (cl *ArchiveLoader) Names() ([]string, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if err := cl.ensureIndex(); err != nil {
		return nil, err
	}
	var out []string
	for n := range cl.entries {
		if strings.HasPrefix(n, cl.prefix) && strings.HasSuffix(n, ".class") {
			out = append(out, strings.TrimSuffix(strings.TrimPrefix(n, cl.prefix), ".class"))
		}
	}
	sort.Strings(out)
	return out, nil
}

// DirLoader loads classes from a class directory, delegating to the
// parent first.
type DirLoader struct {
	Root   string
	Parent ClassLoader

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
}

// NewDirLoader creates a new DirLoader. parent may be nil.
func NewDirLoader(root string, parent ClassLoader) *DirLoader {
	return &DirLoader{Root: root, Parent: parent, cache: make(map[string]*classfile.ClassFile)}
}

func (cl *DirLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.Lock()
	cf, ok := cl.cache[name]
	cl.mu.Unlock()
	if ok {
		return cf, nil
	}
	if cl.Parent != nil {
		if cf, err := cl.Parent.LoadClass(name); err == nil {
			return cf, nil
		}
	}
	path := filepath.Join(cl.Root, filepath.FromSlash(name)+".class")
	cf, err := classfile.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir: class %s in %s: %w", name, cl.Root, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dir: class %s: %w", name, err)
	}
	cl.mu.Lock()
	cl.cache[name] = cf
	cl.mu.Unlock()
	return cf, nil
}

// Names lists the classes below the root, sorted.
func (cl *DirLoader) Names() ([]string, error) {
	var out []string
	err := filepath.WalkDir(cl.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(cl.Root, path)
		if err != nil {
			return err
		}
		out = append(out, strings.TrimSuffix(filepath.ToSlash(rel), ".class"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir: scanning %s: %w", cl.Root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Chain searches loaders in order and returns the first class found.
type Chain []ClassLoader

func (c Chain) LoadClass(name string) (*classfile.ClassFile, error) {
	for _, cl := range c {
		cf, err := cl.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
}

// Open returns the loader for a class directory, jar or jmod.
func Open(path string) (ClassLoader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return NewDirLoader(path, nil), nil
	}
	switch filepath.Ext(path) {
	case ".jar", ".jmod", ".zip":
		return NewArchiveLoader(path), nil
	}
	return nil, fmt.Errorf("unsupported input %s", path)
}

// Scan lists the classes contained in a directory or archive.
func Scan(path string) ([]string, error) {
	cl, err := Open(path)
	if err != nil {
		return nil, err
	}
	switch l := cl.(type) {
	case *DirLoader:
		return l.Names()
	case *ArchiveLoader:
		return l.Names()
	}
	return nil, nil
}
