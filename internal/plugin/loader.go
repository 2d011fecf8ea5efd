package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers extensions on disk.
type Loader struct {
	// Search paths, checked in order. The first path providing a name wins.
	paths []string

	discovered map[string]*Info
}

// Info describes a discovered extension.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a loader over DefaultPaths unless WithPaths is given.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPaths(),
		discovered: make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPaths returns the user and project extension directories.
func DefaultPaths() []string {
	paths := make([]string, 0, 3)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "exthost", "extensions"),
			filepath.Join(home, ".local", "share", "exthost", "extensions"),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".exthost", "extensions"))
	}
	return paths
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath appends a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover scans the search paths and returns the extensions found, sorted
// by name. Missing directories are skipped. Extensions with a broken
// manifest or no entry point are returned with Error set.
func (l *Loader) Discover() ([]*Info, error) {
	l.discovered = make(map[string]*Info)
	for _, base := range l.paths {
		if err := l.discoverIn(base); err != nil {
			return nil, err
		}
	}

	out := make([]*Info, 0, len(l.discovered))
	for _, info := range l.discovered {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (l *Loader) discoverIn(base string) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning %s: %w", base, err)
	}

	for _, entry := range entries {
		var info *Info
		if entry.IsDir() {
			info = l.inspect(entry.Name(), filepath.Join(base, entry.Name()))
		} else if filepath.Ext(entry.Name()) == ".lua" {
			info = singleFile(base, entry.Name())
		} else {
			continue
		}
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
	return nil
}

func singleFile(dir, file string) *Info {
	name := strings.TrimSuffix(file, ".lua")
	return &Info{
		Name:     name,
		Path:     dir,
		Manifest: NewManifestMinimal(name, dir, file),
	}
}

// inspect examines an extension directory: a manifest, else init.lua, else
// extension.lua.
func (l *Loader) inspect(name, dir string) *Info {
	info := &Info{Name: name, Path: dir}

	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		m, err := LoadManifestFromDir(dir)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = m
		info.Name = m.Name
		return info
	}

	for _, main := range []string{DefaultMain, "extension.lua"} {
		if _, err := os.Stat(filepath.Join(dir, main)); err == nil {
			info.Manifest = NewManifestMinimal(name, dir, main)
			return info
		}
	}
	info.Error = ErrNoEntryPoint
	return info
}

// Get returns a discovered extension.
func (l *Loader) Get(name string) (*Info, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// Find returns the extension called name, searching the paths when it has
// not been discovered yet.
func (l *Loader) Find(name string) (*Info, error) {
	if info, ok := l.discovered[name]; ok {
		if info.Error != nil {
			return nil, fmt.Errorf("%s: %w", name, info.Error)
		}
		return info, nil
	}

	for _, base := range l.paths {
		dir := filepath.Join(base, name)
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			if info := l.inspect(name, dir); info.Error == nil {
				l.discovered[info.Name] = info
				return info, nil
			}
		}
		if _, err := os.Stat(filepath.Join(base, name+".lua")); err == nil {
			info := singleFile(base, name+".lua")
			l.discovered[name] = info
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Names returns the discovered extension names, sorted.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Errors returns the discovered extensions that cannot load.
func (l *Loader) Errors() []*Info {
	var out []*Info
	for _, name := range l.Names() {
		if info := l.discovered[name]; info.Error != nil {
			out = append(out, info)
		}
	}
	return out
}
