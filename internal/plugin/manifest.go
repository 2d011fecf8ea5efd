package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/dshills/exthost/internal/config"
)

// ManifestFile is the manifest name inside an extension directory.
const ManifestFile = "extension.json"

// DefaultMain is the entry point used when the manifest names none.
const DefaultMain = "init.lua"

// Manifest describes an extension.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Author      string `json:"author"`
	License     string `json:"license"`
	Repository  string `json:"repository"`

	// Main is the script to run, relative to the extension directory.
	Main string `json:"main"`

	// Dependencies are extensions that must load first.
	Dependencies []string `json:"dependencies"`

	Contributes Contributes `json:"contributes"`

	dir string
}

// Contributes lists what an extension adds to the host.
type Contributes struct {
	Languages []LanguageContribution `json:"languages"`
	Providers []ProviderContribution `json:"providers"`
}

// LanguageContribution associates file extensions with a language id.
type LanguageContribution struct {
	ID         string   `json:"id"`
	Extensions []string `json:"extensions"`
}

// ProviderContribution binds the script's provider functions to languages.
// Empty Languages matches every document; empty Kinds binds every feature
// the script defines.
type ProviderContribution struct {
	Languages []string `json:"languages"`
	Kinds     []string `json:"kinds"`
}

// Validation errors.
var (
	ErrMissingName     = errors.New("manifest: name is required")
	ErrInvalidName     = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidVersion  = errors.New("manifest: version must be valid semver")
	ErrInvalidMain     = errors.New("manifest: main must be a .lua file")
	ErrInvalidLanguage = errors.New("manifest: language contribution needs an id")
	ErrInvalidKind     = errors.New("manifest: unknown provider kind")
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern accepts MAJOR.MINOR.PATCH with optional pre-release and
// build metadata.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

var validKinds = []string{config.KindDiagnostics, config.KindFormatting, config.KindHover}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads the manifest of an extension directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// NewManifestMinimal returns the manifest of an extension without one: the
// script at dir/main, contributing providers for every language.
func NewManifestMinimal(name, dir, main string) *Manifest {
	m := &Manifest{Name: name, Main: main, dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks the manifest.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	for i, lang := range m.Contributes.Languages {
		if lang.ID == "" {
			return fmt.Errorf("%w at index %d", ErrInvalidLanguage, i)
		}
	}
	for _, p := range m.Contributes.Providers {
		for _, kind := range p.Kinds {
			if !slices.Contains(validKinds, kind) {
				return fmt.Errorf("%w: %s", ErrInvalidKind, kind)
			}
		}
	}
	return nil
}

// Dir returns the extension directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// MainPath returns the path of the entry script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.dir, m.Main)
}

// ProviderContributions returns the declared provider bindings, or a single
// binding for every language and kind when the manifest declares none.
func (m *Manifest) ProviderContributions() []ProviderContribution {
	if len(m.Contributes.Providers) == 0 {
		return []ProviderContribution{{}}
	}
	return m.Contributes.Providers
}

func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}
