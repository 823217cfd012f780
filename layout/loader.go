package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that none of the candidate document paths exist. The
// caller is expected to fall back to procedural generation.
var ErrNotFound = errors.New("layout: document not found")

// ErrInvalidDocument marks documents that parsed but violate the rules the
// movement kernel depends on.
var ErrInvalidDocument = errors.New("layout: invalid document")

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// DefaultPaths returns the canonical document locations relative to the
// server module root. Callers may pass these to Load.
func DefaultPaths() []string {
	candidates := []string{
		filepath.Join("config", "arena.json"),
		filepath.Join("..", "config", "arena.json"),
	}

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		cleaned := filepath.Clean(candidate)
		if _, duplicate := seen[cleaned]; duplicate {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}

	if len(paths) == 0 {
		return []string{filepath.Join("config", "arena.json")}
	}
	return paths
}

// Load reads the first existing document among paths, decodes it, and
// validates it. Missing files are skipped so deployments may probe several
// locations; when every path is absent the error wraps ErrNotFound.
func Load(paths ...string) (*Document, error) {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return loadFrom(sources...)
}

// loadFrom is the source-level loader. Tests supply in-memory sources while
// production code goes through Load.
func loadFrom(sources ...source) (*Document, error) {
	for _, src := range sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("layout: failed reading %s: %w", src.Path(), err)
		}
		doc, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("layout: failed parsing %s: %w", src.Path(), err)
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("layout: rejected %s: %w", src.Path(), err)
		}
		return doc, nil
	}
	return nil, ErrNotFound
}

// Decode parses a document without validating it. Unknown fields are
// rejected so typos in hand-edited files fail loudly instead of silently
// dropping an obstacle attribute.
func Decode(data []byte) (*Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural rules the kernel depends on: a supported
// format version, finite coordinates, positive obstacle sizes, and ids that
// are unique across walls and ruins together. Every failure wraps
// ErrInvalidDocument.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("nil document: %w", ErrInvalidDocument)
	}
	if d.Version != CurrentVersion {
		return fmt.Errorf("unsupported version %d (loader expects %d): %w", d.Version, CurrentVersion, ErrInvalidDocument)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("missing arena name: %w", ErrInvalidDocument)
	}
	if !isFinite(d.Boundary) {
		return fmt.Errorf("boundary must be finite: %w", ErrInvalidDocument)
	}

	seen := make(map[string]string, len(d.Walls)+len(d.Ruins))
	for i, wall := range d.Walls {
		if err := validateObstacle(seen, "wall", i, wall.ID, wall.X, wall.Y, wall.Width, wall.Height); err != nil {
			return err
		}
	}
	for i, ruin := range d.Ruins {
		if err := validateObstacle(seen, "ruin", i, ruin.ID, ruin.X, ruin.Y, ruin.Width, ruin.Height); err != nil {
			return err
		}
		if !isFinite(ruin.Angle) {
			return fmt.Errorf("ruin %q: angle must be finite: %w", strings.TrimSpace(ruin.ID), ErrInvalidDocument)
		}
	}
	return nil
}

func validateObstacle(seen map[string]string, kind string, index int, id string, x, y, width, height float64) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return fmt.Errorf("%s %d: missing id: %w", kind, index, ErrInvalidDocument)
	}
	if previous, duplicate := seen[trimmed]; duplicate {
		return fmt.Errorf("%s %q: duplicate id (already used by a %s): %w", kind, trimmed, previous, ErrInvalidDocument)
	}
	seen[trimmed] = kind

	if !isFinite(x) || !isFinite(y) {
		return fmt.Errorf("%s %q: center must be finite: %w", kind, trimmed, ErrInvalidDocument)
	}
	if !isFinite(width) || !isFinite(height) || width <= 0 || height <= 0 {
		return fmt.Errorf("%s %q: size must be positive: %w", kind, trimmed, ErrInvalidDocument)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
