// Package bundle writes downstream input files for the current artifact of
// a lineage, together with the lineage record that produced it.
package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// RecordFile is the name of the lineage record inside every bundle.
const RecordFile = "transformations.json"

var (
	// ErrReservedName indicates a generator that produced RecordFile itself.
	ErrReservedName = errors.New("reserved bundle file name")

	// ErrNoDirectory indicates a missing output directory when creation is
	// disabled.
	ErrNoDirectory = errors.New("output directory does not exist")
)

// Generator renders an artifact into named files, for example a POSCAR.
type Generator interface {
	Generate(lineage.Artifact) (map[string][]byte, error)
}

// Bundle maps file names to contents.
type Bundle map[string][]byte

// Names returns the file names in sorted order.
func (b Bundle) Names() []string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Build renders the current artifact of l with gen and adds RecordFile.
func Build(l *lineage.Lineage, codec lineage.Codec, gen Generator) (Bundle, error) {
	files, err := gen.Generate(l.Current())
	if err != nil {
		return nil, fmt.Errorf("generate bundle: %w", err)
	}
	if _, ok := files[RecordFile]; ok {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, RecordFile)
	}
	data, err := record.MarshalValue(codec.Encode(l))
	if err != nil {
		return nil, fmt.Errorf("encode lineage: %w", err)
	}
	b := make(Bundle, len(files)+1)
	for name, content := range files {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return nil, fmt.Errorf("generate bundle: invalid file name %q", name)
		}
		b[name] = content
	}
	b[RecordFile] = data
	return b, nil
}

// Write stores every file of b in dir. When createDir is false dir must
// already exist.
func (b Bundle) Write(dir string, createDir bool) error {
	if createDir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	} else if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoDirectory, dir)
	}
	for _, name := range b.Names() {
		if err := os.WriteFile(filepath.Join(dir, name), b[name], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	slog.Debug("bundle written", "dir", dir, "files", len(b))
	return nil
}

// BuildForest builds one bundle per member of f, in member order.
func BuildForest(f *lineage.Forest, codec lineage.Codec, gen Generator) ([]Bundle, error) {
	members := f.Members()
	out := make([]Bundle, len(members))
	for i, m := range members {
		b, err := Build(m, codec, gen)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// MemberDir names the subdirectory of member i.
func MemberDir(i int) string {
	return fmt.Sprintf("%03d", i)
}

// WriteForest writes the bundle of each member of f into its own numbered
// subdirectory of dir. Nothing is written if any bundle fails to build.
func WriteForest(f *lineage.Forest, codec lineage.Codec, gen Generator, dir string, createDir bool) error {
	bundles, err := BuildForest(f, codec, gen)
	if err != nil {
		return err
	}
	if !createDir {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNoDirectory, dir)
		}
	}
	for i, b := range bundles {
		if err := b.Write(filepath.Join(dir, MemberDir(i)), true); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}
