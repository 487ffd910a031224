package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// Clock supplies the capture time for provenance records.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Format names an input notation.
type Format string

// Supported formats.
const (
	FormatCIF    Format = "cif"
	FormatPOSCAR Format = "poscar"
)

// DetectFormat guesses the format from a file name: *.cif is CIF, names
// containing POSCAR or CONTCAR, or ending in .vasp, are POSCAR.
func DetectFormat(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".cif"):
		return FormatCIF, nil
	case strings.Contains(base, "poscar"), strings.Contains(base, "contcar"), strings.HasSuffix(base, ".vasp"):
		return FormatPOSCAR, nil
	}
	return "", fmt.Errorf("%w: cannot infer format of %s", ErrFormat, path)
}

// Load dispatches to the adapter for format.
func Load(format Format, text string, clock Clock, ops ...lineage.Transformation) (*lineage.Lineage, error) {
	switch format {
	case FormatCIF:
		return FromCIF(text, clock, ops...)
	case FormatPOSCAR:
		return FromPOSCAR(text, clock, ops...)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrFormat, format)
}

// newProvenance builds the provenance shared by every adapter.
func newProvenance(source, raw string, clock Clock, extra ...record.Pair) lineage.Provenance {
	if clock == nil {
		clock = SystemClock{}
	}
	fields := record.NewObject(
		record.O(lineage.KeySource, record.String(source)),
		record.O(lineage.KeyDatetime, record.String(clock.Now().UTC().Format(time.RFC3339Nano))),
		record.O(lineage.KeyOriginalFile, record.String(strings.ReplaceAll(raw, "'", `"`))),
	)
	for _, p := range extra {
		fields[p.Key] = p.Value
	}
	return lineage.NewProvenance(fields)
}
