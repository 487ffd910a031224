package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/structure"
)

// FromPOSCAR parses a VASP 5 POSCAR and returns a lineage seeded with its
// provenance, after applying ops. VASP 4 files, which lack the species
// line, fail with ErrMissingLabel.
func FromPOSCAR(text string, clock Clock, ops ...lineage.Transformation) (*lineage.Lineage, error) {
	s, comment, err := ParsePOSCAR(text)
	if err != nil {
		return nil, err
	}
	prov := newProvenance("uploaded POSCAR", text, clock, record.O("poscar_comment", record.String(comment)))
	return lineage.New(s, &lineage.Seed{Provenance: prov}, ops...)
}

// ParsePOSCAR returns the structure described by text and its comment line.
func ParsePOSCAR(text string) (*structure.Structure, string, error) {
	lines := poscarLines(text)
	if len(lines) < 7 {
		return nil, "", fmt.Errorf("%w: POSCAR needs at least 7 lines, got %d", ErrFormat, len(lines))
	}
	comment := strings.TrimSpace(lines[0])

	scale, err := strconv.ParseFloat(firstField(lines[1]), 64)
	if err != nil || scale == 0 {
		return nil, "", fmt.Errorf("%w: bad scale factor %q", ErrFormat, lines[1])
	}

	var lattice structure.Lattice
	for i := 0; i < 3; i++ {
		row, err := floats3(lines[2+i])
		if err != nil {
			return nil, "", fmt.Errorf("%w: lattice vector %d: %w", ErrFormat, i+1, err)
		}
		lattice[i] = row
	}
	// a negative scale is the target cell volume
	if scale < 0 {
		vol := math.Abs(lattice.Volume())
		if vol == 0 {
			return nil, "", fmt.Errorf("%w: degenerate lattice", ErrFormat)
		}
		scale = math.Cbrt(-scale / vol)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			lattice[i][j] *= scale
		}
	}

	species := strings.Fields(lines[5])
	if len(species) == 0 || !isSymbol(species[0]) {
		return nil, "", fmt.Errorf("%w: POSCAR has no species line", ErrMissingLabel)
	}
	countFields := strings.Fields(lines[6])
	if len(countFields) != len(species) {
		return nil, "", fmt.Errorf("%w: %d species but %d counts", ErrFormat, len(species), len(countFields))
	}
	var order []string
	for i, f := range countFields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("%w: bad atom count %q", ErrFormat, f)
		}
		for k := 0; k < n; k++ {
			order = append(order, elementOf(species[i]))
		}
	}

	next := 7
	if next < len(lines) && startsWith(lines[next], 's') {
		next++ // selective dynamics
	}
	if next >= len(lines) {
		return nil, "", fmt.Errorf("%w: missing coordinate mode line", ErrFormat)
	}
	cartesian := startsWith(lines[next], 'c') || startsWith(lines[next], 'k')
	next++

	if len(lines)-next < len(order) {
		return nil, "", fmt.Errorf("%w: expected %d coordinate lines, got %d", ErrFormat, len(order), len(lines)-next)
	}
	sites := make([]structure.Site, len(order))
	for i, sp := range order {
		coords, err := floats3(lines[next+i])
		if err != nil {
			return nil, "", fmt.Errorf("%w: site %d: %w", ErrFormat, i, err)
		}
		if cartesian {
			for j := range coords {
				coords[j] *= scale
			}
			if coords, err = lattice.Fractional(coords); err != nil {
				return nil, "", fmt.Errorf("%w: site %d: %w", ErrFormat, i, err)
			}
		}
		sites[i] = structure.Site{Species: sp, Coords: coords}
	}
	s, err := structure.New(lattice, sites)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return s, comment, nil
}

// poscarLines splits text into lines. The first line is the comment and is
// kept even when blank; blank lines after it are dropped.
func poscarLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := []string{raw[0]}
	for _, l := range raw[1:] {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func firstField(line string) string {
	f := strings.Fields(line)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func floats3(line string) ([3]float64, error) {
	var out [3]float64
	f := strings.Fields(line)
	if len(f) < 3 {
		return out, fmt.Errorf("expected 3 numbers in %q", strings.TrimSpace(line))
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func startsWith(line string, c byte) bool {
	t := strings.TrimSpace(line)
	return t != "" && (t[0]|0x20) == c
}

func isSymbol(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsUpper(r[0])
}
