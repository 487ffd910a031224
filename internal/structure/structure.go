package structure

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// ErrInvalidStructure indicates a structure that cannot be built or decoded.
var ErrInvalidStructure = errors.New("invalid structure")

const tolerance = 1e-8

// Lattice holds the three lattice vectors as rows, in ångström.
type Lattice [3][3]float64

// LatticeFromParameters builds a lattice from lengths and angles in degrees,
// with a along x and b in the xy plane.
func LatticeFromParameters(a, b, c, alpha, beta, gamma float64) (Lattice, error) {
	if a <= 0 || b <= 0 || c <= 0 {
		return Lattice{}, fmt.Errorf("%w: non-positive lattice length", ErrInvalidStructure)
	}
	rad := math.Pi / 180
	ca, cb, cg := math.Cos(alpha*rad), math.Cos(beta*rad), math.Cos(gamma*rad)
	sg := math.Sin(gamma * rad)
	if math.Abs(sg) < tolerance {
		return Lattice{}, fmt.Errorf("%w: degenerate gamma %v", ErrInvalidStructure, gamma)
	}
	cx := c * cb
	cy := c * (ca - cb*cg) / sg
	cz2 := c*c - cx*cx - cy*cy
	if cz2 <= 0 {
		return Lattice{}, fmt.Errorf("%w: angles %v/%v/%v do not form a cell", ErrInvalidStructure, alpha, beta, gamma)
	}
	return Lattice{
		{a, 0, 0},
		{b * cg, b * sg, 0},
		{cx, cy, math.Sqrt(cz2)},
	}, nil
}

// Volume returns the cell volume.
func (l Lattice) Volume() float64 {
	return math.Abs(det(l))
}

func det(m Lattice) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Fractional converts cartesian coordinates to fractional ones.
func (l Lattice) Fractional(cart [3]float64) ([3]float64, error) {
	d := det(l)
	if math.Abs(d) < tolerance {
		return [3]float64{}, fmt.Errorf("%w: singular lattice", ErrInvalidStructure)
	}
	// cart = frac · L, so frac = cart · L⁻¹ via Cramer's rule on the columns
	var frac [3]float64
	for i := 0; i < 3; i++ {
		m := l
		for j := 0; j < 3; j++ {
			m[i][j] = cart[j]
		}
		frac[i] = det(m) / d
	}
	return frac, nil
}

// Site is one atom: an element symbol at fractional coordinates.
type Site struct {
	Species string
	Coords  [3]float64
}

// Structure is a periodic crystal structure.
type Structure struct {
	lattice Lattice
	sites   []Site
}

var _ lineage.Artifact = (*Structure)(nil)

// New builds a Structure from a lattice and a copy of sites.
func New(lattice Lattice, sites []Site) (*Structure, error) {
	if math.Abs(det(lattice)) < tolerance {
		return nil, fmt.Errorf("%w: singular lattice", ErrInvalidStructure)
	}
	for i, s := range sites {
		if s.Species == "" {
			return nil, fmt.Errorf("%w: site %d has no species", ErrInvalidStructure, i)
		}
	}
	return &Structure{lattice: lattice, sites: slices.Clone(sites)}, nil
}

// Lattice returns the lattice.
func (s *Structure) Lattice() Lattice {
	return s.lattice
}

// Sites returns a copy of the sites.
func (s *Structure) Sites() []Site {
	return slices.Clone(s.sites)
}

// NumSites returns the number of sites.
func (s *Structure) NumSites() int {
	return len(s.sites)
}

// Composition counts sites per species.
func (s *Structure) Composition() map[string]int {
	comp := make(map[string]int)
	for _, site := range s.sites {
		comp[site.Species]++
	}
	return comp
}

// Formula returns the composition with species in alphabetical order,
// for example "Fe2 O3".
func (s *Structure) Formula() string {
	comp := s.Composition()
	species := make([]string, 0, len(comp))
	for sp := range comp {
		species = append(species, sp)
	}
	slices.Sort(species)
	parts := make([]string, len(species))
	for i, sp := range species {
		parts[i] = fmt.Sprintf("%s%d", sp, comp[sp])
	}
	return strings.Join(parts, " ")
}

// Equal reports whether both structures have the same lattice and sites in
// the same order, within a small tolerance.
func (s *Structure) Equal(o *Structure) bool {
	if o == nil || len(s.sites) != len(o.sites) {
		return false
	}
	for i := 0; i < 3; i++ {
		if !close3(s.lattice[i], o.lattice[i]) {
			return false
		}
	}
	for i, site := range s.sites {
		if site.Species != o.sites[i].Species || !close3(site.Coords, o.sites[i].Coords) {
			return false
		}
	}
	return true
}

func close3(a, b [3]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

// String summarizes the structure.
func (s *Structure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Full Formula (%s)\n", s.Formula())
	for _, v := range s.lattice {
		fmt.Fprintf(&b, "  %10.6f %10.6f %10.6f\n", v[0], v[1], v[2])
	}
	for i, site := range s.sites {
		fmt.Fprintf(&b, "%3d %-3s %8.6f %8.6f %8.6f", i, site.Species, site.Coords[0], site.Coords[1], site.Coords[2])
		if i < len(s.sites)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Record implements lineage.Artifact.
func (s *Structure) Record() record.Object {
	matrix := make(record.Array, 3)
	for i, v := range s.lattice {
		matrix[i] = record.Floats(v[0], v[1], v[2])
	}
	sites := make(record.Array, len(s.sites))
	for i, site := range s.sites {
		sites[i] = record.NewObject(
			record.O("species", record.String(site.Species)),
			record.O("abc", record.Floats(site.Coords[0], site.Coords[1], site.Coords[2])),
		)
	}
	return record.NewObject(
		record.O("lattice", record.NewObject(record.O("matrix", matrix))),
		record.O("sites", sites),
	)
}

// FromRecord rebuilds a Structure from its record.
func FromRecord(obj record.Object) (*Structure, error) {
	lat, ok := obj.Obj("lattice")
	if !ok {
		return nil, fmt.Errorf("%w: missing lattice", ErrInvalidStructure)
	}
	rows, ok := lat.Arr("matrix")
	if !ok || len(rows) != 3 {
		return nil, fmt.Errorf("%w: lattice matrix must have 3 rows", ErrInvalidStructure)
	}
	var lattice Lattice
	for i, row := range rows {
		v, err := vector(row)
		if err != nil {
			return nil, fmt.Errorf("lattice row %d: %w", i, err)
		}
		lattice[i] = v
	}

	rawSites, ok := obj.Arr("sites")
	if !ok {
		return nil, fmt.Errorf("%w: missing sites", ErrInvalidStructure)
	}
	sites := make([]Site, len(rawSites))
	for i, rs := range rawSites {
		so, ok := rs.(record.Object)
		if !ok {
			return nil, fmt.Errorf("%w: site %d is not an object", ErrInvalidStructure, i)
		}
		sp, _ := so.Str("species")
		abc, err := vector(so["abc"])
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", i, err)
		}
		sites[i] = Site{Species: sp, Coords: abc}
	}
	return New(lattice, sites)
}

// DecodeArtifact adapts FromRecord to lineage.Codec.
func DecodeArtifact(obj record.Object) (lineage.Artifact, error) {
	return FromRecord(obj)
}

func vector(v record.Value) ([3]float64, error) {
	arr, ok := v.(record.Array)
	if !ok || len(arr) != 3 {
		return [3]float64{}, fmt.Errorf("%w: expected 3 numbers", ErrInvalidStructure)
	}
	var out [3]float64
	for i, x := range arr {
		f, ok := record.Number(x)
		if !ok {
			return [3]float64{}, fmt.Errorf("%w: expected number, got %T", ErrInvalidStructure, x)
		}
		out[i] = f
	}
	return out, nil
}

// speciesOrder returns species in order of first appearance.
func (s *Structure) speciesOrder() []string {
	var order []string
	for _, site := range s.sites {
		if !slices.Contains(order, site.Species) {
			order = append(order, site.Species)
		}
	}
	return order
}

// POSCAR renders the structure in VASP 5 format with direct coordinates.
// Sites are grouped by species in order of first appearance.
func (s *Structure) POSCAR(comment string) string {
	if comment == "" {
		comment = s.Formula()
	}
	order := s.speciesOrder()
	comp := s.Composition()

	var b strings.Builder
	b.WriteString(comment)
	b.WriteString("\n1.0\n")
	for _, v := range s.lattice {
		fmt.Fprintf(&b, "%.10f %.10f %.10f\n", v[0], v[1], v[2])
	}
	counts := make([]string, len(order))
	for i, sp := range order {
		counts[i] = fmt.Sprint(comp[sp])
	}
	b.WriteString(strings.Join(order, " "))
	b.WriteByte('\n')
	b.WriteString(strings.Join(counts, " "))
	b.WriteString("\ndirect\n")
	for _, sp := range order {
		for _, site := range s.sites {
			if site.Species == sp {
				fmt.Fprintf(&b, "%.10f %.10f %.10f %s\n", site.Coords[0], site.Coords[1], site.Coords[2], sp)
			}
		}
	}
	return b.String()
}
