package structure

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// Transformation names as they appear in serialized records.
const (
	NameSubstitution  = "SubstitutionTransformation"
	NameRemoveSpecies = "RemoveSpeciesTransformation"
	NameSupercell     = "SupercellTransformation"
	NamePartialRemove = "PartialRemoveSpecieTransformation"
)

func transformationRecord(name string, args record.Object) record.Object {
	return record.NewObject(
		record.O("name", record.String(name)),
		record.O("init_args", args),
	)
}

func asStructure(a lineage.Artifact) (*Structure, error) {
	s, ok := a.(*Structure)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: expected *structure.Structure, got %T", lineage.ErrInvalidOperation, a)
	}
	return s, nil
}

// Substitution replaces every site of one species with another.
type Substitution struct {
	SpeciesMap map[string]string
}

// Apply implements lineage.Transformation.
func (t Substitution) Apply(a lineage.Artifact) (lineage.Outcome, error) {
	s, err := asStructure(a)
	if err != nil {
		return lineage.Outcome{}, err
	}
	sites := s.Sites()
	for i, site := range sites {
		if to, ok := t.SpeciesMap[site.Species]; ok {
			sites[i].Species = to
		}
	}
	out, err := New(s.lattice, sites)
	if err != nil {
		return lineage.Outcome{}, fmt.Errorf("%w: %w", lineage.ErrInvalidOperation, err)
	}
	return lineage.One(out), nil
}

// Record implements lineage.Transformation.
func (t Substitution) Record() record.Object {
	m := make(record.Object, len(t.SpeciesMap))
	for from, to := range t.SpeciesMap {
		m[from] = record.String(to)
	}
	return transformationRecord(NameSubstitution, record.NewObject(record.O("species_map", m)))
}

// RemoveSpecies deletes every site of the listed species.
type RemoveSpecies struct {
	Species []string
}

// Apply implements lineage.Transformation. Removing every site is rejected.
func (t RemoveSpecies) Apply(a lineage.Artifact) (lineage.Outcome, error) {
	s, err := asStructure(a)
	if err != nil {
		return lineage.Outcome{}, err
	}
	var kept []Site
	for _, site := range s.sites {
		if !slices.Contains(t.Species, site.Species) {
			kept = append(kept, site)
		}
	}
	if len(kept) == 0 {
		return lineage.Outcome{}, fmt.Errorf("%w: removing %v leaves no sites", lineage.ErrInvalidOperation, t.Species)
	}
	return lineage.One(&Structure{lattice: s.lattice, sites: kept}), nil
}

// Record implements lineage.Transformation.
func (t RemoveSpecies) Record() record.Object {
	return transformationRecord(NameRemoveSpecies, record.NewObject(
		record.O("species_to_remove", record.Strings(t.Species...)),
	))
}

// Supercell repeats the cell along each lattice vector.
type Supercell struct {
	Scaling [3]int
}

// Apply implements lineage.Transformation.
func (t Supercell) Apply(a lineage.Artifact) (lineage.Outcome, error) {
	s, err := asStructure(a)
	if err != nil {
		return lineage.Outcome{}, err
	}
	for _, n := range t.Scaling {
		if n < 1 {
			return lineage.Outcome{}, fmt.Errorf("%w: scaling %v must be positive", lineage.ErrInvalidOperation, t.Scaling)
		}
	}
	var lattice Lattice
	for i, v := range s.lattice {
		f := float64(t.Scaling[i])
		lattice[i] = [3]float64{v[0] * f, v[1] * f, v[2] * f}
	}
	na, nb, nc := t.Scaling[0], t.Scaling[1], t.Scaling[2]
	sites := make([]Site, 0, len(s.sites)*na*nb*nc)
	for _, site := range s.sites {
		for i := 0; i < na; i++ {
			for j := 0; j < nb; j++ {
				for k := 0; k < nc; k++ {
					sites = append(sites, Site{
						Species: site.Species,
						Coords: [3]float64{
							(site.Coords[0] + float64(i)) / float64(na),
							(site.Coords[1] + float64(j)) / float64(nb),
							(site.Coords[2] + float64(k)) / float64(nc),
						},
					})
				}
			}
		}
	}
	return lineage.One(&Structure{lattice: lattice, sites: sites}), nil
}

// Record implements lineage.Transformation.
func (t Supercell) Record() record.Object {
	scaling := record.Array{record.Int(t.Scaling[0]), record.Int(t.Scaling[1]), record.Int(t.Scaling[2])}
	return transformationRecord(NameSupercell, record.NewObject(record.O("scaling", scaling)))
}

// PartialRemove removes a fraction of the sites of one species. Every
// choice of sites is a separate outcome, so the transformation branches.
type PartialRemove struct {
	Specie   string
	Fraction float64

	// MaxResults caps the number of outcomes; zero means no cap.
	MaxResults int
}

// Apply implements lineage.Transformation. Orderings are enumerated in
// lexicographic order of the removed site indices.
func (t PartialRemove) Apply(a lineage.Artifact) (lineage.Outcome, error) {
	s, err := asStructure(a)
	if err != nil {
		return lineage.Outcome{}, err
	}
	if t.Fraction <= 0 || t.Fraction > 1 {
		return lineage.Outcome{}, fmt.Errorf("%w: fraction %v not in (0, 1]", lineage.ErrInvalidOperation, t.Fraction)
	}
	var candidates []int
	for i, site := range s.sites {
		if site.Species == t.Specie {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return lineage.Outcome{}, fmt.Errorf("%w: no %s sites to remove", lineage.ErrInvalidOperation, t.Specie)
	}
	remove := int(math.Round(float64(len(candidates)) * t.Fraction))
	if remove == 0 {
		return lineage.Outcome{}, fmt.Errorf("%w: fraction %v of %d %s sites removes no sites", lineage.ErrInvalidOperation, t.Fraction, len(candidates), t.Specie)
	}
	if remove == len(s.sites) {
		return lineage.Outcome{}, fmt.Errorf("%w: removing every site", lineage.ErrInvalidOperation)
	}

	var outs []lineage.Artifact
	combinations(len(candidates), remove, func(chosen []int) bool {
		drop := make(map[int]bool, len(chosen))
		for _, c := range chosen {
			drop[candidates[c]] = true
		}
		sites := make([]Site, 0, len(s.sites)-remove)
		for i, site := range s.sites {
			if !drop[i] {
				sites = append(sites, site)
			}
		}
		outs = append(outs, &Structure{lattice: s.lattice, sites: sites})
		return t.MaxResults == 0 || len(outs) < t.MaxResults
	})
	return lineage.Many(outs...), nil
}

// Record implements lineage.Transformation.
func (t PartialRemove) Record() record.Object {
	return transformationRecord(NamePartialRemove, record.NewObject(
		record.O("specie_to_remove", record.String(t.Specie)),
		record.O("fraction_to_remove", record.Float(t.Fraction)),
		record.O("max_results", record.Int(t.MaxResults)),
	))
}

// combinations calls yield with every k-subset of [0, n) in lexicographic
// order until yield returns false.
func combinations(n, k int, yield func([]int) bool) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !yield(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
