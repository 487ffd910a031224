package structure

import (
	"fmt"

	"github.com/roach88/transmute/internal/lineage"
)

// POSCARGenerator renders a structure artifact as a VASP POSCAR file.
type POSCARGenerator struct {
	// Comment is the first POSCAR line; empty uses the formula.
	Comment string
}

// Generate produces {"POSCAR": ...} for a structure.
func (g POSCARGenerator) Generate(a lineage.Artifact) (map[string][]byte, error) {
	s, ok := a.(*Structure)
	if !ok {
		return nil, fmt.Errorf("poscar generator: expected *structure.Structure, got %T", a)
	}
	return map[string][]byte{"POSCAR": []byte(s.POSCAR(g.Comment))}, nil
}
