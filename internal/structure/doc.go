// Package structure is the crystal structure artifact tracked by lineages,
// together with the transformations that act on it.
//
// A Structure is a lattice plus sites in fractional coordinates. It is
// immutable: every transformation returns a new Structure.
//
// Serialized form:
//
//	{"lattice": {"matrix": [[ax, ay, az], [bx, by, bz], [cx, cy, cz]]},
//	 "sites": [{"species": "Fe", "abc": [x, y, z]}, ...]}
package structure
