// Package source turns raw structure files into seeded lineages.
//
// Each adapter parses exactly one structure and records where it came from:
//
//	source         "<id>-ICSD" when the file carries an ICSD code,
//	               otherwise "uploaded cif" or "uploaded POSCAR"
//	datetime       capture time in UTC, RFC 3339
//	original_file  the raw text with ' replaced by "
//	cif_data       CIF only: every tag of the data block
//
// Symmetry operations in CIF files are not expanded; atom sites are taken as
// listed.
package source
