// Package lineage records how an artifact came to be: the ordered states it
// passed through, the transformations that produced each state, and an
// undo/redo buffer over them.
//
// A Lineage follows a single artifact. A Forest advances several lineages
// together and fans a member out into one lineage per output whenever a
// transformation yields more than one artifact.
//
// # Growth
//
// Forests enforce no size cap. Branching transformations compound
// multiplicatively across a chain of appends: three steps that each split a
// member in four leave 64 members. Callers are expected to prune between
// growth steps with Dedupe, Retain or Truncate, supplying their own
// equivalence or ranking over artifacts.
//
// # Concurrency
//
// Lineage and Forest values assume a single writer. Partition members across
// independent forests to explore in parallel.
//
// # Failure
//
// A failed append leaves the lineage or forest exactly as it was. Errors
// returned by transformations are passed through unchanged; a Forest wraps
// them in a *MemberError that identifies the member and unwraps to the
// original error.
package lineage
