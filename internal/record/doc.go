// Package record provides the self-describing value model used to serialize
// lineages, artifacts and transformations.
//
// Every serialized lineage is an Object. Objects marshal with sorted keys so
// that two equal records always produce identical bytes, and MarshalCanonical
// adds RFC 8785 style normalization for content digests.
//
// Key constraints:
//   - record imports nothing internal; every other package may import it
//   - Values are sealed: only the types in this package implement Value
//   - NaN and infinities cannot be represented
//   - All keys use snake_case
package record
