package store

import (
	"fmt"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// Entry is one archived lineage record.
type Entry struct {
	ID      string
	Digest  string
	Label   string
	Source  string
	Steps   int
	Version string
	Seq     int64
	Record  record.Object
}

// summary holds the columns derived from a lineage record.
type summary struct {
	digest          string
	source          string
	version         string
	transformations []string
}

func summarize(rec record.Object) (summary, error) {
	var sum summary
	digest, err := record.Digest(record.DomainLineage, rec)
	if err != nil {
		return sum, fmt.Errorf("digest record: %w", err)
	}
	sum.digest = digest

	version, ok := rec.Str(lineage.KeyVersion)
	if !ok {
		return sum, fmt.Errorf("%w: missing %q", lineage.ErrMalformedRecord, lineage.KeyVersion)
	}
	sum.version = version

	history, ok := rec.Arr(lineage.KeyHistory)
	if !ok {
		return sum, fmt.Errorf("%w: missing %q", lineage.ErrMalformedRecord, lineage.KeyHistory)
	}
	for i, h := range history {
		obj, ok := h.(record.Object)
		if !ok {
			return sum, fmt.Errorf("%w: history[%d] is not an object", lineage.ErrMalformedRecord, i)
		}
		if i == 0 {
			sum.source, _ = obj.Str(lineage.KeySource)
			continue
		}
		name, _ := obj.Str("name")
		sum.transformations = append(sum.transformations, name)
	}
	return sum, nil
}

// marshalRecord converts a record to JSON TEXT for storage. Strings are
// stored as given; canonical JSON is only used for the digest.
func marshalRecord(rec record.Object) (string, error) {
	data, err := record.MarshalValue(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses stored JSON TEXT back into a record.
func unmarshalRecord(data string) (record.Object, error) {
	rec, err := record.DecodeObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}
