package lineage

import (
	"log/slog"
	"slices"
)

// Dedupe drops every member whose current artifact is equivalent to that of
// an earlier member, and returns the number dropped. A nil equal uses
// SameRecord.
func (f *Forest) Dedupe(equal func(a, b Artifact) bool) int {
	if equal == nil {
		equal = SameRecord
	}
	kept := make([]*Lineage, 0, len(f.members))
	for _, m := range f.members {
		dup := slices.ContainsFunc(kept, func(k *Lineage) bool {
			return equal(k.Current(), m.Current())
		})
		if !dup {
			kept = append(kept, m)
		}
	}
	return f.replace(kept, "dedupe")
}

// Retain keeps the members whose current artifact satisfies keep and returns
// the number dropped.
func (f *Forest) Retain(keep func(Artifact) bool) int {
	kept := make([]*Lineage, 0, len(f.members))
	for _, m := range f.members {
		if keep(m.Current()) {
			kept = append(kept, m)
		}
	}
	return f.replace(kept, "retain")
}

// Truncate orders members by less over their current artifacts, keeping the
// original order among equals, and keeps at most n. It returns the number
// dropped.
func (f *Forest) Truncate(less func(a, b Artifact) bool, n int) int {
	if n < 0 {
		n = 0
	}
	ranked := slices.Clone(f.members)
	slices.SortStableFunc(ranked, func(x, y *Lineage) int {
		switch {
		case less(x.Current(), y.Current()):
			return -1
		case less(y.Current(), x.Current()):
			return 1
		}
		return 0
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return f.replace(ranked, "truncate")
}

func (f *Forest) replace(kept []*Lineage, op string) int {
	dropped := len(f.members) - len(kept)
	f.members = kept
	if dropped > 0 {
		slog.Debug("forest pruned", "op", op, "dropped", dropped, "members", len(kept))
	}
	return dropped
}
