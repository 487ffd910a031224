package lineage

import (
	"fmt"
	"log/slog"
)

// Forest is an ordered collection of lineages advanced together. A member
// whose transformation yields several artifacts is replaced by one lineage
// per artifact.
//
// The forest exclusively owns its members; accessors hand out copies.
type Forest struct {
	members []*Lineage
}

// NewForest builds one lineage per initial artifact and applies ops to the
// whole forest, so construction may already fan out. seeds is optional;
// when given it must pair up with initial.
func NewForest(initial []Artifact, seeds []*Seed, ops ...Transformation) (*Forest, error) {
	if seeds != nil && len(seeds) != len(initial) {
		return nil, fmt.Errorf("%w: %d seeds for %d artifacts", ErrLengthMismatch, len(seeds), len(initial))
	}
	f := &Forest{members: make([]*Lineage, 0, len(initial))}
	for i, a := range initial {
		var seed *Seed
		if seeds != nil {
			seed = seeds[i]
		}
		l, err := New(a, seed)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		f.members = append(f.members, l)
	}
	if err := f.Extend(ops...); err != nil {
		return nil, err
	}
	return f, nil
}

// ForestOf builds a forest from copies of existing lineages.
func ForestOf(ls ...*Lineage) *Forest {
	f := &Forest{members: make([]*Lineage, len(ls))}
	for i, l := range ls {
		f.members[i] = l.Clone()
	}
	return f
}

// plan is the pass-one result for one member.
type plan struct {
	single   Artifact   // set for one-to-one outcomes
	branches []Artifact // set for branching outcomes
	branched bool
}

// AppendTransformation applies t to every member.
//
// Single outcomes advance the member in place. A branching outcome of k
// artifacts replaces the member with k independent copies of its history,
// each extended by one of the artifacts; k == 0 drops the member.
// Replacements are appended after the surviving members.
//
// All outcomes are computed before anything changes, so an error from any
// member leaves the forest untouched. The error is a *MemberError.
func (f *Forest) AppendTransformation(t Transformation, clearRedo bool) error {
	plans := make([]plan, len(f.members))
	for i, m := range f.members {
		out, err := apply(t, m.Current())
		if err != nil {
			return memberError(i, m, err)
		}
		if out.branching {
			plans[i] = plan{branches: out.artifacts, branched: true}
		} else {
			plans[i] = plan{single: out.artifacts[0]}
		}
	}

	survivors := make([]*Lineage, 0, len(f.members))
	var replacements []*Lineage
	for i, m := range f.members {
		p := plans[i]
		if !p.branched {
			m.push(p.single, t, clearRedo)
			survivors = append(survivors, m)
			continue
		}
		slog.Debug("member branched", "member", i, "branches", len(p.branches))
		for _, a := range p.branches {
			c := m.Clone()
			c.push(a, t, clearRedo)
			replacements = append(replacements, c)
		}
	}

	before := len(f.members)
	f.members = append(survivors, replacements...)
	if before != len(f.members) {
		slog.Debug("forest resized", "before", before, "after", len(f.members))
	}
	return nil
}

// Extend applies each transformation in order, clearing redo buffers.
// It stops at the first failure; earlier transformations remain applied.
func (f *Forest) Extend(ts ...Transformation) error {
	for _, t := range ts {
		if err := f.AppendTransformation(t, true); err != nil {
			return err
		}
	}
	return nil
}

// Undo undoes the last transformation of every member. If any member has no
// history nothing changes and the error names that member.
func (f *Forest) Undo() error {
	for i, m := range f.members {
		if len(m.transformations) == 0 {
			return memberError(i, m, fmt.Errorf("%w: already at oldest change", ErrEmptyHistory))
		}
	}
	for _, m := range f.members {
		// cannot fail after the check above
		_ = m.Undo()
	}
	return nil
}

// Redo redoes the most recently undone transformation of every member. The
// replay must yield a single artifact per member; all replays are computed
// before any member changes.
func (f *Forest) Redo() error {
	next := make([]Artifact, len(f.members))
	for i, m := range f.members {
		n := len(m.redo)
		if n == 0 {
			return memberError(i, m, fmt.Errorf("%w: already at latest change", ErrEmptyHistory))
		}
		a, err := applySingle(m.redo[n-1], m.Current())
		if err != nil {
			return memberError(i, m, err)
		}
		next[i] = a
	}
	for i, m := range f.members {
		n := len(m.redo)
		t := m.redo[n-1]
		m.redo = m.redo[:n-1]
		m.push(next[i], t, false)
	}
	return nil
}

// Len returns the number of members.
func (f *Forest) Len() int {
	return len(f.members)
}

// Member returns a copy of the i-th member.
func (f *Forest) Member(i int) (*Lineage, error) {
	if i < 0 || i >= len(f.members) {
		return nil, fmt.Errorf("%w: member %d not in [0, %d)", ErrIndexOutOfRange, i, len(f.members))
	}
	return f.members[i].Clone(), nil
}

// Members returns copies of every member in order.
func (f *Forest) Members() []*Lineage {
	out := make([]*Lineage, len(f.members))
	for i, m := range f.members {
		out[i] = m.Clone()
	}
	return out
}

// Currents returns each member's current artifact in order.
func (f *Forest) Currents() []Artifact {
	out := make([]Artifact, len(f.members))
	for i, m := range f.members {
		out[i] = m.Current()
	}
	return out
}
