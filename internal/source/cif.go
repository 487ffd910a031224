package source

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/structure"
)

// CIFBlock is one data_ block of a CIF file. Tag names are lower-cased.
type CIFBlock struct {
	Name  string
	Tags  map[string]string
	Loops []CIFLoop
}

// CIFLoop is a loop_ table: one column per tag.
type CIFLoop struct {
	Tags []string
	Rows [][]string
}

// Column returns the values of tag, or nil when the loop lacks it.
func (l CIFLoop) Column(tag string) []string {
	for i, t := range l.Tags {
		if t == tag {
			col := make([]string, len(l.Rows))
			for r, row := range l.Rows {
				col[r] = row[i]
			}
			return col
		}
	}
	return nil
}

// Record returns every tag of the block; loop tags map to arrays.
func (b *CIFBlock) Record() record.Object {
	obj := make(record.Object, len(b.Tags))
	for k, v := range b.Tags {
		obj[k] = record.String(v)
	}
	for _, l := range b.Loops {
		for _, tag := range l.Tags {
			obj[tag] = record.Strings(l.Column(tag)...)
		}
	}
	return obj
}

func (b *CIFBlock) loopWith(tag string) (CIFLoop, bool) {
	for _, l := range b.Loops {
		if l.Column(tag) != nil {
			return l, true
		}
	}
	return CIFLoop{}, false
}

// FromCIF parses a CIF holding exactly one structure and returns a lineage
// seeded with its provenance, after applying ops.
func FromCIF(text string, clock Clock, ops ...lineage.Transformation) (*lineage.Lineage, error) {
	blocks, err := ParseCIF(text)
	if err != nil {
		return nil, err
	}
	if len(blocks) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one data block, found %d", ErrFormat, len(blocks))
	}
	block := blocks[0]
	s, err := block.Structure()
	if err != nil {
		return nil, err
	}

	src := "uploaded cif"
	if code, ok := block.Tags["_database_code_icsd"]; ok && code != "" {
		src = code + "-ICSD"
	}
	prov := newProvenance(src, text, clock, record.O("cif_data", block.Record()))
	return lineage.New(s, &lineage.Seed{Provenance: prov}, ops...)
}

// Structure builds the block's structure from its cell parameters and atom
// site loop.
func (b *CIFBlock) Structure() (*structure.Structure, error) {
	var params [6]float64
	for i, tag := range []string{
		"_cell_length_a", "_cell_length_b", "_cell_length_c",
		"_cell_angle_alpha", "_cell_angle_beta", "_cell_angle_gamma",
	} {
		raw, ok := b.Tags[tag]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrFormat, tag)
		}
		v, err := cifNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFormat, tag, err)
		}
		params[i] = v
	}
	lattice, err := structure.LatticeFromParameters(params[0], params[1], params[2], params[3], params[4], params[5])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	loop, ok := b.loopWith("_atom_site_fract_x")
	if !ok {
		return nil, fmt.Errorf("%w: no _atom_site_fract_x loop", ErrFormat)
	}
	species := loop.Column("_atom_site_type_symbol")
	if species == nil {
		labels := loop.Column("_atom_site_label")
		if labels == nil {
			return nil, fmt.Errorf("%w: atom sites have neither type symbols nor labels", ErrMissingLabel)
		}
		species = make([]string, len(labels))
		for i, l := range labels {
			species[i] = elementOf(l)
		}
	}

	xs := loop.Column("_atom_site_fract_x")
	ys := loop.Column("_atom_site_fract_y")
	zs := loop.Column("_atom_site_fract_z")
	if ys == nil || zs == nil {
		return nil, fmt.Errorf("%w: incomplete fractional coordinates", ErrFormat)
	}
	sites := make([]structure.Site, len(xs))
	for i := range xs {
		sym := elementOf(species[i])
		if sym == "" {
			return nil, fmt.Errorf("%w: site %d has no element symbol", ErrMissingLabel, i)
		}
		var coords [3]float64
		for j, raw := range []string{xs[i], ys[i], zs[i]} {
			v, err := cifNumber(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: site %d: %w", ErrFormat, i, err)
			}
			coords[j] = v
		}
		sites[i] = structure.Site{Species: sym, Coords: coords}
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: no atom sites", ErrFormat)
	}
	s, err := structure.New(lattice, sites)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return s, nil
}

// elementOf extracts the element symbol from a label such as "Fe1" or
// "O2-": an upper-case letter and an optional lower-case one.
func elementOf(label string) string {
	r := []rune(label)
	if len(r) == 0 || !unicode.IsUpper(r[0]) {
		return ""
	}
	if len(r) > 1 && unicode.IsLower(r[1]) {
		return string(r[:2])
	}
	return string(r[:1])
}

// cifNumber parses a CIF numeric value, dropping a standard uncertainty
// suffix such as "5.431(2)".
func cifNumber(raw string) (float64, error) {
	if i := strings.IndexByte(raw, '('); i >= 0 {
		raw = raw[:i]
	}
	return strconv.ParseFloat(raw, 64)
}

type cifToken struct {
	text   string
	quoted bool
}

func (t cifToken) keyword(prefix string) bool {
	return !t.quoted && strings.HasPrefix(strings.ToLower(t.text), prefix)
}

// ParseCIF splits CIF text into data blocks.
func ParseCIF(text string) ([]*CIFBlock, error) {
	tokens, err := tokenizeCIF(text)
	if err != nil {
		return nil, err
	}
	var blocks []*CIFBlock
	var cur *CIFBlock
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		switch {
		case tok.keyword("data_"):
			cur = &CIFBlock{Name: tok.text[len("data_"):], Tags: map[string]string{}}
			blocks = append(blocks, cur)
			i++
		case cur == nil:
			return nil, fmt.Errorf("%w: %q before first data_ block", ErrFormat, tok.text)
		case tok.keyword("loop_"):
			loop, next, err := parseLoop(tokens, i+1)
			if err != nil {
				return nil, err
			}
			cur.Loops = append(cur.Loops, loop)
			i = next
		case tok.keyword("_"):
			if i+1 >= len(tokens) || isCIFKeyword(tokens[i+1]) {
				return nil, fmt.Errorf("%w: tag %s has no value", ErrFormat, tok.text)
			}
			cur.Tags[strings.ToLower(tok.text)] = tokens[i+1].text
			i += 2
		default:
			return nil, fmt.Errorf("%w: unexpected value %q", ErrFormat, tok.text)
		}
	}
	return blocks, nil
}

func isCIFKeyword(t cifToken) bool {
	return t.keyword("_") || t.keyword("loop_") || t.keyword("data_")
}

func parseLoop(tokens []cifToken, i int) (CIFLoop, int, error) {
	var loop CIFLoop
	for i < len(tokens) && tokens[i].keyword("_") {
		loop.Tags = append(loop.Tags, strings.ToLower(tokens[i].text))
		i++
	}
	if len(loop.Tags) == 0 {
		return loop, i, fmt.Errorf("%w: loop_ without tags", ErrFormat)
	}
	var values []string
	for i < len(tokens) && !isCIFKeyword(tokens[i]) {
		values = append(values, tokens[i].text)
		i++
	}
	if len(values)%len(loop.Tags) != 0 {
		return loop, i, fmt.Errorf("%w: loop of %d tags has %d values", ErrFormat, len(loop.Tags), len(values))
	}
	for r := 0; r < len(values); r += len(loop.Tags) {
		loop.Rows = append(loop.Rows, values[r:r+len(loop.Tags)])
	}
	return loop, i, nil
}

// tokenizeCIF splits text into whitespace separated tokens, honoring
// quotes, semicolon text fields and # comments.
func tokenizeCIF(text string) ([]cifToken, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var tokens []cifToken
	for n := 0; n < len(lines); n++ {
		line := lines[n]
		if strings.HasPrefix(line, ";") {
			var field []string
			field = append(field, strings.TrimSpace(line[1:]))
			n++
			for ; n < len(lines) && !strings.HasPrefix(lines[n], ";"); n++ {
				field = append(field, lines[n])
			}
			if n == len(lines) {
				return nil, fmt.Errorf("%w: unterminated text field", ErrFormat)
			}
			tokens = append(tokens, cifToken{text: strings.TrimSpace(strings.Join(field, "\n")), quoted: true})
			continue
		}
		lineTokens, err := tokenizeCIFLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		tokens = append(tokens, lineTokens...)
	}
	return tokens, nil
}

func tokenizeCIFLine(line string) ([]cifToken, error) {
	var tokens []cifToken
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '#':
			return tokens, nil
		case c == '\'' || c == '"':
			// a quote closes only when followed by whitespace or end of line
			end := -1
			for j := i + 1; j < len(line); j++ {
				if line[j] == c && (j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t') {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated quote", ErrFormat)
			}
			tokens = append(tokens, cifToken{text: line[i+1 : end], quoted: true})
			i = end + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			tokens = append(tokens, cifToken{text: line[i:j]})
			i = j
		}
	}
	return tokens, nil
}
