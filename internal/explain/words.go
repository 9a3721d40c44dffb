package explain

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a diff segment.
type Op int

const (
	OpEqual  Op = iota // Present in both descriptions
	OpInsert           // Only in the second description
	OpDelete           // Only in the first description
)

// Segment is a run of whole words sharing one Op.
type Segment struct {
	Op   Op
	Text string
}

// Engine computes word-level diffs.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates an engine with the diff timeout disabled.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// DefaultEngine is shared by Words.
var DefaultEngine = NewEngine()

// Words diffs a and b using DefaultEngine.
func Words(a, b string) []Segment {
	return DefaultEngine.Words(a, b)
}

// Words diffs a and b word by word. Each word and each whitespace run is
// reduced to a single rune before diffing so edits never split a word.
func (e *Engine) Words(a, b string) []Segment {
	enc := newTokenEncoder()
	ra, rb := enc.encode(a), enc.encode(b)

	diffs := e.dmp.DiffMainRunes(ra, rb, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		text := enc.decode(d.Text)
		if text == "" {
			continue
		}
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		default:
			op = OpEqual
		}
		// Merge adjacent segments of the same kind.
		if n := len(segments); n > 0 && segments[n-1].Op == op {
			segments[n-1].Text += text
			continue
		}
		segments = append(segments, Segment{Op: op, Text: text})
	}
	return segments
}

// Markup renders segments inline: [-removed-] and {+added+}.
func Markup(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		switch s.Op {
		case OpDelete:
			b.WriteString("[-" + s.Text + "-]")
		case OpInsert:
			b.WriteString("{+" + s.Text + "+}")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Private-use runes are safe to round-trip through string conversion.
const tokenBase = 0xE000

type tokenEncoder struct {
	index  map[string]rune
	tokens []string
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{index: make(map[string]rune)}
}

func (t *tokenEncoder) encode(s string) []rune {
	var out []rune
	for _, tok := range tokenize(s) {
		r, ok := t.index[tok]
		if !ok {
			r = rune(tokenBase + len(t.tokens))
			t.index[tok] = r
			t.tokens = append(t.tokens, tok)
		}
		out = append(out, r)
	}
	return out
}

func (t *tokenEncoder) decode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if i := int(r - tokenBase); i >= 0 && i < len(t.tokens) {
			b.WriteString(t.tokens[i])
		}
	}
	return b.String()
}

// tokenize splits s into alternating word and whitespace runs.
func tokenize(s string) []string {
	var tokens []string
	start := 0
	prevSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != prevSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
