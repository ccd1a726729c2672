// Package symbols hands out fresh point names.
package symbols

import "strconv"

// DefaultAlphabet skips I and X, which read poorly in rendered proofs.
var DefaultAlphabet = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "Y", "Z",
}

type state int

const (
	empty state = iota
	held
)

// Allocator cycles through an alphabet. The first pass yields bare letters,
// later passes append the pass number ("A", ..., "Z", "A2", ..., "A3").
//
// Names can be proposed with Peek and committed with Advance, so a caller can
// build a clause around a name before deciding to keep it.
type Allocator struct {
	alphabet []string
	issued   int
	state    state
	pending  string
}

// New returns an allocator over alphabet. An empty alphabet falls back to
// DefaultAlphabet.
func New(alphabet []string) *Allocator {
	if len(alphabet) == 0 {
		alphabet = DefaultAlphabet
	}
	return &Allocator{alphabet: append([]string(nil), alphabet...)}
}

func (a *Allocator) nameAt(i int) string {
	letter := a.alphabet[i%len(a.alphabet)]
	pass := i/len(a.alphabet) + 1
	if pass == 1 {
		return letter
	}
	return letter + strconv.Itoa(pass)
}

// Peek returns the name the next Advance will commit, without consuming it.
func (a *Allocator) Peek() string {
	if a.state == empty {
		a.pending = a.nameAt(a.issued)
		a.state = held
	}
	return a.pending
}

// Advance consumes and returns the held name, or the next fresh one when
// nothing was peeked.
func (a *Allocator) Advance() string {
	name := a.Peek()
	a.issued++
	a.state = empty
	a.pending = ""
	return name
}

// Next is an alias for Advance.
func (a *Allocator) Next() string {
	return a.Advance()
}

// Take consumes n names.
func (a *Allocator) Take(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = a.Advance()
	}
	return out
}

// Issued reports how many names have been consumed.
func (a *Allocator) Issued() int {
	return a.issued
}

// Holding reports whether a peeked name is waiting to be committed.
func (a *Allocator) Holding() bool {
	return a.state == held
}
