package domain

// WriteMode selects how services write shared keys. WriteFaithful is a blind
// read-modify-write, which can lose updates when contexts race. WriteVersioned
// serializes writers through compare-and-swap.
type WriteMode int

const (
	WriteFaithful WriteMode = iota
	WriteVersioned
)
