package core

// Discriminator scores a solved candidate by how long its proof is relative to
// the number of auxiliary points introduced beyond the base figure.
type Discriminator struct {
	MinProofLength int
	MinScore       int
}

func NewDiscriminator(minProofLength, minScore int) *Discriminator {
	return &Discriminator{MinProofLength: minProofLength, MinScore: minScore}
}

func (d *Discriminator) Score(proofLength, baseArity, auxCount int) int {
	return proofLength + baseArity - auxCount
}

// Passed is a pure function of its arguments.
func (d *Discriminator) Passed(proofLength, baseArity, auxCount int) bool {
	return d.Score(proofLength, baseArity, auxCount) > d.MinScore && proofLength > d.MinProofLength
}
