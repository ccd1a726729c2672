package core

const (
	ReasonPassed     = "discriminator passed"
	ReasonForced     = "retry budget exhausted"
	ReasonTooShallow = "proof too short for construction size"
)

// Verdict is the evidence for one solved round.
type Verdict struct {
	ProofLength int
	BaseArity   int
	AuxCount    int
	Rejected    int // rounds already rejected by the discriminator
}

// RetryCritic accepts candidates that pass the discriminator, and accepts
// unconditionally once MaxRejected rounds have been turned down.
type RetryCritic struct {
	Disc        *Discriminator
	MaxRejected int
}

func NewRetryCritic(disc *Discriminator, maxRejected int) *RetryCritic {
	return &RetryCritic{Disc: disc, MaxRejected: maxRejected}
}

func (c *RetryCritic) Accept(v Verdict) (bool, string) {
	if c.Disc.Passed(v.ProofLength, v.BaseArity, v.AuxCount) {
		return true, ReasonPassed
	}
	if v.Rejected >= c.MaxRejected {
		return true, ReasonForced
	}
	return false, ReasonTooShallow
}
