package limiter

// Endpoint is one protected call target, e.g. the prover's /solve route.
type Endpoint struct {
	Name   string `json:"name" yaml:"name"`
	MaxRPM int    `json:"max_rpm" yaml:"max_rpm"`
}

// defaultRPM applies when an endpoint sets no limit.
const defaultRPM = 600

func (e Endpoint) rpm() float64 {
	if e.MaxRPM <= 0 {
		return defaultRPM
	}
	return float64(e.MaxRPM)
}
