package domain

// ScoredHit is a single result returned by one vector index search call.
// Score is a similarity in the range defined by the index distance metric;
// higher is better.
type ScoredHit struct {
	ID      string
	Score   float64
	Payload map[string]Value
}
