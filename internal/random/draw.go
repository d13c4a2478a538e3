package random

// Draw returns one Bernoulli outcome: true ("win") with probability p.
// p <= 0 never wins, p >= 1 always wins.
func Draw(p float64, src Source) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Outcomes pre-generates n Bernoulli outcomes with win probability p.
func Outcomes(n int, p float64, src Source) []bool {
	if n <= 0 {
		return nil
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = Draw(p, src)
	}
	return out
}

// Sequence replays a fixed list of draws, then repeats the last one.
// Useful for scripting exact win/loss sequences.
type Sequence struct {
	Values []float64
	pos    int
}

// Float64 implements Source.
func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	if s.pos >= len(s.Values) {
		return s.Values[len(s.Values)-1]
	}
	v := s.Values[s.pos]
	s.pos++
	return v
}

// Script builds a Sequence from win/loss flags: true maps to draw 0 (always below p),
// false maps to a draw just below 1 (never below p for p < 1).
func Script(wins ...bool) *Sequence {
	vals := make([]float64, len(wins))
	for i, w := range wins {
		if w {
			vals[i] = 0
		} else {
			vals[i] = 0.999999999
		}
	}
	return &Sequence{Values: vals}
}
