package alloc

import "fmt"

// Seed derives the deterministic shuffle seed for one draw. Determinism is
// the point: the same participant at the same usage count always gets the
// same permutation, which keeps draws reproducible in tests and debugging.
// The rolling multiply-add hash wraps at 32 bits; it is not cryptographic.
func Seed(name, phone string, usageCount int) int64 {
	input := fmt.Sprintf("%s-%s-%d", name, phone, usageCount)
	var hash int32
	for _, r := range input {
		hash = hash<<5 - hash + int32(r)
	}
	if hash < 0 {
		return -int64(hash)
	}
	return int64(hash)
}

// lcg is the linear-congruential generator behind the seeded shuffle.
type lcg struct {
	state int64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: seed}
}

// next returns a value in [0, 1).
func (g *lcg) next() float64 {
	g.state = (g.state*9301 + 49297) % 233280
	return float64(g.state) / 233280
}
