package orders

import "crypto/subtle"

// Gate checks the shared organizer secret. An empty secret admits nobody.
type Gate struct {
	code []byte
}

func NewGate(adminCode string) Gate {
	return Gate{code: []byte(adminCode)}
}

func (g Gate) Allow(candidate string) bool {
	if len(g.code) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.code, []byte(candidate)) == 1
}
