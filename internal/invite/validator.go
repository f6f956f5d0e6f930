// Package invite gates self-registration behind shared invite codes for
// closed pilot deployments.
package invite

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// Gate checks registration invite codes. The zero value and a Gate built
// from no codes are open and admit everyone.
type Gate struct {
	digests [][sha256.Size]byte
}

// New creates a Gate from the configured codes. Codes are matched
// case-insensitively after trimming; blanks and duplicates are dropped.
func New(codes []string) *Gate {
	seen := make(map[string]bool, len(codes))
	g := &Gate{}
	for _, code := range codes {
		norm := normalize(code)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		g.digests = append(g.digests, sha256.Sum256([]byte(norm)))
	}
	return g
}

// Enabled reports whether registration requires a code.
func (g *Gate) Enabled() bool {
	return g != nil && len(g.digests) > 0
}

// Admit reports whether code opens the gate. An open gate admits any code.
//
// Codes are compared as fixed-size digests against every configured code so
// timing does not depend on which code matched or on its length.
func (g *Gate) Admit(code string) bool {
	if !g.Enabled() {
		return true
	}
	norm := normalize(code)
	if norm == "" {
		return false
	}

	sum := sha256.Sum256([]byte(norm))
	found := 0
	for _, d := range g.digests {
		found |= subtle.ConstantTimeCompare(sum[:], d[:])
	}
	return found == 1
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
