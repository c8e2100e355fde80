// Package similarity measures how far apart the final positions of games are.
package similarity

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when two fingerprints differ in length.
var ErrLengthMismatch = errors.New("fingerprint length mismatch")

// MismatchError identifies the pair that violated the equal-length precondition.
type MismatchError struct {
	I, J       int
	LenI, LenJ int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: game %d has %d squares, game %d has %d",
		ErrLengthMismatch, e.I, e.LenI, e.J, e.LenJ)
}

func (e *MismatchError) Unwrap() error {
	return ErrLengthMismatch
}

// Hamming counts the positions at which a and b differ.
func Hamming(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}
