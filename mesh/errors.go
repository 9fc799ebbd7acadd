package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks requests that cannot be honoured consistently on
	// every process: unknown mesh formats, refinement without a coarse mesh,
	// dof families outside [0,5).
	ErrConfiguration = errors.New("configuration error")
	// ErrInvariant marks internal numbering or topology inconsistencies.
	ErrInvariant = errors.New("invariant violation")
)

func configPanic(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
}

func invariantPanic(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
}
