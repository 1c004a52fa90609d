package timeline

import (
	"fmt"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
)

const (
	DefaultTopN       = 1
	DefaultTailWindow = 12
)

// Config carries the engine settings shared by every stage.
type Config struct {
	// TopN is how many ranked emotions each segment keeps. Zero keeps none.
	TopN int
	// TailWindow is how many trailing segments the outcome classifier sees.
	TailWindow int
	// NearDuplicateOverlap enables collapsing of overlapping windows when no
	// transcript is available. Windows whose intersection covers at least this
	// fraction of the shorter window are clustered. Zero disables it.
	NearDuplicateOverlap float64
	Taxonomy             *emotion.Taxonomy
}

// DefaultConfig returns top-1 emotions, a 12-segment tail and the built-in taxonomy.
func DefaultConfig() Config {
	return Config{
		TopN:       DefaultTopN,
		TailWindow: DefaultTailWindow,
		Taxonomy:   emotion.DefaultTaxonomy(),
	}
}

// Validate rejects settings that can only come from a programming mistake.
func (c Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("%w: top-n %d is negative", ErrInvalidConfig, c.TopN)
	}
	if c.TailWindow < 0 {
		return fmt.Errorf("%w: tail window %d is negative", ErrInvalidConfig, c.TailWindow)
	}
	if c.NearDuplicateOverlap < 0 || c.NearDuplicateOverlap > 1 {
		return fmt.Errorf("%w: near-duplicate overlap %g outside [0,1]", ErrInvalidConfig, c.NearDuplicateOverlap)
	}
	if c.Taxonomy == nil {
		return fmt.Errorf("%w: taxonomy is nil", ErrInvalidConfig)
	}
	return nil
}
