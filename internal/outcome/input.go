package outcome

import (
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

// Input is the evidence the classifier judges a call on.
type Input struct {
	Tail                 []timeline.ReconciledSegment `json:"tail"`
	CategoryCounts       timeline.CategoryCounts      `json:"category_counts"`
	Summary              string                       `json:"summary,omitempty"`
	Profile              map[string]any               `json:"profile,omitempty"`
	FinalCustomerSegment *timeline.ReconciledSegment  `json:"final_customer_segment"`
}

// BuildInput assembles classifier input from a whole-call timeline. The tail
// is the last k segments; k <= 0 keeps the entire timeline. Counts cover every
// segment, not just the tail.
func BuildInput(segs []timeline.ReconciledSegment, k int, summary string, profile map[string]any) Input {
	tail := segs
	if k > 0 && len(segs) > k {
		tail = segs[len(segs)-k:]
	}
	return Input{
		Tail:                 tail,
		CategoryCounts:       timeline.CountCategories(segs),
		Summary:              strings.TrimSpace(summary),
		Profile:              profile,
		FinalCustomerSegment: finalCustomerSegment(segs),
	}
}

// finalCustomerSegment is the last segment spoken by the customer, or the
// last segment of the call when no segment is customer-labeled.
func finalCustomerSegment(segs []timeline.ReconciledSegment) *timeline.ReconciledSegment {
	if len(segs) == 0 {
		return nil
	}
	for i := len(segs) - 1; i >= 0; i-- {
		if strings.EqualFold(segs[i].Speaker, timeline.SpeakerCustomer) {
			s := segs[i]
			return &s
		}
	}
	s := segs[len(segs)-1]
	return &s
}

// segmentText prefers the transcript wording over recognized acoustic text.
func segmentText(s *timeline.ReconciledSegment) string {
	if s == nil {
		return ""
	}
	if t := strings.TrimSpace(s.TranscriptText); t != "" {
		return t
	}
	return strings.TrimSpace(s.Text)
}
