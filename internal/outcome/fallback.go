package outcome

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

var deferralKeywords = []string{
	"call me back",
	"call back",
	"callback",
	"later",
	"busy",
	"not a good time",
	"no good time",
	"another time",
}

// deferralPattern matches any deferral keyword as whole words, so "later"
// does not fire inside "collateral".
var deferralPattern = func() *regexp.Regexp {
	quoted := make([]string, len(deferralKeywords))
	for i, kw := range deferralKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// Fallback judges the call from the final customer segment alone. It is
// deterministic: identical input always yields an identical judgment. A nil
// final segment yields nil.
func Fallback(in Input) *timeline.Judgment {
	seg := in.FinalCustomerSegment
	if seg == nil {
		return nil
	}

	category, ok := emotion.ParseCategory(string(seg.PrimaryCategory))
	if !ok {
		category = emotion.Neutral
	}
	text := segmentText(seg)

	label := category
	callOutcome := outcomeFor(category)
	deferred := isDeferral(text)
	if deferred {
		label = emotion.Neutral
		callOutcome = timeline.OutcomePending
	}

	confidence := 0.5
	if label == emotion.Positive {
		confidence = 0.6
	}

	return &timeline.Judgment{
		Label:       label,
		CallOutcome: callOutcome,
		Confidence:  confidence,
		Reasoning:   fallbackReasoning(category, deferred, text),
		Source:      timeline.JudgmentFromFallback,
	}
}

func isDeferral(text string) bool {
	return deferralPattern.MatchString(strings.ToLower(text))
}

func fallbackReasoning(category emotion.Category, deferred bool, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fallback classification from the final customer segment (%s)", category)
	if deferred {
		b.WriteString("; the customer deferred the decision")
	}
	if text != "" {
		fmt.Fprintf(&b, ": %q", text)
	}
	b.WriteString(".")
	return b.String()
}
