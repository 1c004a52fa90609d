package timeline

import (
	"math"
	"sort"
)

// Extract turns normalized windows into ranked acoustic segments. Windows with
// an unusable time range or no usable emotion scores are skipped.
func Extract(windows []Window, source Source, cfg Config) []AcousticSegment {
	segs := make([]AcousticSegment, 0, len(windows))
	for _, w := range windows {
		if !validRange(w.Start, w.End) {
			continue
		}
		top, ranked, ok := rankEmotions(w.Emotions, cfg)
		if !ok {
			continue
		}
		seg := AcousticSegment{
			TimeStart: Round2(w.Start),
			TimeEnd:   Round2(w.End),
			Source:    source,
			Top:       top,
			Emotions:  ranked,
		}
		if source == SourceProsody {
			seg.Text = w.Text
		}
		segs = append(segs, seg)
	}
	return segs
}

func validRange(start, end float64) bool {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return false
	}
	return end >= start
}

// rankEmotions returns the strongest emotion and the top-N list. ok is false
// when the window carries no valid score at all.
func rankEmotions(scores []Score, cfg Config) (RankedEmotion, []RankedEmotion, bool) {
	valid := make([]Score, 0, len(scores))
	for _, s := range scores {
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 1 {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return RankedEmotion{}, nil, false
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})
	top := rankedEmotion(valid[0], cfg)
	if len(valid) > cfg.TopN {
		valid = valid[:cfg.TopN]
	}

	out := make([]RankedEmotion, 0, len(valid))
	for _, s := range valid {
		out = append(out, rankedEmotion(s, cfg))
	}
	return top, out, true
}

func rankedEmotion(s Score, cfg Config) RankedEmotion {
	name := s.Name
	if name == "" {
		name = "Unknown"
	}
	return RankedEmotion{
		Name:       name,
		Score:      round(s.Score, 4),
		Percentage: round(s.Score*100, 1),
		Category:   cfg.Taxonomy.Categorize(s.Name),
	}
}

type rangeKey struct {
	start, end float64
}

// Deduplicate collapses segments reporting the same time range, rounded to two
// decimals, keeping the first occurrence. Overlapping but unequal ranges are
// left alone.
func Deduplicate(segs []AcousticSegment) []AcousticSegment {
	seen := make(map[rangeKey]struct{}, len(segs))
	out := make([]AcousticSegment, 0, len(segs))
	for _, s := range segs {
		k := rangeKey{Round2(s.TimeStart), Round2(s.TimeEnd)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
