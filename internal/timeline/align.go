package timeline

import (
	"sort"
	"strings"
)

// Overlap is the length of the intersection of [aStart,aEnd] and [bStart,bEnd],
// zero when they are disjoint.
func Overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	return max(0, min(aEnd, bEnd)-max(aStart, bStart))
}

// BestMatch returns the index of the utterance with the strictly largest
// positive overlap, or -1. Ties keep the first utterance in transcript order.
func BestMatch(start, end float64, utts []Utterance) int {
	best := -1
	bestOverlap := 0.0
	for i, u := range utts {
		ov := Overlap(start, end, u.Start, u.End)
		if ov > bestOverlap {
			bestOverlap = ov
			best = i
		}
	}
	return best
}

// AlignProsody maps prosody segments onto transcript utterances. Each
// utterance with at least one matching segment yields exactly one reconciled
// segment: the strongest matching window, re-anchored to the utterance's own
// time range. Segments without recognized text or without any overlapping
// utterance are dropped. With no transcript every segment passes through.
func AlignProsody(segs []AcousticSegment, utts []Utterance) []ReconciledSegment {
	if len(utts) == 0 {
		return passthrough(segs)
	}

	// representative per utterance index, kept in first-seen order
	reps := make(map[int]AcousticSegment)
	var order []int
	for _, s := range segs {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		idx := BestMatch(s.TimeStart, s.TimeEnd, utts)
		if idx < 0 {
			continue
		}
		cur, ok := reps[idx]
		if !ok {
			reps[idx] = s
			order = append(order, idx)
			continue
		}
		if s.TopScore() > cur.TopScore() {
			reps[idx] = s
		}
	}

	out := make([]ReconciledSegment, 0, len(order))
	for _, idx := range order {
		u := utts[idx]
		rs := reconciled(reps[idx])
		rs.TimeStart = Round2(u.Start)
		rs.TimeEnd = Round2(u.End)
		rs.Speaker = u.Speaker
		if u.Text != "" {
			rs.Text = u.Text
			rs.TranscriptText = u.Text
		}
		out = append(out, rs)
	}
	SortByStart(out)
	return out
}

// AnnotateBursts copies speaker and text from the best-overlapping utterance
// onto each burst segment. Bursts keep their own timing and are never grouped.
func AnnotateBursts(segs []AcousticSegment, utts []Utterance) []ReconciledSegment {
	out := make([]ReconciledSegment, 0, len(segs))
	for _, s := range segs {
		rs := reconciled(s)
		if idx := BestMatch(s.TimeStart, s.TimeEnd, utts); idx >= 0 {
			u := utts[idx]
			rs.Speaker = u.Speaker
			if u.Text != "" {
				rs.Text = u.Text
				rs.TranscriptText = u.Text
			}
		}
		out = append(out, rs)
	}
	return out
}

func passthrough(segs []AcousticSegment) []ReconciledSegment {
	out := make([]ReconciledSegment, 0, len(segs))
	for _, s := range segs {
		out = append(out, reconciled(s))
	}
	return out
}

func reconciled(s AcousticSegment) ReconciledSegment {
	emotions := make([]RankedEmotion, len(s.Emotions))
	copy(emotions, s.Emotions)
	return ReconciledSegment{
		TimeStart:       s.TimeStart,
		TimeEnd:         s.TimeEnd,
		Text:            s.Text,
		PrimaryCategory: s.Top.Category,
		TopEmotions:     emotions,
		Source:          s.Source,
	}
}

// SortByStart orders segments by time_start, keeping input order for ties.
func SortByStart(segs []ReconciledSegment) {
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].TimeStart < segs[j].TimeStart
	})
}
