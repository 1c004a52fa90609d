package timeline

import "sort"

// overlapPair links two segment indexes whose windows overlap enough to be
// treated as the same event.
type overlapPair struct {
	I, J     int
	Fraction float64
}

// CollapseNearDuplicates clusters windows whose overlap covers at least
// threshold of the shorter window and keeps one survivor per cluster. It only
// runs when no transcript is available to anchor against; a threshold of zero
// returns segs unchanged.
func CollapseNearDuplicates(segs []AcousticSegment, threshold float64) []AcousticSegment {
	if threshold <= 0 || len(segs) < 2 {
		return segs
	}

	pairs := findOverlapPairs(segs, threshold)
	if len(pairs) == 0 {
		return segs
	}

	drop := make(map[int]bool)
	for _, cluster := range clusterPairs(pairs) {
		survivor := cluster[0]
		for _, idx := range cluster[1:] {
			if isSegmentBetter(segs[idx], idx, segs[survivor], survivor) {
				survivor = idx
			}
		}
		for _, idx := range cluster {
			if idx != survivor {
				drop[idx] = true
			}
		}
	}

	out := make([]AcousticSegment, 0, len(segs)-len(drop))
	for i, s := range segs {
		if !drop[i] {
			out = append(out, s)
		}
	}
	return out
}

func findOverlapPairs(segs []AcousticSegment, threshold float64) []overlapPair {
	var pairs []overlapPair
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			a, b := segs[i], segs[j]
			if a.Source != b.Source {
				continue
			}
			shorter := min(a.TimeEnd-a.TimeStart, b.TimeEnd-b.TimeStart)
			if shorter <= 0 {
				continue
			}
			frac := Overlap(a.TimeStart, a.TimeEnd, b.TimeStart, b.TimeEnd) / shorter
			if frac >= threshold {
				pairs = append(pairs, overlapPair{I: i, J: j, Fraction: frac})
			}
		}
	}
	return pairs
}

// clusterPairs groups pairs into connected components using union-find.
// Each cluster is sorted by index and clusters are ordered by their first index.
func clusterPairs(pairs []overlapPair) [][]int {
	parent := make(map[int]int)
	for _, p := range pairs {
		if _, ok := parent[p.I]; !ok {
			parent[p.I] = p.I
		}
		if _, ok := parent[p.J]; !ok {
			parent[p.J] = p.J
		}
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Lower index becomes the root so output order is stable.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for _, p := range pairs {
		union(p.I, p.J)
	}

	groups := make(map[int][]int)
	for i := range parent {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	clusters := make([][]int, 0, len(groups))
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		sort.Ints(g)
		clusters = append(clusters, g)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}

// isSegmentBetter reports whether a should survive over b: stronger top
// emotion first, then the earlier window, then input order.
func isSegmentBetter(a AcousticSegment, ai int, b AcousticSegment, bi int) bool {
	if a.TopScore() != b.TopScore() {
		return a.TopScore() > b.TopScore()
	}
	if a.TimeStart != b.TimeStart {
		return a.TimeStart < b.TimeStart
	}
	return ai < bi
}
