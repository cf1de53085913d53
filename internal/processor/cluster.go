package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// clusterNotes collapses ghost-note clusters: per channel, notes whose
// onsets lie within windowTicks and whose pitches lie within
// pitchThreshold semitones of each other (transitively, so a chain of
// pairwise-close notes forms one cluster) are replaced by a single
// representative. The winner is picked by highest velocity, then longest
// duration, then earliest start. Returns the surviving notes and the
// number of non-trivial clusters merged.
func clusterNotes(notes []event.Note, windowTicks, pitchThreshold int) ([]event.Note, int) {
	if len(notes) < 2 {
		return notes, 0
	}

	byChannel := map[uint8][]event.Note{}
	for _, n := range notes {
		byChannel[n.Channel] = append(byChannel[n.Channel], n)
	}

	var out []event.Note
	merged := 0
	for _, chNotes := range byChannel {
		kept, m := clusterChannel(chNotes, int64(windowTicks), pitchThreshold)
		out = append(out, kept...)
		merged += m
	}
	event.SortNotes(out)
	return out, merged
}

func clusterChannel(notes []event.Note, window int64, pitchThreshold int) ([]event.Note, int) {
	sorted := append([]event.Note(nil), notes...)
	event.SortNotes(sorted)

	// Union-find over pairwise-close notes. Sorting by onset bounds the
	// inner scan to the window.
	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
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
		if ra != rb {
			parent[rb] = ra
		}
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Start-sorted[i].Start > window {
				break
			}
			if absInt(int(sorted[j].Pitch)-int(sorted[i].Pitch)) <= pitchThreshold {
				union(i, j)
			}
		}
	}

	clusters := map[int][]event.Note{}
	order := []int{}
	for i, n := range sorted {
		r := find(i)
		if _, ok := clusters[r]; !ok {
			order = append(order, r)
		}
		clusters[r] = append(clusters[r], n)
	}

	out := make([]event.Note, 0, len(order))
	merged := 0
	for _, r := range order {
		cluster := clusters[r]
		if len(cluster) == 1 {
			out = append(out, cluster[0])
			continue
		}
		out = append(out, clusterWinner(cluster))
		merged++
	}
	return out, merged
}

// clusterWinner picks the cluster representative: highest velocity,
// then longest duration, then earliest start.
func clusterWinner(cluster []event.Note) event.Note {
	best := cluster[0]
	for _, n := range cluster[1:] {
		if n.Velocity != best.Velocity {
			if n.Velocity > best.Velocity {
				best = n
			}
			continue
		}
		if n.Duration != best.Duration {
			if n.Duration > best.Duration {
				best = n
			}
			continue
		}
		if n.Start < best.Start {
			best = n
		}
	}
	return best
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
