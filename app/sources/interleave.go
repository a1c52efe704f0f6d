package sources

// Interleave merges per-source batches round-robin so no single source can
// dominate the head of the combined list. Order within each batch is kept.
func Interleave(batches [][]Candidate) []Candidate {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	merged := make([]Candidate, 0, total)
	for i := 0; len(merged) < total; i++ {
		for _, batch := range batches {
			if i < len(batch) {
				merged = append(merged, batch[i])
			}
		}
	}
	return merged
}
