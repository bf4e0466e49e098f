package retrieval

import "sort"

// Fuse merges ranked documents from all (sub-query, source) result lists
// into one deduplicated list ordered by Reciprocal Rank Fusion score.
//
// Each appearance of a document at 1-based rank r contributes
// 1/(c+r) to its score, so documents surfacing in several result lists
// accumulate more than single-list documents. Ties break by first
// appearance in the input, which keeps the ordering deterministic.
func Fuse(docs []Document, c float64) []Fused {
	if len(docs) == 0 {
		return nil
	}

	scores := make(map[string]float64, len(docs))
	content := make(map[string]string, len(docs))
	origins := make(map[string]Origin, len(docs))
	firstSeen := make(map[string]int, len(docs))
	order := make([]string, 0, len(docs))

	for i, doc := range docs {
		if _, ok := scores[doc.DocID]; !ok {
			firstSeen[doc.DocID] = i
			content[doc.DocID] = doc.Content
			origins[doc.DocID] = doc.Origin
			order = append(order, doc.DocID)
		}
		scores[doc.DocID] += 1.0 / (c + float64(doc.Rank))
	}

	fused := make([]Fused, 0, len(order))
	for _, id := range order {
		fused = append(fused, Fused{DocID: id, Content: content[id], Origin: origins[id], Score: scores[id]})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return firstSeen[fused[i].DocID] < firstSeen[fused[j].DocID]
	})
	return fused
}
