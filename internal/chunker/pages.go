package chunker

import "docdigest/internal/domain"

// AssignPages returns copies of chunks whose PageNumbers list every page
// overlapping the chunk span.
func AssignPages(chunks []domain.Chunk, pages []domain.PageSpan) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		var nums []int
		for _, p := range pages {
			if c.Metadata.StartIndex < p.EndIndex && c.Metadata.EndIndex > p.StartIndex {
				nums = append(nums, p.PageNumber)
			}
		}
		c.Metadata.PageNumbers = nums
		out[i] = c
	}
	return out
}
