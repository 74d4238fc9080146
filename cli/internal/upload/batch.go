package upload

import "nuxthub/cli/internal/assets"

// DefaultMaxBatchBytes bounds the cumulative raw size of one upload request.
const DefaultMaxBatchBytes int64 = 10 * 1024 * 1024

// Partition groups files greedily, in order, so that each batch stays within
// maxBytes. A file larger than maxBytes on its own becomes a singleton batch.
func Partition(files []assets.FileArtifact, maxBytes int64) [][]assets.FileArtifact {
	var (
		batches [][]assets.FileArtifact
		current []assets.FileArtifact
		size    int64
	)
	for _, f := range files {
		if len(current) > 0 && size+f.Size > maxBytes {
			batches = append(batches, current)
			current, size = nil, 0
		}
		current = append(current, f)
		size += f.Size
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
