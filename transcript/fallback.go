package transcript

import "context"

// FallbackSegmenter recovers messages from text that carries no role markers. It is
// consulted last, after the marker segmenter and the anchored extractor found nothing.
type FallbackSegmenter interface {
	SegmentTranscript(ctx context.Context, text string) ([]Message, error)
}
