package transcript

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Config is everything a Pipeline needs. It is read-only once the Pipeline is built.
type Config struct {
	Rules Rules

	// Fetcher loads URL sources and followed links. Nil means URLs are unreadable.
	Fetcher Fetcher

	// FollowLinks fetches a JSON payload that is only a link (one hop).
	FollowLinks bool

	PairOptions PairOptions

	// Fallback is consulted for marker-less text when set.
	Fallback FallbackSegmenter

	// MaxDepth caps the JSON search. Zero means DefaultMaxDepth.
	MaxDepth int

	Logger *zap.Logger
}

// Report is the outcome of one source.
type Report struct {
	Result ExtractionResult
	Pairs  []TrainingPair

	Kind SourceKind
	// Via names the extractor that produced the messages.
	Via string

	Extracted       int
	Markers         int
	AnchoredRecords int
	PartialDecodes  int
	Headers         int
	Oversized       int
	DepthTruncated  int
	FollowedLink    string
	Clean           CleanStats

	// AnchoredApplicable is set when the text looked like an array state dump, even if
	// no anchored record matched.
	AnchoredApplicable bool
}

// Pipeline extracts, cleans and pairs one source at a time.
type Pipeline struct {
	cfg     Config
	log     *zap.Logger
	cleaner *Cleaner
}

// New builds a Pipeline. A nil logger discards output.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Pipeline{cfg: cfg, log: log, cleaner: NewCleaner(cfg.Rules, log)}
}

// Run processes the source at locator. The returned Report is populated as far as
// processing got, even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, locator string) (Report, error) {
	log := p.log.With(zap.String("source", locator))
	rep := Report{Result: ExtractionResult{File: locator, Messages: []Message{}}}

	src, err := ReadSource(ctx, locator, p.cfg.Fetcher)
	if err != nil {
		return rep, fmt.Errorf("Pipeline.Run: %w", err)
	}
	rep.Kind = src.Kind
	log.Debug("source loaded", zap.Stringer("kind", src.Kind), zap.Int("bytes", len(src.Text)))

	msgs, err := p.extract(ctx, src, &rep, log, true)
	if err != nil {
		return rep, fmt.Errorf("Pipeline.Run: %s: %w", locator, err)
	}
	rep.Extracted = len(msgs)

	cleaned, st := p.cleaner.Clean(msgs)
	rep.Clean = st
	rep.Result.Messages = cleaned
	rep.Pairs = BuildPairs(cleaned, p.cfg.PairOptions)
	if rep.Pairs == nil {
		rep.Pairs = []TrainingPair{}
	}

	log.Debug("source done",
		zap.String("via", rep.Via),
		zap.Int("extracted", rep.Extracted),
		zap.Int("messages", len(cleaned)),
		zap.Int("pairs", len(rep.Pairs)),
		zap.Int("duplicates", st.Duplicates),
	)
	return rep, nil
}

// extract dispatches on the source kind. follow allows one link hop.
func (p *Pipeline) extract(ctx context.Context, src Source, rep *Report, log *zap.Logger, follow bool) ([]Message, error) {
	switch src.Kind {
	case KindJSON:
		return p.extractJSON(ctx, src, rep, log, follow)
	case KindHTML:
		return p.extractHTML(src, rep, log)
	default:
		return p.extractText(ctx, src, rep, log)
	}
}

func (p *Pipeline) extractJSON(ctx context.Context, src Source, rep *Report, log *zap.Logger, follow bool) ([]Message, error) {
	if msgs, ok := p.tryAnchored(src.Text, rep, log); ok {
		return msgs, nil
	}

	payload := FindConversation(src.JSON, p.cfg.MaxDepth)
	rep.DepthTruncated += payload.Truncated
	if payload.Truncated > 0 {
		log.Warn("json search hit depth cap", zap.Int("skipped", payload.Truncated))
	}
	if payload.Kind == PayloadNone {
		return nil, ErrFormatUndetected
	}
	log.Debug("json payload", zap.Stringer("kind", payload.Kind), zap.String("path", payload.Path))

	if payload.Kind == PayloadLink {
		if !follow || !p.cfg.FollowLinks {
			return nil, fmt.Errorf("%s: %w", payload.Text, ErrNeedsFetch)
		}
		if p.cfg.Fetcher == nil {
			return nil, fmt.Errorf("follow %s: no fetcher configured: %w", payload.Text, ErrSourceUnreadable)
		}
		body, err := p.cfg.Fetcher.Fetch(ctx, payload.Text)
		if err != nil {
			return nil, fmt.Errorf("follow link: %w", err)
		}
		rep.FollowedLink = payload.Text
		linked := DetectKind(payload.Text, body)
		rep.Kind = linked.Kind
		log.Debug("followed link", zap.String("url", payload.Text), zap.Stringer("kind", linked.Kind))
		return p.extract(ctx, linked, rep, log, false)
	}

	dec := PayloadDecoder{Rules: p.cfg.Rules, Logger: log, MaxDepth: p.cfg.MaxDepth}
	title, msgs, err := dec.Decode(payload)
	if err != nil {
		if errors.Is(err, ErrUnclassified) {
			return nil, fmt.Errorf("%w: %w", ErrFormatUndetected, err)
		}
		return nil, err
	}
	if title != "" {
		rep.Result.Title = title
	}
	rep.Via = "json_" + payload.Kind.String()
	return msgs, nil
}

func (p *Pipeline) extractHTML(src Source, rep *Report, log *zap.Logger) ([]Message, error) {
	res, err := ExtractHTML(src.Text, p.cfg.Rules)
	rep.Result.Title = res.Title
	rep.Headers = res.Headers
	rep.Oversized = res.OversizedSegments
	rep.Markers = res.Markers
	if res.OversizedSegments > 0 {
		log.Warn("dropped oversized html segments", zap.Int("count", res.OversizedSegments))
	}

	// Linearizing joins lines inside inline markup, so a marker transcript that only
	// mentions tags can lose its boundaries. The raw text wins when it segments better.
	if res.Via == "markers" || errors.Is(err, ErrUnclassified) {
		raw := SegmentText(src.Text, p.cfg.Rules)
		if raw.Markers > res.Markers {
			log.Warn("html linearization lost role markers; segmenting raw text",
				zap.Int("html_markers", res.Markers), zap.Int("raw_markers", raw.Markers))
			rep.Markers = raw.Markers
			rep.Via = "markers"
			return raw.Messages, nil
		}
	}
	if err == nil && len(res.Messages) > 0 {
		rep.Via = "html_" + res.Via
		return res.Messages, nil
	}
	if err != nil && !errors.Is(err, ErrUnclassified) {
		log.Warn("html extraction failed", zap.Error(err))
	}

	// App-state dumps live in script bodies, so the anchored pass sees the raw page.
	if msgs, ok := p.tryAnchored(src.Text, rep, log); ok {
		return msgs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormatUndetected, err)
	}
	// Headers matched but every segment was empty or oversized.
	rep.Via = "html_" + res.Via
	return res.Messages, nil
}

func (p *Pipeline) extractText(ctx context.Context, src Source, rep *Report, log *zap.Logger) ([]Message, error) {
	seg := SegmentText(src.Text, p.cfg.Rules)
	rep.Markers = seg.Markers
	if seg.Classified() {
		rep.Via = "markers"
		return seg.Messages, nil
	}

	if msgs, ok := p.tryAnchored(src.Text, rep, log); ok {
		return msgs, nil
	}

	if p.cfg.Fallback != nil {
		msgs, err := p.cfg.Fallback.SegmentTranscript(ctx, src.Text)
		if err != nil {
			log.Warn("fallback segmentation failed", zap.Error(err))
		} else if len(msgs) > 0 {
			rep.Via = "fallback"
			return msgs, nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrFormatUndetected, ErrUnclassified)
}

func (p *Pipeline) tryAnchored(text string, rep *Report, log *zap.Logger) ([]Message, bool) {
	res := ExtractAnchored(text)
	if !res.Applicable {
		return nil, false
	}
	rep.AnchoredRecords = res.Records
	rep.PartialDecodes = res.PartialDecodes
	if res.PartialDecodes > 0 {
		log.Warn("anchored records kept with raw text", zap.Int("partial_decodes", res.PartialDecodes))
	}
	rep.AnchoredApplicable = true
	if res.Records == 0 {
		log.Warn("array dump matched no anchored records; record shape may have changed")
		return nil, false
	}
	if len(res.Messages) == 0 {
		return nil, false
	}
	rep.Via = "anchored"
	return res.Messages, true
}
