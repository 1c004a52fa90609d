package timeline

// Builder produces one channel's aligned timeline from its predictions.
type Builder struct {
	cfg Config
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// Config returns the settings the builder was created with.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build extracts, deduplicates and aligns one channel. A nil transcript runs
// the passthrough mode, optionally collapsing near-duplicate windows.
func (b *Builder) Build(in ChannelInput, transcript []Utterance) FileResult {
	prosody := Deduplicate(Extract(in.Prosody, SourceProsody, b.cfg))
	burst := Deduplicate(Extract(in.Burst, SourceBurst, b.cfg))

	if len(transcript) == 0 {
		prosody = CollapseNearDuplicates(prosody, b.cfg.NearDuplicateOverlap)
		burst = CollapseNearDuplicates(burst, b.cfg.NearDuplicateOverlap)
	}

	res := FileResult{
		Filename: in.Filename,
		Prosody:  AlignProsody(prosody, transcript),
		Burst:    AnnotateBursts(burst, transcript),
	}
	SortByStart(res.Prosody)
	SortByStart(res.Burst)

	res.Metadata = Metadata{
		CategoryCounts:      CountCategories(res.Prosody),
		TranscriptAvailable: len(transcript) > 0,
		Transcript:          transcript,
	}
	if len(in.Errors) > 0 {
		res.Metadata.Errors = append([]string(nil), in.Errors...)
	}
	return res
}
