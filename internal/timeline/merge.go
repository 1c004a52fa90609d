package timeline

import (
	"fmt"
	"strings"
)

// InferSpeaker guesses the role recorded on a channel from its identifier.
// When the identifier names neither role, or both, the speaker already set on
// the channel's first segment is used, defaulting to Agent.
func InferSpeaker(channelID string, segs []ReconciledSegment) string {
	id := strings.ToLower(channelID)
	customer := strings.Contains(id, "user") || strings.Contains(id, "customer")
	agent := strings.Contains(id, "agent")

	switch {
	case customer && !agent:
		return SpeakerCustomer
	case agent && !customer:
		return SpeakerAgent
	}
	if len(segs) > 0 && segs[0].Speaker != "" {
		return segs[0].Speaker
	}
	return SpeakerAgent
}

// Merge combines per-channel timelines into one chronological, speaker-labeled
// view. The first channel's metadata is the base; later channels are kept under
// per-speaker keys. Call-global fields are set once on the merged block.
func Merge(callID string, channels []FileResult, transcript []Utterance, newID func() string) FileResult {
	merged := FileResult{Filename: combinedFilename(callID)}
	if len(channels) == 0 {
		merged.Metadata = Metadata{CallID: callID, ResultID: newID(), Combined: true}
		return merged
	}

	var roster []string
	seen := make(map[string]bool)
	base := cloneMetadata(channels[0].Metadata)
	base.Channel = ""
	base.PerSpeaker = make(map[string]*Metadata)

	for i, ch := range channels {
		speaker := InferSpeaker(ch.Filename, ch.Prosody)
		if !seen[speaker] {
			seen[speaker] = true
			roster = append(roster, speaker)
		}

		merged.Prosody = append(merged.Prosody, stampSpeaker(ch.Prosody, speaker)...)
		merged.Burst = append(merged.Burst, stampSpeaker(ch.Burst, speaker)...)

		if i == 0 {
			continue
		}
		md := cloneMetadata(ch.Metadata)
		md.Channel = speaker
		md.OverallCallEmotion = nil
		base.PerSpeaker[perSpeakerKey(base.PerSpeaker, speaker, i)] = &md
		base.Errors = append(base.Errors, ch.Metadata.Errors...)
	}

	SortByStart(merged.Prosody)
	SortByStart(merged.Burst)

	if len(base.PerSpeaker) == 0 {
		base.PerSpeaker = nil
	}
	base.CallID = callID
	base.ResultID = newID()
	base.Combined = true
	base.Speakers = roster
	base.CategoryCounts = CountCategories(merged.Prosody)
	base.TranscriptAvailable = len(transcript) > 0
	base.Transcript = transcript
	base.OverallCallEmotion = nil
	merged.Metadata = base
	merged.Summary = channels[0].Summary
	return merged
}

func combinedFilename(callID string) string {
	if callID == "" {
		return "combined"
	}
	return callID + "_combined"
}

func perSpeakerKey(existing map[string]*Metadata, speaker string, channel int) string {
	if _, taken := existing[speaker]; !taken {
		return speaker
	}
	return fmt.Sprintf("%s_%d", speaker, channel)
}

// stampSpeaker copies segs, filling in speaker where a segment has none.
func stampSpeaker(segs []ReconciledSegment, speaker string) []ReconciledSegment {
	out := make([]ReconciledSegment, 0, len(segs))
	for _, s := range segs {
		c := cloneSegment(s)
		if c.Speaker == "" {
			c.Speaker = speaker
		}
		out = append(out, c)
	}
	return out
}

func cloneSegment(s ReconciledSegment) ReconciledSegment {
	emotions := make([]RankedEmotion, len(s.TopEmotions))
	copy(emotions, s.TopEmotions)
	s.TopEmotions = emotions
	return s
}

func cloneMetadata(m Metadata) Metadata {
	c := m
	if m.Speakers != nil {
		c.Speakers = append([]string(nil), m.Speakers...)
	}
	if m.Errors != nil {
		c.Errors = append([]string(nil), m.Errors...)
	}
	if m.Transcript != nil {
		c.Transcript = append([]Utterance(nil), m.Transcript...)
	}
	c.PerSpeaker = nil
	return c
}
