package ingest

import "strings"

// DefaultMinCallMS is the shortest call considered to carry enough audio.
const DefaultMinCallMS = 15000

// Block reasons recorded when a call is excluded from analysis.
const (
	ReasonNoAudio   = "Call contains no audio (duration 0s)."
	ReasonVoicemail = "Call reached voicemail; cannot analyze emotions."
	ReasonTooShort  = "Call too short, insufficient audio for analysis."
)

// VoicemailFlags records which signal marked a call as voicemail.
type VoicemailFlags struct {
	InVoicemail                    bool   `json:"in_voicemail"`
	SummaryMentionsVoicemail       bool   `json:"summary_mentions_voicemail"`
	TranscriptMentionsVoicemail    bool   `json:"transcript_mentions_voicemail"`
	DisconnectionReason            string `json:"disconnection_reason,omitempty"`
	SummaryMentionsLeaveMessage    bool   `json:"summary_mentions_leave_message"`
	TranscriptMentionsLeaveMessage bool   `json:"transcript_mentions_leave_message"`
}

// Constraints is the verdict on whether a call may be analyzed.
type Constraints struct {
	Allowed           bool           `json:"analysis_allowed"`
	BlockReason       string         `json:"analysis_block_reason,omitempty"`
	VoicemailDetected bool           `json:"voicemail_detected"`
	VoicemailFlags    VoicemailFlags `json:"voicemail_flags"`
	TooShort          bool           `json:"too_short"`
	DurationMS        *int64         `json:"duration_ms,omitempty"`
}

// EvaluateConstraints blocks calls that have no audio, reached voicemail, or
// are shorter than minMS. A call with unknown duration is never too short.
func EvaluateConstraints(c *Call, minMS int64) Constraints {
	var con Constraints

	duration, known := c.Duration()
	if known {
		con.DurationMS = &duration
		con.TooShort = duration < minMS
	}

	disconnection := c.DisconnectionReason
	if disconnection == "" {
		disconnection = c.EndReason
	}
	summary := ""
	inVoicemail := c.InVoicemail != nil && *c.InVoicemail
	if c.CallAnalysis != nil {
		summary = c.CallAnalysis.CallSummary
		if c.CallAnalysis.InVoicemail != nil && *c.CallAnalysis.InVoicemail {
			inVoicemail = true
		}
	}

	transcript := strings.ToLower(c.Transcript)
	summaryLower := strings.ToLower(summary)
	con.VoicemailFlags = VoicemailFlags{
		InVoicemail:                    inVoicemail,
		SummaryMentionsVoicemail:       strings.Contains(summaryLower, "voicemail"),
		TranscriptMentionsVoicemail:    strings.Contains(transcript, "voicemail"),
		DisconnectionReason:            disconnection,
		SummaryMentionsLeaveMessage:    mentionsLeaveMessage(summaryLower),
		TranscriptMentionsLeaveMessage: mentionsLeaveMessage(transcript),
	}
	f := con.VoicemailFlags
	con.VoicemailDetected = f.InVoicemail ||
		f.SummaryMentionsVoicemail ||
		f.TranscriptMentionsVoicemail ||
		strings.Contains(strings.ToLower(disconnection), "voicemail") ||
		f.SummaryMentionsLeaveMessage ||
		f.TranscriptMentionsLeaveMessage

	con.Allowed = true
	switch {
	case known && duration <= 0:
		con.Allowed = false
		con.BlockReason = ReasonNoAudio
	case con.VoicemailDetected:
		con.Allowed = false
		con.BlockReason = ReasonVoicemail
	case con.TooShort:
		con.Allowed = false
		con.BlockReason = ReasonTooShort
	}
	return con
}

func mentionsLeaveMessage(lower string) bool {
	return strings.Contains(lower, "leave a message") || strings.Contains(lower, "leave me a message")
}
