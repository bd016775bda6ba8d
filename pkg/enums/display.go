package enums

// Tone is the presentation hint attached to a status label.
type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneInfo     Tone = "info"
	ToneProgress Tone = "progress"
	ToneSuccess  Tone = "success"
	ToneWarning  Tone = "warning"
	ToneDanger   Tone = "danger"
)

// Display pairs a human readable label with its tone.
type Display struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}
