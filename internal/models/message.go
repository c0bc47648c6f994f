package models

type Tone string

const (
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneCalm    Tone = "calm"
	ToneSuccess Tone = "success"
)

type Message struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Footer  string `json:"footer,omitempty"`
	Mention string `json:"mention,omitempty"`
	Tone    Tone   `json:"tone,omitempty"`
}
