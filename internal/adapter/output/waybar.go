package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmylchreest/klaxon/internal/model"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// WaybarFormatter writes a single-line status for a Waybar custom module:
//
//	"custom/klaxon": {
//	  "exec": "klaxon status -o waybar",
//	  "interval": 2,
//	  "return-type": "json",
//	  "on-click": "klaxon stop"
//	}
type WaybarFormatter struct {
	text *TextFormatter
}

// NewWaybarFormatter creates a new Waybar formatter.
func NewWaybarFormatter(opts FormatterOptions) *WaybarFormatter {
	opts.Template = ""
	return &WaybarFormatter{text: NewTextFormatter(opts)}
}

// WaybarFromSession builds the Waybar status for a session.
func (f *WaybarFormatter) WaybarFromSession(info model.SessionInfo) WaybarStatus {
	class := stateName(info)
	switch info.State {
	case model.SessionPlaying:
		return WaybarStatus{Text: "ALARM", Alt: class, Class: "critical", Tooltip: f.tooltip(info)}
	case model.SessionPreparing, model.SessionPaused:
		return WaybarStatus{Text: "alarm", Alt: class, Class: "warning", Tooltip: f.tooltip(info)}
	default:
		return WaybarStatus{Text: "", Alt: class, Class: "empty", Tooltip: "Silent"}
	}
}

func (f *WaybarFormatter) tooltip(info model.SessionInfo) string {
	return fmt.Sprintf("Session %s (%s)", info.ID, stateName(info))
}

// FormatStatus writes the session as one line of Waybar JSON.
func (f *WaybarFormatter) FormatStatus(w io.Writer, info model.SessionInfo) error {
	return json.NewEncoder(w).Encode(f.WaybarFromSession(info))
}

// FormatChannels has no Waybar form and falls back to text.
func (f *WaybarFormatter) FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error {
	return f.text.FormatChannels(w, channels)
}
