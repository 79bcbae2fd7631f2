package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/klaxon/internal/model"
)

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatStatus writes the session as a JSON object.
func (f *JSONFormatter) FormatStatus(w io.Writer, info model.SessionInfo) error {
	return encodeJSON(w, info)
}

// FormatChannels writes the channels as a JSON array.
func (f *JSONFormatter) FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error {
	if channels == nil {
		channels = []model.ChannelDescriptor{}
	}
	return encodeJSON(w, channels)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
