package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/klaxon/internal/model"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatStatus writes the session as a YAML mapping.
func (f *YAMLFormatter) FormatStatus(w io.Writer, info model.SessionInfo) error {
	return encodeYAML(w, info)
}

// FormatChannels writes the channels as a YAML sequence.
func (f *YAMLFormatter) FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error {
	if channels == nil {
		channels = []model.ChannelDescriptor{}
	}
	return encodeYAML(w, channels)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
