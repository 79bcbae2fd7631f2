// Package output provides output formatters for daemon status and channels.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/klaxon/internal/model"
)

// Formatter formats daemon state for output.
type Formatter interface {
	// FormatStatus writes the current session.
	FormatStatus(w io.Writer, info model.SessionInfo) error

	// FormatChannels writes the registered channels.
	FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatText   FormatType = "text"
	FormatJSON   FormatType = "json"
	FormatYAML   FormatType = "yaml"
	FormatWaybar FormatType = "waybar"
	FormatIDs    FormatType = "ids"
)

// Formats lists the accepted format names.
func Formats() []FormatType {
	return []FormatType{FormatText, FormatJSON, FormatYAML, FormatWaybar, FormatIDs}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatWaybar:
		return NewWaybarFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatText:
		fallthrough
	default:
		return NewTextFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string           // Custom template for text format
	Now      func() time.Time // Clock for relative times
}
