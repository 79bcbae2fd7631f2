package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/klaxon/internal/model"
)

// IDsFormatter outputs just identifiers, one per line.
// Useful for scripting (e.g., klaxon status -o ids to get the session ID).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// FormatStatus writes the session ID, or nothing when no session exists.
func (f *IDsFormatter) FormatStatus(w io.Writer, info model.SessionInfo) error {
	if info.ID == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, info.ID)
	return err
}

// FormatChannels writes channel IDs, one per line.
func (f *IDsFormatter) FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error {
	for _, c := range channels {
		if _, err := fmt.Fprintln(w, c.ID); err != nil {
			return err
		}
	}
	return nil
}
