package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/klaxon/internal/model"
)

// TextFormatter formats output as human-readable text.
type TextFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts FormatterOptions) *TextFormatter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &TextFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("text").Funcs(templateFuncs(opts.Now)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// statusData is passed to custom status templates.
type statusData struct {
	model.SessionInfo
	Started string
}

// FormatStatus writes the session as aligned key/value lines.
func (f *TextFormatter) FormatStatus(w io.Writer, info model.SessionInfo) error {
	started := ""
	if !info.StartedAt.IsZero() {
		started = humanize.RelTime(info.StartedAt, f.opts.Now(), "ago", "from now")
	}

	if f.template != nil {
		if err := f.template.Execute(w, statusData{SessionInfo: info, Started: started}); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-9s %s\n", "State:", stateName(info))
	if info.Active() {
		fmt.Fprintf(&sb, "%-9s %s\n", "Session:", info.ID)
		if info.Asset != "" {
			fmt.Fprintf(&sb, "%-9s %s\n", "Asset:", info.Asset)
		}
		if started != "" {
			fmt.Fprintf(&sb, "%-9s %s\n", "Started:", started)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatChannels writes one line per channel.
func (f *TextFormatter) FormatChannels(w io.Writer, channels []model.ChannelDescriptor) error {
	if len(channels) == 0 {
		_, err := fmt.Fprintln(w, "No channels registered")
		return err
	}

	for i := range channels {
		c := &channels[i]
		if f.template != nil {
			if err := f.template.Execute(w, c); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			continue
		}

		sound := "default sound"
		if c.HasCustomSound() {
			sound = c.Sound
			if c.Attributes != nil {
				sound += " [" + c.Attributes.String() + "]"
			}
		}
		if _, err := fmt.Fprintf(w, "%-18s %-24s %-8s %s\n", c.ID, c.Name, c.ImportanceName(), sound); err != nil {
			return err
		}
	}
	return nil
}

func stateName(info model.SessionInfo) string {
	if info.StateName != "" {
		return info.StateName
	}
	return info.State.String()
}

// templateFuncs returns the functions available to custom templates.
func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.RelTime(t, now(), "ago", "from now")
		},
		"upper": strings.ToUpper,
	}
}
