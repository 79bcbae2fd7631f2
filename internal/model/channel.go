// Package model defines the core data structures for klaxon.
package model

import (
	"errors"
	"fmt"
)

// Channel identifiers registered at startup.
const (
	EmergencyChannelID = "emergency_channel"
	DefaultChannelID   = "default_channel"
)

// Importance levels for a notification channel, lowest to highest.
const (
	ImportanceLow     = 0
	ImportanceDefault = 1
	ImportanceHigh    = 2
)

// ImportanceNames maps importance levels to human-readable names.
var ImportanceNames = map[int]string{
	ImportanceLow:     "low",
	ImportanceDefault: "default",
	ImportanceHigh:    "high",
}

// Usage describes what an audio stream is for.
type Usage string

const (
	UsageAlarm        Usage = "alarm"
	UsageNotification Usage = "notification"
	UsageMedia        Usage = "media"
)

// ContentType describes what an audio stream contains.
type ContentType string

const (
	ContentTypeSonification ContentType = "sonification"
	ContentTypeMusic        ContentType = "music"
	ContentTypeSpeech       ContentType = "speech"
)

// AudioAttributes classify an audio stream so the output can be routed and
// prioritised. Alarm usage is the alert-class category that must stay audible
// over other content.
type AudioAttributes struct {
	Usage       Usage       `json:"usage" yaml:"usage"`
	ContentType ContentType `json:"content_type" yaml:"content_type"`
}

// AlarmAttributes is used for the looping emergency tone.
func AlarmAttributes() AudioAttributes {
	return AudioAttributes{Usage: UsageAlarm, ContentType: ContentTypeSonification}
}

// NotificationAttributes is used for the emergency channel's notification sound.
func NotificationAttributes() AudioAttributes {
	return AudioAttributes{Usage: UsageNotification, ContentType: ContentTypeSonification}
}

// IsAlertClass reports whether the attributes select alert-class output priority.
func (a AudioAttributes) IsAlertClass() bool {
	return a.Usage == UsageAlarm
}

// String returns "usage/content_type".
func (a AudioAttributes) String() string {
	return fmt.Sprintf("%s/%s", a.Usage, a.ContentType)
}

// ChannelDescriptor describes a notification channel: a grouping of
// notifications sharing importance and sound settings.
type ChannelDescriptor struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Importance  int    `json:"importance" yaml:"importance"`

	// Sound is the asset reference played for this channel. Empty means the
	// host's default notification sound.
	Sound      string           `json:"sound,omitempty" yaml:"sound,omitempty"`
	Attributes *AudioAttributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validation errors.
var (
	ErrEmptyChannelID    = errors.New("channel id cannot be empty")
	ErrEmptyChannelName  = errors.New("channel name cannot be empty")
	ErrInvalidImportance = errors.New("importance must be 0, 1, or 2")
	ErrSoundNoAttributes = errors.New("channel with a custom sound needs audio attributes")
	ErrAttributesNoSound = errors.New("channel audio attributes set without a sound")
)

// Validate checks that the descriptor has all required fields.
func (c *ChannelDescriptor) Validate() error {
	if c.ID == "" {
		return ErrEmptyChannelID
	}
	if c.Name == "" {
		return ErrEmptyChannelName
	}
	if c.Importance < ImportanceLow || c.Importance > ImportanceHigh {
		return ErrInvalidImportance
	}
	if c.Sound != "" && c.Attributes == nil {
		return ErrSoundNoAttributes
	}
	if c.Sound == "" && c.Attributes != nil {
		return ErrAttributesNoSound
	}
	return nil
}

// ImportanceName returns the human-readable importance.
func (c *ChannelDescriptor) ImportanceName() string {
	if name, ok := ImportanceNames[c.Importance]; ok {
		return name
	}
	return "unknown"
}

// HasCustomSound reports whether the channel plays its own sound.
func (c *ChannelDescriptor) HasCustomSound() bool {
	return c.Sound != ""
}

// Clone creates a deep copy of the descriptor.
func (c *ChannelDescriptor) Clone() *ChannelDescriptor {
	clone := *c
	if c.Attributes != nil {
		attrs := *c.Attributes
		clone.Attributes = &attrs
	}
	return &clone
}

// EmergencyChannel returns the emergency channel descriptor for the given
// alert sound: high importance, dedicated sound, sonification content.
func EmergencyChannel(sound string) ChannelDescriptor {
	attrs := NotificationAttributes()
	return ChannelDescriptor{
		ID:          EmergencyChannelID,
		Name:        "Emergency Notifications",
		Description: "Used for emergency alerts",
		Importance:  ImportanceHigh,
		Sound:       sound,
		Attributes:  &attrs,
	}
}

// DefaultChannel returns the default channel descriptor: high importance, no
// custom sound.
func DefaultChannel() ChannelDescriptor {
	return ChannelDescriptor{
		ID:          DefaultChannelID,
		Name:        "Default Notifications",
		Description: "Used for normal notifications",
		Importance:  ImportanceHigh,
	}
}

// BuiltinSirenAsset selects the synthesised two-tone siren instead of a file.
const BuiltinSirenAsset = "builtin:siren"
