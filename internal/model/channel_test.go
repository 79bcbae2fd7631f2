package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmergencyChannel(t *testing.T) {
	c := EmergencyChannel("builtin:siren")

	require.NoError(t, c.Validate())
	assert.Equal(t, EmergencyChannelID, c.ID)
	assert.Equal(t, "Emergency Notifications", c.Name)
	assert.Equal(t, "Used for emergency alerts", c.Description)
	assert.Equal(t, ImportanceHigh, c.Importance)
	assert.True(t, c.HasCustomSound())
	require.NotNil(t, c.Attributes)
	assert.Equal(t, UsageNotification, c.Attributes.Usage)
	assert.Equal(t, ContentTypeSonification, c.Attributes.ContentType)
	assert.False(t, c.Attributes.IsAlertClass())
}

func TestDefaultChannel(t *testing.T) {
	c := DefaultChannel()

	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultChannelID, c.ID)
	assert.Equal(t, "Default Notifications", c.Name)
	assert.Equal(t, ImportanceHigh, c.Importance)
	assert.False(t, c.HasCustomSound())
	assert.Nil(t, c.Attributes)
	assert.Equal(t, "high", c.ImportanceName())
}

func TestChannelDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ChannelDescriptor)
		wantErr error
	}{
		{
			name:    "valid descriptor",
			modify:  func(c *ChannelDescriptor) {},
			wantErr: nil,
		},
		{
			name:    "empty id",
			modify:  func(c *ChannelDescriptor) { c.ID = "" },
			wantErr: ErrEmptyChannelID,
		},
		{
			name:    "empty name",
			modify:  func(c *ChannelDescriptor) { c.Name = "" },
			wantErr: ErrEmptyChannelName,
		},
		{
			name:    "importance too high",
			modify:  func(c *ChannelDescriptor) { c.Importance = 3 },
			wantErr: ErrInvalidImportance,
		},
		{
			name:    "importance negative",
			modify:  func(c *ChannelDescriptor) { c.Importance = -1 },
			wantErr: ErrInvalidImportance,
		},
		{
			name:    "sound without attributes",
			modify:  func(c *ChannelDescriptor) { c.Attributes = nil },
			wantErr: ErrSoundNoAttributes,
		},
		{
			name:    "attributes without sound",
			modify:  func(c *ChannelDescriptor) { c.Sound = "" },
			wantErr: ErrAttributesNoSound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := EmergencyChannel("/tmp/alert.wav")
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestChannelDescriptor_Clone(t *testing.T) {
	c := EmergencyChannel("a.wav")
	clone := c.Clone()

	clone.Attributes.Usage = UsageMedia
	clone.Sound = "b.wav"

	assert.Equal(t, UsageNotification, c.Attributes.Usage)
	assert.Equal(t, "a.wav", c.Sound)
}

func TestAudioAttributes(t *testing.T) {
	alarm := AlarmAttributes()
	assert.True(t, alarm.IsAlertClass())
	assert.Equal(t, "alarm/sonification", alarm.String())
	assert.NotEqual(t, alarm, NotificationAttributes())
}

func TestImportanceName_Unknown(t *testing.T) {
	c := DefaultChannel()
	c.Importance = 7
	assert.Equal(t, "unknown", c.ImportanceName())
}
