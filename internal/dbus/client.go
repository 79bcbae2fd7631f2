package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/klaxon/internal/model"
)

// Client calls the klaxon daemon over D-Bus.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	busName string
}

// NewClient connects to bus and targets the daemon owning busName.
func NewClient(bus, busName string) (*Client, error) {
	conn, err := Connect(bus)
	if err != nil {
		return nil, err
	}
	return NewClientWithConn(conn, busName), nil
}

// NewClientWithConn targets busName over an existing connection.
func NewClientWithConn(conn *dbus.Conn, busName string) *Client {
	if busName == "" {
		busName = DefaultBusName
	}
	return &Client{
		conn:    conn,
		obj:     conn.Object(busName, dbus.ObjectPath(Path)),
		busName: busName,
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Conn returns the underlying connection.
func (c *Client) Conn() *dbus.Conn {
	return c.conn
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// Play asks the daemon to start the alert tone.
func (c *Client) Play(ctx context.Context) error {
	return callError(c.call(ctx, "PlayEmergencySound").Err)
}

// Stop asks the daemon to stop the alert tone.
func (c *Client) Stop(ctx context.Context) error {
	return callError(c.call(ctx, "StopEmergencySound").Err)
}

// Invoke runs a bridge command by name. Unknown commands return an error
// wrapping bridge.ErrNotImplemented.
func (c *Client) Invoke(ctx context.Context, method string) error {
	return callError(c.call(ctx, "Invoke", method).Err)
}

// Status returns the daemon's current session.
func (c *Client) Status(ctx context.Context) (model.SessionInfo, error) {
	var r StatusReply
	err := c.call(ctx, "GetStatus").Store(&r.Active, &r.Playing, &r.SessionID, &r.StartedAt)
	if err != nil {
		return model.SessionInfo{}, fmt.Errorf("failed to get status: %w", callError(err))
	}
	return r.ToSession(), nil
}

// Channels returns the daemon's registered notification channels.
func (c *Client) Channels(ctx context.Context) ([]model.ChannelDescriptor, error) {
	var tuples []ChannelTuple
	if err := c.call(ctx, "ListChannels").Store(&tuples); err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", callError(err))
	}

	result := make([]model.ChannelDescriptor, 0, len(tuples))
	for _, t := range tuples {
		result = append(result, t.ToChannel())
	}
	return result, nil
}
