// Package daemon provides the main orchestration for klaxond.
// It wires the audio controller, channel registry, command bridge, D-Bus
// server and metrics, and handles configuration hot reload.
package daemon
