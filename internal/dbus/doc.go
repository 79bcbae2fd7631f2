// Package dbus exposes the emergency audio bridge on D-Bus as the
// io.github.jmylchreest.Klaxon interface. It provides the daemon-side server
// with PlaybackStarted and PlaybackStopped signals, plus the client and
// signal monitor used by the klaxon CLI.
package dbus
