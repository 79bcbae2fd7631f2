// Package audio owns the looping emergency alert tone.
//
// Controller holds at most one playback session and exposes Start, Stop and
// Teardown. Sessions are opened through a Backend; the beep-based Player
// decodes WAV, OGG and MP3 assets (or synthesises the built-in siren),
// prepares them asynchronously and loops them until stopped.
package audio
