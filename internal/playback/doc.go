// Package playback streams song audio and keeps at most one voice audible at a time.
//
// # Exclusive Playback
//
// A [Coordinator] holds a single "active" reference. Every [Voice] registers with it; when a voice
// starts it reports [Coordinator.Started], which pauses the previously active voice before the new
// one is unpaused. Pausing or finishing a voice clears the reference. The policy is reactive:
// nothing prevents two voices from being started, the coordinator silences the older one.
//
// # Audio Path
//
// Voices open the song URL over HTTP (a buffered, range-requested stream), decode MP3 with
// gopxl/beep, resample to the output rate and feed the speaker mixer through a [beep.Ctrl].
// The speaker is initialized once per process; each voice owns its own Ctrl so pausing one
// never affects another.
//
// A [Deck] groups the voices of one view and owns their coordinator. Leaving a view closes its deck.
package playback
