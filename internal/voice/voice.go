// Package voice drives speech capture and playback around the chat loop.
// The platform's recognition and synthesis engines are external services
// behind the Recognizer and Synthesizer contracts; the state machine here is
// independent of any rendering layer and is driven purely by events.
package voice

import (
	"context"
	"errors"
)

// State is the voice interaction state. The controller machine only occupies
// Idle, Listening and Speaking; Thinking and Error exist for display and
// always fall back to Idle.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
	StateError     State = "error"
)

// ErrCapabilityUnavailable reports that the platform provides no speech
// engine. It is surfaced to the user once and the feature stays disabled for
// the session; there is nothing to retry.
var ErrCapabilityUnavailable = errors.New("speech capability unavailable on this platform")

// RecognitionEvent is one event from a speech recognizer. Exactly one of the
// following is meaningful per event: a transcript fragment (Final or
// interim), End of input, or Err.
type RecognitionEvent struct {
	Transcript string
	Final      bool
	End        bool
	Err        error
}

// Recognizer is a continuous speech-capture engine. Start returns the
// event stream for one capture; the stream ends (End event or channel
// close) when the engine stops, whether gracefully or not.
type Recognizer interface {
	Start(ctx context.Context) (<-chan RecognitionEvent, error)
	Stop()
}

// SpeechRequest is one utterance for the synthesis engine.
type SpeechRequest struct {
	Text  string
	Voice string
	Pitch float64
	Rate  float64
}

// Synthesizer is a speech-playback engine. Speak blocks until playback
// completes or fails; Cancel stops any in-flight playback immediately.
type Synthesizer interface {
	Speak(ctx context.Context, req SpeechRequest) error
	Cancel()
}
