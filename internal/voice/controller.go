package voice

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// transitionBuffer bounds the transition stream so a slow consumer never
// blocks the capture goroutine.
const transitionBuffer = 16

// Controller is the voice state machine. It owns the committed transcript
// buffer across recognition restarts and serializes capture and playback:
// starting either one interrupts the other.
type Controller struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	committed string
	interim   string

	transitions chan State
}

func NewController(r Recognizer, s Synthesizer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		recognizer:  r,
		synthesizer: s,
		logger:      logger,
		state:       StateIdle,
		transitions: make(chan State, transitionBuffer),
	}
}

// Transitions streams state changes for display. Events are dropped, not
// blocked on, when the consumer falls behind.
func (c *Controller) Transitions() <-chan State {
	return c.transitions
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Input returns the accumulated transcript: every finalized fragment plus
// the current interim fragment, trimmed.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.committed + c.interim)
}

// ClearInput resets the transcript buffers, typically after the captured
// text has been handed to the chat loop.
func (c *Controller) ClearInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = ""
	c.interim = ""
}

// StartCapture interrupts any playback, resets the transcript buffers and
// begins a new recognition pass. It is a no-op when already listening.
func (c *Controller) StartCapture(ctx context.Context) error {
	if c.recognizer == nil {
		return ErrCapabilityUnavailable
	}

	c.mu.Lock()
	if c.state == StateListening {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.synthesizer != nil {
		c.synthesizer.Cancel()
	}

	events, err := c.recognizer.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting recognition: %w", err)
	}

	c.mu.Lock()
	c.committed = ""
	c.interim = ""
	c.mu.Unlock()

	c.setState(StateListening)
	go c.consume(events)
	return nil
}

// StopCapture ends the current recognition pass. The transcript buffers keep
// whatever was captured so far.
func (c *Controller) StopCapture() {
	if c.recognizer != nil {
		c.recognizer.Stop()
	}
	c.setState(StateIdle)
}

// StopAll cancels playback and capture and returns the machine to idle.
func (c *Controller) StopAll() {
	if c.synthesizer != nil {
		c.synthesizer.Cancel()
	}
	if c.recognizer != nil {
		c.recognizer.Stop()
	}
	c.setState(StateIdle)
}

// Speak sanitizes text for speech and plays it. Any playback in progress is
// cancelled first. Playback failure is logged, not returned: by the time the
// utterance fails the turn it belongs to has already been persisted and
// rendered, so the machine simply returns to idle either way.
func (c *Controller) Speak(ctx context.Context, req SpeechRequest) error {
	if c.synthesizer == nil {
		return ErrCapabilityUnavailable
	}

	c.StopAll()

	req.Text = SanitizeSpeech(req.Text)
	if req.Text == "" {
		return nil
	}

	c.setState(StateSpeaking)
	err := c.synthesizer.Speak(ctx, req)
	c.setState(StateIdle)
	if err != nil {
		c.logger.Warn("speech playback failed", "error", err)
	}
	return nil
}

func (c *Controller) consume(events <-chan RecognitionEvent) {
	for ev := range events {
		if ev.Err != nil {
			c.logger.Warn("recognition error", "error", ev.Err)
			c.setState(StateIdle)
			return
		}
		if ev.End {
			c.setState(StateIdle)
			return
		}
		c.mu.Lock()
		if ev.Final {
			c.committed += ev.Transcript + " "
			c.interim = ""
		} else {
			c.interim = ev.Transcript
		}
		c.mu.Unlock()
	}
	c.setState(StateIdle)
}

// setState records the new state and notifies the transition stream when the
// state actually changed.
func (c *Controller) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if !changed {
		return
	}
	select {
	case c.transitions <- s:
	default:
	}
}

var bracketedSpans = regexp.MustCompile(`\[.*?\]`)

var markdownMarkers = strings.NewReplacer("*", "", "_", "", "#", "", "`", "", "~", "")

// SanitizeSpeech strips markdown markers and bracketed spans so the
// synthesizer never reads formatting aloud.
func SanitizeSpeech(text string) string {
	text = markdownMarkers.Replace(text)
	text = bracketedSpans.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
