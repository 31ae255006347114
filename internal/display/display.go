// Package display holds the renderable state of the current request and the
// projection that picks the single primary output.
package display

import (
	"time"

	"github.com/gregiteen/ai-devices/internal/fragment"
)

// Component is the structured widget occupying the exclusive slot.
type Component int

const (
	ComponentNone Component = iota
	ComponentTime
	ComponentWeather
)

func (c Component) String() string {
	switch c {
	case ComponentTime:
		return "time"
	case ComponentWeather:
		return "weather"
	}
	return "none"
}

// Message is the latest plain-text result with the latency it took to arrive.
type Message struct {
	Text    string
	Elapsed time.Duration
}

// State is the display state of one session. Fields are last-write-wins.
type State struct {
	Component     Component
	TimeText      string
	Weather       fragment.WeatherData
	Message       *Message
	Transcription string
	MusicTrackID  string
}

// SetTime puts the time widget in the exclusive slot.
func (s *State) SetTime(text string) {
	s.Component = ComponentTime
	s.TimeText = text
}

// SetWeather puts the weather widget in the exclusive slot.
func (s *State) SetWeather(w fragment.WeatherData) {
	s.Component = ComponentWeather
	s.Weather = w
}

// SetMessage replaces the latest result message.
func (s *State) SetMessage(text string, elapsed time.Duration) {
	s.Message = &Message{Text: text, Elapsed: elapsed}
}

// Primary is the one externally visible output.
type Primary int

const (
	PrimaryNothing Primary = iota
	PrimaryTime
	PrimaryWeather
	PrimaryMessage
)

func (p Primary) String() string {
	switch p {
	case PrimaryTime:
		return "time"
	case PrimaryWeather:
		return "weather"
	case PrimaryMessage:
		return "message"
	}
	return "nothing"
}

// View is the projected output.
type View struct {
	Primary       Primary
	TimeText      string
	Weather       fragment.WeatherData
	Message       *Message
	Transcription string
	// MusicTrackID is an overlay, shown alongside any primary output.
	MusicTrackID string
}

// Project derives the view. A structured component suppresses the message.
func (s State) Project() View {
	v := View{
		Transcription: s.Transcription,
		MusicTrackID:  s.MusicTrackID,
	}
	switch s.Component {
	case ComponentTime:
		v.Primary = PrimaryTime
		v.TimeText = s.TimeText
	case ComponentWeather:
		v.Primary = PrimaryWeather
		v.Weather = s.Weather
	default:
		if s.Message != nil {
			v.Primary = PrimaryMessage
			m := *s.Message
			v.Message = &m
		}
	}
	return v
}
