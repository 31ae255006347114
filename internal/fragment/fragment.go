// Package fragment classifies the sparse partial-update records streamed back
// by the remote pipeline into typed channel updates.
package fragment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Channel is one semantic slot a fragment may populate.
type Channel int

// Channels are listed in the order they are applied within one fragment.
const (
	RateLimit Channel = iota
	Time
	Transcription
	Weather
	Result
	Audio
	MusicTrack
)

// Channels lists every channel in application order.
var Channels = []Channel{RateLimit, Time, Transcription, Weather, Result, Audio, MusicTrack}

// Wire keys for each channel.
const (
	KeyRateLimit     = "rateLimitReached"
	KeyTime          = "time"
	KeyTranscription = "transcription"
	KeyWeather       = "weather"
	KeyResult        = "result"
	KeyAudio         = "audio"
	KeyMusicTrack    = "musicTrack"
)

var channelKeys = map[Channel]string{
	RateLimit:     KeyRateLimit,
	Time:          KeyTime,
	Transcription: KeyTranscription,
	Weather:       KeyWeather,
	Result:        KeyResult,
	Audio:         KeyAudio,
	MusicTrack:    KeyMusicTrack,
}

// Key returns the wire key for the channel.
func (c Channel) Key() string { return channelKeys[c] }

func (c Channel) String() string {
	switch c {
	case RateLimit:
		return "rate_limit"
	case Time:
		return "time"
	case Transcription:
		return "transcription"
	case Weather:
		return "weather"
	case Result:
		return "result"
	case Audio:
		return "audio"
	case MusicTrack:
		return "music_track"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Raw is one fragment as received: a sparse JSON object.
type Raw map[string]json.RawMessage

// Parse decodes a single fragment object.
func Parse(data []byte) (Raw, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal fragment: %w", err)
	}
	return raw, nil
}

// ErrMalformedChannel marks a channel whose payload failed shape validation.
var ErrMalformedChannel = errors.New("malformed channel")

// ChannelError reports a single dropped channel.
type ChannelError struct {
	Channel Channel
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() []error { return []error{ErrMalformedChannel, e.Err} }

// WeatherData is a decoded weather payload: a JSON object or array.
type WeatherData struct {
	Value any
}

// Object returns the payload as an object, or the first object of an array.
func (w WeatherData) Object() map[string]any {
	switch v := w.Value.(type) {
	case map[string]any:
		return v
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// Update is one validated channel value.
type Update struct {
	Channel Channel
	Text    string
	Weather WeatherData
}

// Classification is the result of classifying one fragment.
type Classification struct {
	// Updates are in channel application order, independent of key order on the wire.
	Updates []Update
	// Errs holds one *ChannelError per dropped channel.
	Errs []error
}

// Has reports whether the channel was populated with a valid value.
func (c Classification) Has(ch Channel) bool {
	for _, u := range c.Updates {
		if u.Channel == ch {
			return true
		}
	}
	return false
}

// Channels returns the valid channels in application order.
func (c Classification) Channels() []Channel {
	out := make([]Channel, 0, len(c.Updates))
	for _, u := range c.Updates {
		out = append(out, u.Channel)
	}
	return out
}

// Classify inspects every known channel key. Absent keys, unknown keys and
// JSON null values are not errors. A value of the wrong shape drops only that
// channel.
func Classify(raw Raw) Classification {
	var c Classification
	for _, ch := range Channels {
		val, ok := raw[ch.Key()]
		if !ok || isNull(val) {
			continue
		}
		u, present, err := classifyChannel(ch, val)
		if err != nil {
			c.Errs = append(c.Errs, &ChannelError{Channel: ch, Err: err})
			continue
		}
		if present {
			c.Updates = append(c.Updates, u)
		}
	}
	return c
}

func classifyChannel(ch Channel, val json.RawMessage) (Update, bool, error) {
	if ch == Weather {
		w, err := parseWeather(val)
		if err != nil {
			return Update{}, false, err
		}
		return Update{Channel: ch, Weather: w}, true, nil
	}

	// rateLimitReached may arrive as a bare flag; false means absent.
	if ch == RateLimit {
		var flag bool
		if json.Unmarshal(val, &flag) == nil {
			if !flag {
				return Update{}, false, nil
			}
			return Update{Channel: ch, Text: DefaultRateLimitNotice}, true, nil
		}
	}

	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return Update{}, false, fmt.Errorf("expected string: %w", err)
	}
	return Update{Channel: ch, Text: s}, true, nil
}

// DefaultRateLimitNotice is shown when the pipeline flags a rate limit without text.
const DefaultRateLimitNotice = "Rate limit reached, please try again later."

// parseWeather accepts a structured value directly or a string holding
// serialized JSON. Scalars are rejected.
func parseWeather(val json.RawMessage) (WeatherData, error) {
	payload := []byte(val)
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		payload = []byte(s)
	}

	if !json.Valid(payload) {
		return WeatherData{}, fmt.Errorf("parse weather payload: invalid JSON")
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return WeatherData{}, fmt.Errorf("parse weather payload: %w", err)
	}
	switch v.(type) {
	case map[string]any, []any:
		return WeatherData{Value: v}, nil
	}
	return WeatherData{}, fmt.Errorf("weather payload is not structured (%T)", v)
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}
