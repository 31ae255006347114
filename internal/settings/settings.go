// Package settings holds the process-wide feature toggles and the ludicrous
// mode exclusion rule.
package settings

import (
	"fmt"
	"sync"
)

// Name identifies one feature toggle.
type Name string

const (
	TTS       Name = "useTTS"
	Internet  Name = "useInternet"
	Photos    Name = "usePhotos"
	Ludicrous Name = "useLudicrousMode"
	Rabbit    Name = "useRabbitMode"
)

// LudicrousAnnouncement is spoken when ludicrous mode turns on.
const LudicrousAnnouncement = "Ludicrous mode activated"

// Names lists every toggle in display order.
var Names = []Name{Ludicrous, TTS, Internet, Photos, Rabbit}

// forcedByLudicrous are held false while ludicrous mode is on.
var forcedByLudicrous = []Name{TTS, Internet, Photos}

// ParseName resolves a toggle name. Short forms ("tts", "ludicrous") are accepted.
func ParseName(s string) (Name, error) {
	switch s {
	case string(TTS), "tts":
		return TTS, nil
	case string(Internet), "internet":
		return Internet, nil
	case string(Photos), "photos":
		return Photos, nil
	case string(Ludicrous), "ludicrous":
		return Ludicrous, nil
	case string(Rabbit), "rabbit":
		return Rabbit, nil
	}
	return "", fmt.Errorf("unknown setting %q", s)
}

// Speaker receives the audible confirmation cue.
type Speaker interface {
	Speak(utterance string)
}

// Snapshot is an immutable copy of all toggles.
type Snapshot struct {
	UseTTS           bool `json:"useTTS"`
	UseInternet      bool `json:"useInternet"`
	UsePhotos        bool `json:"usePhotos"`
	UseLudicrousMode bool `json:"useLudicrousMode"`
	UseRabbitMode    bool `json:"useRabbitMode"`
}

// Get returns the value of the named toggle in the snapshot.
func (s Snapshot) Get(name Name) bool {
	switch name {
	case TTS:
		return s.UseTTS
	case Internet:
		return s.UseInternet
	case Photos:
		return s.UsePhotos
	case Ludicrous:
		return s.UseLudicrousMode
	case Rabbit:
		return s.UseRabbitMode
	}
	return false
}

// With returns a copy of the snapshot with the named toggle set to v.
func (s Snapshot) With(name Name, v bool) Snapshot {
	s.set(name, v)
	return s
}

func (s *Snapshot) set(name Name, v bool) {
	switch name {
	case TTS:
		s.UseTTS = v
	case Internet:
		s.UseInternet = v
	case Photos:
		s.UsePhotos = v
	case Ludicrous:
		s.UseLudicrousMode = v
	case Rabbit:
		s.UseRabbitMode = v
	}
}

// Normalize applies the ludicrous invariant to a snapshot loaded from elsewhere.
func (s Snapshot) Normalize() Snapshot {
	if s.UseLudicrousMode {
		for _, n := range forcedByLudicrous {
			s.set(n, false)
		}
	}
	return s
}

// Settings is the mutable toggle set. It is safe for concurrent use; the UI
// goroutine writes and request builders read snapshots.
type Settings struct {
	// writeMu orders mutations together with their callbacks.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	values   Snapshot
	speaker  Speaker
	onChange []func(Snapshot)
}

// Option configures Settings.
type Option func(*Settings)

// WithSpeaker sets the speech-output collaborator for the ludicrous cue.
func WithSpeaker(sp Speaker) Option {
	return func(s *Settings) { s.speaker = sp }
}

// WithInitial seeds the toggles. The ludicrous invariant is applied.
func WithInitial(snap Snapshot) Option {
	return func(s *Settings) { s.values = snap.Normalize() }
}

// OnChange registers a callback invoked after every mutation with the new
// snapshot. Callbacks run in mutation order; they may read the settings but
// must not mutate them.
func OnChange(fn func(Snapshot)) Option {
	return func(s *Settings) { s.onChange = append(s.onChange, fn) }
}

// New creates Settings with every toggle off unless WithInitial is given.
func New(opts ...Option) *Settings {
	s := &Settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current toggles.
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// Get returns the stored value of a toggle.
func (s *Settings) Get(name Name) bool {
	return s.Snapshot().Get(name)
}

// Disabled reports whether the toggle is read-only right now.
func (s *Settings) Disabled(name Name) bool {
	return isForced(name) && s.Get(Ludicrous)
}

// Toggle flips a toggle and returns its new value. Toggles held by ludicrous
// mode are read-only and stay false. Ludicrous itself routes through
// ToggleLudicrousMode.
func (s *Settings) Toggle(name Name) bool {
	if name == Ludicrous {
		return s.ToggleLudicrousMode()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if isForced(name) && s.values.UseLudicrousMode {
		s.mu.Unlock()
		return false
	}
	v := !s.values.Get(name)
	s.values.set(name, v)
	snap := s.values
	s.mu.Unlock()

	s.notify(snap)
	return v
}

// Set force-sets a toggle. Setting ludicrous on clears the forced toggles the
// same way ToggleLudicrousMode does; setting a forced toggle on while
// ludicrous is active is ignored.
func (s *Settings) Set(name Name, value bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if value && isForced(name) && s.values.UseLudicrousMode {
		s.mu.Unlock()
		return
	}
	s.values.set(name, value)
	s.values = s.values.Normalize()
	snap := s.values
	s.mu.Unlock()

	s.notify(snap)
}

// ToggleLudicrousMode flips ludicrous mode. Turning it on clears TTS,
// internet and photos in the same critical section and speaks the
// confirmation cue. Turning it off leaves the others false.
func (s *Settings) ToggleLudicrousMode() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	on := !s.values.UseLudicrousMode
	s.values.UseLudicrousMode = on
	s.values = s.values.Normalize()
	snap := s.values
	s.mu.Unlock()

	if on && s.speaker != nil {
		s.speaker.Speak(LudicrousAnnouncement)
	}
	s.notify(snap)
	return on
}

func (s *Settings) notify(snap Snapshot) {
	for _, fn := range s.onChange {
		fn(snap)
	}
}

func isForced(name Name) bool {
	for _, n := range forcedByLudicrous {
		if n == name {
			return true
		}
	}
	return false
}
