package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type recordingSpeaker struct {
	said []string
}

func (r *recordingSpeaker) Speak(u string) { r.said = append(r.said, u) }

func TestToggleFlipsValue(t *testing.T) {
	s := New()
	assert.True(t, s.Toggle(TTS))
	assert.True(t, s.Get(TTS))
	assert.False(t, s.Toggle(TTS))
	assert.False(t, s.Get(TTS))
}

func TestRabbitModeIndependentOfLudicrous(t *testing.T) {
	s := New(WithInitial(Snapshot{UseRabbitMode: true}))
	s.ToggleLudicrousMode()
	assert.True(t, s.Get(Rabbit))
	assert.False(t, s.Disabled(Rabbit))
	assert.False(t, s.Toggle(Rabbit))
}

func TestLudicrousOnClearsForcedToggles(t *testing.T) {
	sp := &recordingSpeaker{}
	s := New(WithSpeaker(sp), WithInitial(Snapshot{UseTTS: true, UseInternet: true, UsePhotos: true}))

	on := s.ToggleLudicrousMode()
	require.True(t, on)

	snap := s.Snapshot()
	assert.True(t, snap.UseLudicrousMode)
	assert.False(t, snap.UseTTS)
	assert.False(t, snap.UseInternet)
	assert.False(t, snap.UsePhotos)
	assert.Equal(t, []string{LudicrousAnnouncement}, sp.said)

	for _, n := range []Name{TTS, Internet, Photos} {
		assert.True(t, s.Disabled(n), "%s should be read-only", n)
	}
}

func TestLudicrousOffDoesNotRestore(t *testing.T) {
	sp := &recordingSpeaker{}
	s := New(WithSpeaker(sp), WithInitial(Snapshot{UseTTS: true, UsePhotos: true}))
	s.ToggleLudicrousMode()
	off := s.ToggleLudicrousMode()

	assert.False(t, off)
	snap := s.Snapshot()
	assert.Equal(t, Snapshot{}, snap)
	assert.Len(t, sp.said, 1, "cue only on activation")
}

func TestForcedToggleIsReadOnly(t *testing.T) {
	s := New()
	s.ToggleLudicrousMode()

	assert.False(t, s.Toggle(TTS))
	assert.False(t, s.Get(TTS))

	s.Set(Internet, true)
	assert.False(t, s.Get(Internet))
}

func TestSetLudicrousAppliesInvariant(t *testing.T) {
	s := New(WithInitial(Snapshot{UseTTS: true}))
	s.Set(Ludicrous, true)
	assert.False(t, s.Get(TTS))
	assert.True(t, s.Get(Ludicrous))
}

func TestToggleLudicrousViaToggle(t *testing.T) {
	s := New(WithInitial(Snapshot{UseInternet: true}))
	assert.True(t, s.Toggle(Ludicrous))
	assert.False(t, s.Get(Internet))
}

func TestWithInitialNormalizes(t *testing.T) {
	s := New(WithInitial(Snapshot{UseLudicrousMode: true, UseTTS: true}))
	assert.False(t, s.Get(TTS))
}

func TestOnChangeReceivesSnapshot(t *testing.T) {
	var got []Snapshot
	s := New(OnChange(func(snap Snapshot) { got = append(got, snap) }))
	s.Toggle(Photos)
	s.ToggleLudicrousMode()

	require.Len(t, got, 2)
	assert.True(t, got[0].UsePhotos)
	assert.False(t, got[1].UsePhotos)
	assert.True(t, got[1].UseLudicrousMode)
}

func TestOnChangeLastCallSeesFinalState(t *testing.T) {
	var (
		mu   sync.Mutex
		last Snapshot
	)
	s := New(OnChange(func(snap Snapshot) {
		mu.Lock()
		last = snap
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		name := Names[i%len(Names)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle(name)
		}()
	}
	wg.Wait()

	assert.Equal(t, s.Snapshot(), last)
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
	}{
		{"tts", TTS},
		{"useInternet", Internet},
		{"photos", Photos},
		{"ludicrous", Ludicrous},
		{"useRabbitMode", Rabbit},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseName("turbo")
	assert.Error(t, err)
}

func TestLudicrousInvariantHoldsUnderAnyOperationSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := New(WithInitial(Snapshot{
			UseTTS:      rapid.Bool().Draw(rt, "tts"),
			UseInternet: rapid.Bool().Draw(rt, "internet"),
			UsePhotos:   rapid.Bool().Draw(rt, "photos"),
		}))
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 30).Draw(rt, "ops")
		for i, op := range ops {
			name := rapid.SampledFrom(Names).Draw(rt, "name")
			switch op {
			case 0:
				s.Toggle(name)
			case 1:
				s.Set(name, rapid.Bool().Draw(rt, "value"))
			case 2:
				s.ToggleLudicrousMode()
			}
			snap := s.Snapshot()
			if snap.UseLudicrousMode && (snap.UseTTS || snap.UseInternet || snap.UsePhotos) {
				rt.Fatalf("op %d: ludicrous on with forced toggle set: %+v", i, snap)
			}
		}
	})
}
