// Package latency accumulates per-stage elapsed times for one request.
//
// Stage boundaries are implicit: transcription ends the first time a
// transcription arrives, and result/audio are measured from that point (or
// from submission when no transcription has been seen yet). The reported total
// is the sum of the stage durations, not wall-clock time, so overlapping
// stages are counted twice.
package latency

import "time"

// Stage names one measured stage.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageResult        Stage = "result"
	StageAudio         Stage = "audio"
)

// Stages lists the measured stages in pipeline order.
var Stages = []Stage{StageTranscription, StageResult, StageAudio}

// Report is the latency summary of one session. Unrecorded stages are zero.
type Report struct {
	Transcription time.Duration `json:"transcription" yaml:"transcription"`
	Result        time.Duration `json:"result" yaml:"result"`
	Audio         time.Duration `json:"audio" yaml:"audio"`
	Total         time.Duration `json:"total" yaml:"total"`
}

// Stage returns the duration recorded for a stage.
func (r Report) Stage(s Stage) time.Duration {
	switch s {
	case StageTranscription:
		return r.Transcription
	case StageResult:
		return r.Result
	case StageAudio:
		return r.Audio
	}
	return 0
}

// Sum is the additive response time of the three stages.
func (r Report) Sum() time.Duration {
	return r.Transcription + r.Result + r.Audio
}

// Tracker captures timestamps for one session.
type Tracker struct {
	start         time.Time
	transcribedAt time.Time
	report        Report
	recorded      map[Stage]bool
}

// NewTracker starts measuring at start.
func NewTracker(start time.Time) *Tracker {
	return &Tracker{start: start, recorded: make(map[Stage]bool, len(Stages))}
}

// Start returns the submission time.
func (t *Tracker) Start() time.Time { return t.start }

// TranscribedAt returns the first transcription time, or zero.
func (t *Tracker) TranscribedAt() time.Time { return t.transcribedAt }

// MarkTranscription records the first transcription. Later calls are no-ops
// and return false.
func (t *Tracker) MarkTranscription(now time.Time) bool {
	if !t.transcribedAt.IsZero() {
		return false
	}
	t.transcribedAt = now
	t.report.Transcription = now.Sub(t.start)
	t.recorded[StageTranscription] = true
	return true
}

// MarkResult records result latency from the transcription boundary. The
// latest call wins.
func (t *Tracker) MarkResult(now time.Time) time.Duration {
	t.report.Result = now.Sub(t.anchor())
	t.recorded[StageResult] = true
	return t.report.Result
}

// MarkAudio records audio latency from the transcription boundary. The
// latest call wins.
func (t *Tracker) MarkAudio(now time.Time) time.Duration {
	t.report.Audio = now.Sub(t.anchor())
	t.recorded[StageAudio] = true
	return t.report.Audio
}

// Recorded reports whether the stage was observed.
func (t *Tracker) Recorded(s Stage) bool { return t.recorded[s] }

// Snapshot returns the stage durations so far, with Total left at zero.
func (t *Tracker) Snapshot() Report {
	r := t.report
	r.Total = 0
	return r
}

// Complete computes the total and returns the final report.
func (t *Tracker) Complete() Report {
	t.report.Total = t.report.Sum()
	return t.report
}

func (t *Tracker) anchor() time.Time {
	if !t.transcribedAt.IsZero() {
		return t.transcribedAt
	}
	return t.start
}
