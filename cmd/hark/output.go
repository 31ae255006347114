package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/gregiteen/ai-devices/internal/latency"
	"github.com/gregiteen/ai-devices/internal/stream"
	"github.com/gregiteen/ai-devices/internal/ui"
)

// answer is the printable result of one request.
type answer struct {
	Session       string            `json:"session" yaml:"session"`
	Status        string            `json:"status" yaml:"status"`
	Transcription string            `json:"transcription,omitempty" yaml:"transcription,omitempty"`
	Primary       string            `json:"primary" yaml:"primary"`
	Time          string            `json:"time,omitempty" yaml:"time,omitempty"`
	Weather       any               `json:"weather,omitempty" yaml:"weather,omitempty"`
	Message       string            `json:"message,omitempty" yaml:"message,omitempty"`
	MusicTrack    string            `json:"musicTrack,omitempty" yaml:"musicTrack,omitempty"`
	Latency       map[string]string `json:"latency,omitempty" yaml:"latency,omitempty"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func newAnswer(c stream.Completion) answer {
	v := c.View
	a := answer{
		Session:       c.SessionID,
		Status:        "completed",
		Transcription: v.Transcription,
		Primary:       v.Primary.String(),
		Time:          v.TimeText,
		MusicTrack:    v.MusicTrackID,
		Latency:       latencyMap(c.Report, c.Recorded),
	}
	if v.Weather.Value != nil {
		a.Weather = plainNumbers(v.Weather.Value)
	}
	if v.Message != nil {
		a.Message = v.Message.Text
	}
	if c.Err != nil {
		a.Status = "aborted"
		a.Error = c.Err.Error()
	}
	return a
}

// latencyMap formats the recorded stages and the total.
func latencyMap(r latency.Report, recorded []latency.Stage) map[string]string {
	m := make(map[string]string, len(recorded)+1)
	for _, s := range recorded {
		m[string(s)] = ui.FormatDuration(r.Stage(s))
	}
	m["total"] = ui.FormatDuration(r.Total)
	return m
}

// latencyLine renders a latencyMap in stage order.
func latencyLine(m map[string]string) string {
	var stages []string
	for _, s := range latency.Stages {
		if d, ok := m[string(s)]; ok {
			stages = append(stages, string(s)+" "+d)
		}
	}
	stages = append(stages, "total "+m["total"])
	return strings.Join(stages, ", ")
}

// plainNumbers replaces json.Number values so YAML output keeps them numeric.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainNumbers(e)
		}
		return out
	}
	return v
}

func formatAnswer(a answer, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return string(data), nil
	case "text", "":
		return formatText(a), nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func formatText(a answer) string {
	var b strings.Builder
	if a.Transcription != "" {
		fmt.Fprintf(&b, "heard:   %s\n", a.Transcription)
	}
	switch a.Primary {
	case "time":
		fmt.Fprintf(&b, "time:    %s\n", a.Time)
	case "weather":
		if obj, ok := a.Weather.(map[string]any); ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "weather: %s = %v\n", k, obj[k])
			}
		} else {
			fmt.Fprintf(&b, "weather: %v\n", a.Weather)
		}
	case "message":
		fmt.Fprintf(&b, "%s\n", a.Message)
	}
	if a.MusicTrack != "" {
		fmt.Fprintf(&b, "music:   %s\n", a.MusicTrack)
	}
	fmt.Fprintf(&b, "latency: %s\n", latencyLine(a.Latency))
	if a.Error != "" {
		fmt.Fprintf(&b, "error:   %s\n", a.Error)
	}
	return b.String()
}
