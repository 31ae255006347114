// Package ui renders the response widgets and panels of the TUI.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gregiteen/ai-devices/internal/display"
	"github.com/gregiteen/ai-devices/internal/fragment"
	"github.com/gregiteen/ai-devices/internal/latency"
)

// Toggle is one row of the settings panel.
type Toggle struct {
	Key      string
	Label    string
	On       bool
	Disabled bool
}

// weatherFields are shown first on the weather card, in this order.
var weatherFields = []string{"location", "condition", "temperature", "high", "low", "humidity", "wind"}

// RenderPrimary draws the single primary output of a view.
func RenderPrimary(v display.View, width int) string {
	switch v.Primary {
	case display.PrimaryTime:
		return RenderClock(v.TimeText)
	case display.PrimaryWeather:
		return RenderWeather(v.Weather, width)
	case display.PrimaryMessage:
		return RenderMessage(*v.Message, width)
	}
	return ""
}

// RenderClock draws the time widget.
func RenderClock(text string) string {
	return ClockStyle.Render(text)
}

// RenderWeather draws the weather card. Known fields come first; any other
// top-level fields follow in key order. Non-object payloads are shown raw.
func RenderWeather(w fragment.WeatherData, width int) string {
	obj := w.Object()
	if obj == nil {
		return WeatherCardStyle.Render(fmt.Sprint(w.Value))
	}

	seen := make(map[string]bool)
	var lines []string
	for _, k := range weatherFields {
		if v, ok := obj[k]; ok {
			lines = append(lines, weatherLine(k, v))
			seen[k] = true
		}
	}
	var rest []string
	for k := range obj {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		lines = append(lines, weatherLine(k, obj[k]))
	}

	style := WeatherCardStyle
	if width > 4 {
		style = style.MaxWidth(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func weatherLine(k string, v any) string {
	switch v.(type) {
	case map[string]any, []any:
		return WeatherKeyStyle.Render(k+": ") + "…"
	}
	return WeatherKeyStyle.Render(k+": ") + fmt.Sprint(v)
}

// RenderMessage draws a text response wrapped to width.
func RenderMessage(m display.Message, width int) string {
	if width <= 0 {
		return MessageStyle.Render(m.Text)
	}
	return MessageStyle.Width(width).Render(m.Text)
}

// RenderTranscription draws what the assistant heard.
func RenderTranscription(text string) string {
	if text == "" {
		return ""
	}
	return TranscriptionStyle.Render("“" + text + "”")
}

// RenderMusic draws the music overlay.
func RenderMusic(trackID string) string {
	if trackID == "" {
		return ""
	}
	return MusicStyle.Render("♪ " + trackID)
}

// RenderToggles draws the settings panel, one toggle per line.
func RenderToggles(toggles []Toggle) string {
	var lines []string
	for _, t := range toggles {
		var state string
		switch {
		case t.Disabled:
			state = ToggleDisabledStyle.Render("[off]")
		case t.On:
			state = ToggleOnStyle.Render("[on] ")
		default:
			state = ToggleOffStyle.Render("[off]")
		}
		label := t.Label
		if t.Disabled {
			label = ToggleDisabledStyle.Render(label)
		}
		lines = append(lines, FooterKeyStyle.Render(t.Key)+" "+state+" "+label)
	}
	return strings.Join(lines, "\n")
}

// RenderLatency draws per-stage durations for the recorded stages and, once
// complete, the total.
func RenderLatency(r latency.Report, recorded func(latency.Stage) bool, complete bool) string {
	var parts []string
	for _, s := range latency.Stages {
		if recorded != nil && recorded(s) {
			parts = append(parts, fmt.Sprintf("%s %s", s, FormatDuration(r.Stage(s))))
		}
	}
	if len(parts) == 0 && !complete {
		return ""
	}
	line := LatencyStyle.Render(strings.Join(parts, " · "))
	if complete {
		total := LatencyTotalStyle.Render("total " + FormatDuration(r.Total))
		if len(parts) == 0 {
			return total
		}
		line += LatencyStyle.Render(" · ") + total
	}
	return line
}

// FormatDuration renders d in milliseconds below a second and seconds above.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
