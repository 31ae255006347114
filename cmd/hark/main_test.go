package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/fragment"
	"github.com/gregiteen/ai-devices/internal/remote"
	"github.com/gregiteen/ai-devices/internal/settings"
	"github.com/gregiteen/ai-devices/internal/store"
	"github.com/gregiteen/ai-devices/internal/stream"
)

type replayStream struct {
	frags []string
	end   error
}

func (s *replayStream) Next(context.Context) (fragment.Raw, error) {
	if len(s.frags) == 0 {
		if s.end != nil {
			return nil, s.end
		}
		return nil, io.EOF
	}
	raw, err := fragment.Parse([]byte(s.frags[0]))
	s.frags = s.frags[1:]
	return raw, err
}

func (s *replayStream) Close() error { return nil }

type replayAction struct {
	stream *replayStream
	last   remote.Request
}

func (a *replayAction) Submit(_ context.Context, req remote.Request) (remote.Stream, error) {
	a.last = req
	return a.stream, nil
}

func testRuntime(action remote.Action) *runtime {
	return &runtime{
		cfg: config.Config{Features: config.FeatureConfig{
			TTSToggle: true, InternetToggle: true, PhotosToggle: false, LudicrousMode: true,
		}},
		logger:   zap.NewNop(),
		settings: settings.New(),
		reducer:  stream.NewReducer(),
		action:   action,
	}
}

func TestAskWeather(t *testing.T) {
	action := &replayAction{stream: &replayStream{frags: []string{
		`{"transcription":"weather in oslo"}`,
		`{"weather":"{\"location\":\"Oslo\",\"temperature\":\"4°C\"}"}`,
	}}}
	rt := testRuntime(action)

	req := remote.NewSubmit("weather in oslo", rt.settings.Snapshot(), rt.gating())
	comp, err := ask(context.Background(), rt.reducer, rt.action, req)
	require.NoError(t, err)
	assert.False(t, comp.Aborted())
	assert.False(t, action.last.Gating.PhotosAvailable)

	a := newAnswer(comp)
	assert.Equal(t, "weather", a.Primary)
	assert.Equal(t, "weather in oslo", a.Transcription)
	assert.Contains(t, a.Latency, "transcription")
	assert.Contains(t, a.Latency, "total")

	text, err := formatAnswer(a, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "weather: location = Oslo")

	js, err := formatAnswer(a, "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, "completed", decoded["status"])

	y, err := formatAnswer(a, "yaml")
	require.NoError(t, err)
	assert.Contains(t, y, "primary: weather")
}

func TestAskAborted(t *testing.T) {
	action := &replayAction{stream: &replayStream{
		frags: []string{`{"result":"partial answer"}`},
		end:   errors.New("connection reset"),
	}}
	rt := testRuntime(action)

	comp, err := ask(context.Background(), rt.reducer, rt.action, remote.Request{Cmd: "submit", Text: "x"})
	require.NoError(t, err)
	require.True(t, comp.Aborted())

	a := newAnswer(comp)
	assert.Equal(t, "aborted", a.Status)
	assert.Equal(t, "partial answer", a.Message)

	text, err := formatAnswer(a, "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "partial answer\n"))
	assert.Contains(t, text, "error:")
}

func TestFormatUnknown(t *testing.T) {
	_, err := formatAnswer(answer{}, "xml")
	assert.Error(t, err)
}

func TestToggleSetting(t *testing.T) {
	rt := testRuntime(nil)

	on, err := toggleSetting(rt, "tts")
	require.NoError(t, err)
	assert.True(t, on)

	_, err = toggleSetting(rt, "photos")
	assert.Error(t, err, "photos is not offered by this config")

	_, err = toggleSetting(rt, "ludicrous")
	require.NoError(t, err)
	assert.False(t, rt.settings.Get(settings.TTS))

	_, err = toggleSetting(rt, "tts")
	assert.Error(t, err, "tts is held off while ludicrous")

	_, err = toggleSetting(rt, "warp")
	assert.Error(t, err)
}

func TestMCPServerBuilds(t *testing.T) {
	rt := testRuntime(&replayAction{stream: &replayStream{}})
	assert.NotNil(t, newMCPServer(rt))
}

func TestAnswerYAMLKeepsNumbers(t *testing.T) {
	action := &replayAction{stream: &replayStream{frags: []string{
		`{"weather":{"location":"Lima","temperature":21.5,"humidity":80}}`,
	}}}
	rt := testRuntime(action)

	comp, err := ask(context.Background(), rt.reducer, rt.action, remote.Request{Cmd: "submit", Text: "x"})
	require.NoError(t, err)

	y, err := formatAnswer(newAnswer(comp), "yaml")
	require.NoError(t, err)
	assert.Contains(t, y, "temperature: 21.5")
	assert.Contains(t, y, "humidity: 80")
	assert.NotContains(t, y, `"21.5"`)

	js, err := formatAnswer(newAnswer(comp), "json")
	require.NoError(t, err)
	assert.Contains(t, js, `"temperature": 21.5`)
}

// heldStream replays frags, then waits for release before ending.
type heldStream struct {
	frags   []string
	reached chan struct{}
	release chan struct{}
}

func (s *heldStream) Next(ctx context.Context) (fragment.Raw, error) {
	if len(s.frags) > 0 {
		raw, err := fragment.Parse([]byte(s.frags[0]))
		s.frags = s.frags[1:]
		return raw, err
	}
	if s.reached != nil {
		close(s.reached)
		s.reached = nil
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, io.EOF
}

func (s *heldStream) Close() error { return nil }

// queueAction hands out streams in submission order.
type queueAction struct {
	mu      sync.Mutex
	streams []remote.Stream
}

func (a *queueAction) Submit(context.Context, remote.Request) (remote.Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.streams[0]
	a.streams = a.streams[1:]
	return s, nil
}

type toolReply struct {
	Result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
}

func callAsk(srv *server.MCPServer, id int, text string) (toolReply, error) {
	var reply toolReply
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": "ask", "arguments": map[string]any{"text": text}},
	})
	if err != nil {
		return reply, err
	}
	data, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	if err != nil {
		return reply, err
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return reply, err
	}
	if len(reply.Result.Content) != 1 {
		return reply, fmt.Errorf("unexpected reply %s", data)
	}
	return reply, nil
}

func TestMCPConcurrentAsksStayIsolated(t *testing.T) {
	first := &heldStream{
		frags:   []string{`{"result":"answer A"}`},
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	reached := first.reached
	second := &replayStream{frags: []string{`{"time":"10:15"}`}}
	rt := testRuntime(&queueAction{streams: []remote.Stream{first, second}})
	srv := newMCPServer(rt)

	type result struct {
		reply toolReply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := callAsk(srv, 1, "question A")
		done <- result{reply, err}
	}()

	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatal("first call never streamed")
	}

	b, err := callAsk(srv, 2, "question B")
	require.NoError(t, err)
	require.False(t, b.Result.IsError, b.Result.Content[0].Text)
	var ansB answer
	require.NoError(t, json.Unmarshal([]byte(b.Result.Content[0].Text), &ansB))
	assert.Equal(t, "time", ansB.Primary)
	assert.Equal(t, "10:15", ansB.Time)

	close(first.release)
	var a toolReply
	select {
	case r := <-done:
		require.NoError(t, r.err)
		a = r.reply
	case <-time.After(2 * time.Second):
		t.Fatal("first call did not finish")
	}
	require.False(t, a.Result.IsError, a.Result.Content[0].Text)
	var ansA answer
	require.NoError(t, json.Unmarshal([]byte(a.Result.Content[0].Text), &ansA))
	assert.Equal(t, "completed", ansA.Status)
	assert.Equal(t, "answer A", ansA.Message)
	assert.Empty(t, ansA.Time)
	assert.NotEqual(t, ansA.Session, ansB.Session)
}

func TestHistoryFormats(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	rt := testRuntime(&replayAction{stream: &replayStream{
		frags: []string{`{"transcription":"hi"}`, `{"result":"hello"}`},
	}})
	rt.reducer = stream.NewReducer(stream.OnComplete(func(c stream.Completion) {
		require.NoError(t, st.RecordLatency(store.FromCompletion(c)))
	}))
	comp, err := ask(context.Background(), rt.reducer, rt.action, remote.Request{Cmd: "submit", Text: "hi"})
	require.NoError(t, err)

	records, err := st.RecentLatency(5)
	require.NoError(t, err)
	entries := newHistory(records)
	require.Len(t, entries, 1)
	assert.Equal(t, comp.SessionID, entries[0].Session)
	assert.Equal(t, "completed", entries[0].Outcome)
	assert.Contains(t, entries[0].Latency, "transcription")
	assert.Contains(t, entries[0].Latency, "result")

	text, err := formatHistory(entries, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "completed")
	assert.Contains(t, text, "transcription ")
	assert.Contains(t, text, "total ")

	y, err := formatHistory(entries, "yaml")
	require.NoError(t, err)
	assert.Contains(t, y, "session: "+comp.SessionID)

	empty, err := formatHistory(nil, "text")
	require.NoError(t, err)
	assert.Equal(t, "no requests recorded\n", empty)

	_, err = formatHistory(entries, "xml")
	assert.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HARK_CONFIG", path)
	t.Setenv("HARK_UI_MIN_WIDTH", "72")

	got, err := writeConfig(false)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "min_width = 72")

	_, err = writeConfig(false)
	assert.Error(t, err, "existing file is kept")

	_, err = writeConfig(true)
	assert.NoError(t, err)
}
