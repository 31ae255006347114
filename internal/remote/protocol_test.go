package remote

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gregiteen/ai-devices/internal/settings"
)

func TestRequestMarshal(t *testing.T) {
	req := NewSubmit("what time is it", settings.Snapshot{UseTTS: true}, Gating{TTSAvailable: true})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"cmd":"submit"`, `"text":"what time is it"`, `"useTTS":true`, `"ttsAvailable":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("request %s missing %s", s, want)
		}
	}
	if strings.Contains(s, `"audio"`) {
		t.Errorf("empty audio should be omitted: %s", s)
	}
}

func TestRequestAudioIsBase64(t *testing.T) {
	req := Request{Cmd: "submit", Audio: []byte{0x01, 0x02}, MimeType: "audio/wav"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"audio":"AQI="`) {
		t.Errorf("audio = %s", data)
	}
}

func TestResponseError(t *testing.T) {
	j := `{"ok":false,"error":"rate limited"}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	err := checkResponse(resp)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %q", err)
	}
}

func TestDecodeFragmentEnvelope(t *testing.T) {
	raw, err := decodeEnvelope([]byte(`{"event":"fragment","fragment":{"transcription":"hello"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["transcription"]) != `"hello"` {
		t.Errorf("transcription = %s", raw["transcription"])
	}
}

func TestDecodeEmptyFragment(t *testing.T) {
	raw, err := decodeEnvelope([]byte(`{"event":"fragment"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("raw = %v, want empty", raw)
	}
}

func TestDecodeDoneEnvelope(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"event":"done"}`))
	if err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestDecodeErrorEnvelope(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"event":"error","message":"upstream timeout"}`))
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if re.Message != "upstream timeout" {
		t.Errorf("message = %q", re.Message)
	}
}

func TestDecodeUnknownEnvelope(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"event":"heartbeat"}`))
	if !errors.Is(err, errSkip) {
		t.Errorf("err = %v, want errSkip", err)
	}
}

func TestNewAction(t *testing.T) {
	a, err := New("tcp", "127.0.0.1:9000")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sa, ok := a.(*SocketAction); !ok || sa.Address != "127.0.0.1:9000" {
		t.Errorf("action = %#v", a)
	}

	a, err = New("unix", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sa := a.(*SocketAction); sa.Address != SocketPath() {
		t.Errorf("address = %q, want default socket", sa.Address)
	}

	if _, err := New("carrier-pigeon", "x"); err == nil {
		t.Error("expected error for unknown network")
	}
}
