package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayTestServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for voice event")
		return nil
	}
}

func TestStartWithoutConfigurationFails(t *testing.T) {
	client := New("", "", zerolog.Nop())
	err := client.Start(context.Background(), Descriptor{WorkflowID: "wf"}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStartRequiresDescriptor(t *testing.T) {
	client := New("ws://127.0.0.1:1", "token", zerolog.Nop())
	err := client.Start(context.Background(), Descriptor{}, nil)
	require.Error(t, err)
}

func TestSessionRelaysEventsInOrder(t *testing.T) {
	startCh := make(chan startFrame, 1)
	authCh := make(chan string, 1)
	url := newGatewayTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		authCh <- r.Header.Get("Authorization")

		var start startFrame
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		startCh <- start

		frames := []map[string]any{
			{"type": "call-start"},
			{"type": "speech-start"},
			{"type": "transcript", "role": "assistant", "transcriptType": "partial", "transcript": "Hel"},
			{"type": "transcript", "role": "assistant", "transcriptType": "final", "transcript": "Hello"},
			{"type": "transcript", "role": "user", "transcriptType": "final", "transcript": "Hi"},
			{"type": "speech-end"},
			{"type": "status-update", "status": "ignored"},
			{"type": "error", "message": "tts hiccup"},
			{"type": "call-end"},
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		_, _, _ = conn.ReadMessage()
	})

	client := New(url, "web-token", zerolog.Nop())
	events, unsubscribe := client.Subscribe()
	defer unsubscribe()

	err := client.Start(context.Background(), Descriptor{WorkflowID: "wf_1"}, map[string]string{
		"username": "Ada",
		"userid":   "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer web-token", <-authCh)
	start := <-startCh
	assert.Equal(t, "start", start.Type)
	assert.Equal(t, "wf_1", start.WorkflowID)
	assert.Nil(t, start.Assistant)
	assert.Equal(t, map[string]string{"username": "Ada", "userid": "u1"}, start.VariableValues)

	assert.Equal(t, SessionStarted{}, nextEvent(t, events))
	assert.Equal(t, SpeechStarted{}, nextEvent(t, events))
	assert.Equal(t, Transcript{Speaker: SpeakerAssistant, Text: "Hel", Kind: Interim}, nextEvent(t, events))
	assert.Equal(t, Transcript{Speaker: SpeakerAssistant, Text: "Hello", Kind: Final}, nextEvent(t, events))
	assert.Equal(t, Transcript{Speaker: SpeakerCaller, Text: "Hi", Kind: Final}, nextEvent(t, events))
	assert.Equal(t, SpeechEnded{}, nextEvent(t, events))

	ev := nextEvent(t, events)
	perr, ok := ev.(ProviderError)
	require.True(t, ok, "got %T", ev)
	assert.EqualError(t, perr.Err, "tts hiccup")

	assert.Equal(t, SessionEnded{}, nextEvent(t, events))
	require.NoError(t, client.Close())
}

func TestStopSendsStopFrameAndEndsSession(t *testing.T) {
	gotStop := make(chan string, 1)
	url := newGatewayTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		var start startFrame
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]any{"type": "call-start"})

		var ctrl controlFrame
		if err := conn.ReadJSON(&ctrl); err != nil {
			return
		}
		gotStop <- ctrl.Type
	})

	client := New(url, "token", zerolog.Nop())
	events, unsubscribe := client.Subscribe()
	defer unsubscribe()

	assistant := &Assistant{ID: "interviewer", Name: "Interviewer"}
	require.NoError(t, client.Start(context.Background(), Descriptor{Assistant: assistant}, map[string]string{"questions": "- q"}))
	assert.Equal(t, SessionStarted{}, nextEvent(t, events))

	client.Stop()
	assert.Equal(t, "stop", <-gotStop)
	for {
		ev := nextEvent(t, events)
		if _, ok := ev.(ProviderError); ok {
			continue
		}
		assert.Equal(t, SessionEnded{}, ev)
		break
	}

	// повторный Stop без открытой сессии ничего не делает
	client.Stop()
	require.NoError(t, client.Close())
}

func TestUnsubscribedListenerDoesNotBlockReadLoop(t *testing.T) {
	url := newGatewayTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		var start startFrame
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		for i := 0; i < 200; i++ {
			if err := conn.WriteJSON(map[string]any{"type": "speech-start"}); err != nil {
				return
			}
		}
		_ = conn.WriteJSON(map[string]any{"type": "call-end"})
	})

	client := New(url, "token", zerolog.Nop())
	_, unsubscribe := client.Subscribe()
	unsubscribe()

	require.NoError(t, client.Start(context.Background(), Descriptor{WorkflowID: "wf"}, nil))
	require.NoError(t, client.Close())
}

func TestDecodeFrame(t *testing.T) {
	ev, err := decodeFrame([]byte(`{"type":"transcript","role":"system","transcriptType":"final","transcript":"note"}`))
	require.NoError(t, err)
	assert.Equal(t, Transcript{Speaker: SpeakerSystem, Text: "note", Kind: Final}, ev)

	_, err = decodeFrame([]byte(`{"type":"transcript","role":"robot","transcript":"x"}`))
	assert.Error(t, err)

	_, err = decodeFrame([]byte(`{}`))
	assert.Error(t, err)

	ev, err = decodeFrame([]byte(`{"type":"volume-level"}`))
	require.NoError(t, err)
	assert.Nil(t, ev)

	assert.Equal(t, "call-end", Name(SessionEnded{}))
}
