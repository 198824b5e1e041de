package status

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubClose(t *testing.T) {
	h := NewHub()
	h.Info("hello %s", "there")
	h.Close()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "hub did not stop")
	}

	assert.NotPanics(t, func() {
		h.Progress(0.5, "after close")
		h.Error("after close")
		h.Close()
	})
	assert.Equal(t, 0, h.Clients())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	h := NewHub()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	h.Info("first")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "first", msg.Message)
	assert.Equal(t, INFO, msg.Type)

	h.Close()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
