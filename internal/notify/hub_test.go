package notify

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubBroadcastsToClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())

	router := gin.New()
	router.GET("/ws", hub.Handler())
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(NewSystem("Nozzle Offline", "Nozzle D00001-A1 went silent", LevelError, map[string]any{"nozzle_id": "D00001-A1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Notification
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "system_notification", got.Type)
	assert.Equal(t, "Nozzle Offline", got.Title)
	assert.Equal(t, LevelError, got.NotificationType)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "D00001-A1", got.Data["nozzle_id"])
}

func TestRecorderDrain(t *testing.T) {
	r := NewRecorder(4)
	r.Notify(NewSystem("a", "b", LevelInfo, nil))
	r.Notify(NewSystem("c", "d", LevelInfo, nil))

	got := r.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Empty(t, r.Drain())
}
