package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupTestHub(t *testing.T) (*Hub, *services.SessionService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Session{}))

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sessions := services.NewSessionService(db, logger)
	return NewHub(sessions, logger), sessions, db
}

func seedSession(t *testing.T, sessions *services.SessionService, id string) {
	t.Helper()
	now := time.Now()
	assert.NoError(t, sessions.Upsert(&models.Session{
		SessionID:    id,
		IPAddress:    "203.0.113.0",
		DeviceType:   "desktop",
		IsActive:     true,
		StartedAt:    now,
		LastActivity: now,
	}))
}

func TestHandleSignal(t *testing.T) {
	hub, sessions, db := setupTestHub(t)
	seedSession(t, sessions, "sess-1")

	t.Run("Watching attaches content to the session", func(t *testing.T) {
		hub.HandleSignal(Signal{
			Type:        SignalWatching,
			SessionID:   "sess-1",
			ContentType: models.ContentAnime,
			ContentID:   "one-piece",
			Title:       "One Piece",
			Episode:     "1089",
		})

		var session models.Session
		assert.NoError(t, db.Where("session_id = ?", "sess-1").First(&session).Error)
		assert.Equal(t, models.ContentAnime, session.ContentType)
		assert.Equal(t, "one-piece", session.ContentID)
		assert.Equal(t, "1089", session.Episode)
		assert.True(t, session.Watching())
	})

	t.Run("Pageview clears the content", func(t *testing.T) {
		hub.HandleSignal(Signal{Type: SignalPageview, SessionID: "sess-1", Page: "/home"})

		var session models.Session
		assert.NoError(t, db.Where("session_id = ?", "sess-1").First(&session).Error)
		assert.False(t, session.Watching())
		assert.Equal(t, "/home", session.CurrentPage)
	})

	t.Run("Session end marks the row inactive", func(t *testing.T) {
		hub.HandleSignal(Signal{Type: SignalSessionEnd, SessionID: "sess-1"})

		var session models.Session
		assert.NoError(t, db.Where("session_id = ?", "sess-1").First(&session).Error)
		assert.False(t, session.IsActive)
	})

	t.Run("Missing session id is ignored", func(t *testing.T) {
		hub.HandleSignal(Signal{Type: SignalWatching, ContentType: models.ContentDrama, ContentID: "x"})

		var count int64
		db.Model(&models.Session{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Unknown signal type is ignored", func(t *testing.T) {
		hub.HandleSignal(Signal{Type: "celebrate", SessionID: "sess-1"})
	})
}

func TestTriggerBroadcastCoalesces(t *testing.T) {
	hub, _, _ := setupTestHub(t)

	// With no consumer the second trigger must not block.
	done := make(chan struct{})
	go func() {
		hub.TriggerBroadcast()
		hub.TriggerBroadcast()
		hub.TriggerBroadcast()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TriggerBroadcast blocked")
	}
}

func TestHubBroadcastsToDashboardClients(t *testing.T) {
	hub, sessions, _ := setupTestHub(t)
	seedSession(t, sessions, "sess-ws")
	assert.NoError(t, sessions.SetWatching("sess-ws", models.ContentDrama, "desc", "Descendants of the Sun", "3", ""))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, logger)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Registration seeds the client with an immediate snapshot.
	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	assert.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageViewerUpdate, msg.Type)

	update, ok := msg.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(1), update["count"])

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// An inbound signal round-trips through the store and triggers a push.
	assert.NoError(t, conn.WriteJSON(Signal{Type: SignalSessionEnd, SessionID: "sess-ws"}))
	assert.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageViewerUpdate, msg.Type)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
