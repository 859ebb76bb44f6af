package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAuditService(t *testing.T) {
	db := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	service := NewAuditService(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Start(ctx)

	t.Run("Log Action", func(t *testing.T) {
		userID := uint(1)
		service.LogAction(&userID, "LOGIN", "admin", map[string]string{"source": "dashboard"}, "127.0.0.1")

		assert.Eventually(t, func() bool {
			var count int64
			db.Model(&models.AuditLog{}).Count(&count)
			return count == 1
		}, 2*time.Second, 10*time.Millisecond)

		var entry models.AuditLog
		assert.NoError(t, db.First(&entry).Error)
		assert.Equal(t, "LOGIN", entry.Action)
		assert.Equal(t, "admin", entry.EntityID)
		assert.Contains(t, entry.Details, "source")
		assert.Equal(t, "127.0.0.1", entry.IPAddress)
	})

	t.Run("Channel Full", func(t *testing.T) {
		// Not started: the channel backs up and the extra entry is dropped
		// without blocking the caller.
		stalled := NewAuditService(db, logger)
		for i := 0; i < 101; i++ {
			stalled.LogAction(nil, "LOGIN_FAILED", "ghost", nil, "127.0.0.1")
		}
	})
}
