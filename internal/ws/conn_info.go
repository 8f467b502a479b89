package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"showroom-chat/internal/observability"
)

// ConnInfo identifies one websocket connection for lifecycle events. It is
// captured at upgrade time and carried until disconnect.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// newConnInfo snapshots the request's identity and correlation headers.
func newConnInfo(userID int, r *http.Request, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(r),
		IP:          observability.IPFromRequest(r),
		RequestID:   observability.RequestIDFromRequest(r),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
