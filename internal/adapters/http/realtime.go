package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"whistle/internal/adapters/http/middleware"
	"whistle/internal/adapters/realtime"
	"whistle/internal/adapters/storage"
	"whistle/internal/application/projections"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	maxTopics    = 8
)

// Same-origin only: gorilla's default CheckOrigin rejects foreign Origin headers.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var errUnknownTopic = errors.New("unknown topic")

// authorizeTopic reports whether the session may read topic.
//
//	notifications:<id>  only the user themselves
//	thread:<id>         thread participants
//	booking:<id>        anyone allowed to view the booking
func authorizeTopic(ctx context.Context, sess middleware.Session, topic string) error {
	kind, key, ok := realtime.SplitTopic(topic)
	if !ok {
		return errUnknownTopic
	}
	switch kind {
	case "notifications":
		if key != sess.ProfileID {
			return projections.ErrNotVisible
		}
		return nil
	case "thread":
		_, err := stores.Threads.GetParticipant(ctx, key, sess.ProfileID)
		if errors.Is(err, storage.ErrNotFound) {
			return projections.ErrNotVisible
		}
		return err
	case "booking":
		_, err := projections.QueryGetBooking(ctx, projections.GetBookingQuery{
			BookingID: key,
			Viewer:    viewerOf(sess),
		}, projections.GetBookingDeps{BookingStore: stores.Bookings, OfferStore: stores.Offers})
		return err
	default:
		return errUnknownTopic
	}
}

// handleRealtime handles GET /api/realtime?topic=...&topic=... as a WebSocket.
// With no topic the caller's own notification feed is used.
func handleRealtime(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		topics = []string{realtime.NotificationsTopic(sess.ProfileID)}
	}
	if len(topics) > maxTopics {
		badRequest(w, "too many topics")
		return
	}
	for _, topic := range topics {
		if err := authorizeTopic(r.Context(), sess, topic); err != nil {
			if errors.Is(err, errUnknownTopic) {
				badRequest(w, err.Error()+": "+topic)
				return
			}
			handleError(w, err)
			return
		}
	}

	// Subscribe before upgrading so nothing published after the handshake is missed.
	events := make(chan realtime.Event, realtime.DefaultBuffer)
	done := make(chan struct{})
	defer close(done)
	for _, topic := range topics {
		ch, unsubscribe := app.Hub.Subscribe(topic)
		defer unsubscribe()
		go forward(ch, events, done)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("realtime_event", "event", "upgrade_failed", "profile_id", sess.ProfileID, "error", err.Error())
		return
	}
	defer conn.Close()

	slog.Info("realtime_event", "event", "connected", "profile_id", sess.ProfileID, "topics", topics)
	gone := make(chan struct{})
	go readPump(conn, gone)
	writePump(conn, events, gone)
	slog.Info("realtime_event", "event", "disconnected", "profile_id", sess.ProfileID)
}

// forward copies one subscription into the connection's merged event stream.
func forward(in <-chan realtime.Event, out chan<- realtime.Event, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// readPump discards client frames and keeps the read deadline fresh on pong.
// It closes gone when the peer goes away.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan realtime.Event, gone <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
