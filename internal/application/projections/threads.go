package projections

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"whistle/internal/adapters/storage"
	domainMessage "whistle/internal/domain/message"
)

// Thread page sizes.
const (
	DefaultMessageLimit = 200
	MaxMessageLimit     = 500
	DefaultThreadLimit  = 50
)

// markdown renders message bodies; raw HTML in the input is escaped.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// MessageView is a message with its rendered body.
type MessageView struct {
	domainMessage.Message
	HTML string `json:"html"`
}

// GetThreadQuery carries query parameters.
type GetThreadQuery struct {
	ThreadID string
	ViewerID string
	Limit    int
}

// GetThreadResult carries the thread, its participants and messages oldest first.
type GetThreadResult struct {
	Thread       domainMessage.Thread        `json:"thread"`
	Participants []domainMessage.Participant `json:"participants"`
	Messages     []MessageView               `json:"messages"`
}

// GetThreadDeps holds dependencies for GetThread.
type GetThreadDeps struct {
	ThreadStore ThreadStore
	Now         func() time.Time
}

// QueryGetThread returns a thread for one of its participants and marks it read.
// PRE: ViewerID participates in ThreadID
// POST: Messages oldest first; participant LastReadAt = now
func QueryGetThread(ctx context.Context, query GetThreadQuery, deps GetThreadDeps) (GetThreadResult, error) {
	if _, err := deps.ThreadStore.GetParticipant(ctx, query.ThreadID, query.ViewerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return GetThreadResult{}, domainMessage.ErrNotParticipant
		}
		return GetThreadResult{}, fmt.Errorf("get participant: %w", err)
	}
	thread, err := deps.ThreadStore.GetThread(ctx, query.ThreadID)
	if err != nil {
		return GetThreadResult{}, err
	}
	participants, err := deps.ThreadStore.ListParticipants(ctx, thread.ID)
	if err != nil {
		return GetThreadResult{}, fmt.Errorf("list participants: %w", err)
	}
	messages, err := deps.ThreadStore.ListMessages(ctx, thread.ID, clampLimit(query.Limit, DefaultMessageLimit, MaxMessageLimit))
	if err != nil {
		return GetThreadResult{}, fmt.Errorf("list messages: %w", err)
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{Message: m, HTML: RenderMessage(m)})
	}

	if err := deps.ThreadStore.MarkRead(ctx, thread.ID, query.ViewerID, deps.Now()); err != nil {
		slog.Warn("message_event", "event", "mark_read_failed", "thread_id", thread.ID, "error", err)
	}
	return GetThreadResult{Thread: thread, Participants: participants, Messages: views}, nil
}

// RenderMessage renders a user message body from Markdown to safe HTML.
// System messages are rendered as a single escaped paragraph.
func RenderMessage(m domainMessage.Message) string {
	var buf bytes.Buffer
	if m.IsSystem() {
		buf.WriteString("<p>")
		buf.WriteString(html.EscapeString(m.Body))
		buf.WriteString("</p>")
		return buf.String()
	}
	if err := markdown.Convert([]byte(m.Body), &buf); err != nil {
		return "<p>" + html.EscapeString(m.Body) + "</p>"
	}
	return buf.String()
}

// ThreadListItem is one entry in the viewer's thread list.
type ThreadListItem struct {
	ThreadID     string                 `json:"thread_id"`
	BookingID    string                 `json:"booking_id"`
	LastMessage  *domainMessage.Message `json:"last_message,omitempty"`
	UnreadCount  int                    `json:"unread_count"`
	LastActivity time.Time              `json:"last_activity"`
}

// ListThreadsDeps holds dependencies for ListThreads.
type ListThreadsDeps struct {
	ThreadStore ThreadStore
}

// QueryListThreads returns the viewer's threads, most recent activity first.
func QueryListThreads(ctx context.Context, viewerID string, deps ListThreadsDeps) ([]ThreadListItem, error) {
	summaries, err := deps.ThreadStore.ListThreadSummaries(ctx, viewerID, DefaultThreadLimit)
	if err != nil {
		return nil, err
	}
	items := make([]ThreadListItem, 0, len(summaries))
	for _, s := range summaries {
		item := ThreadListItem{
			ThreadID:     s.Thread.ID,
			BookingID:    s.Thread.BookingID,
			UnreadCount:  s.UnreadCount,
			LastActivity: s.Thread.CreatedAt,
		}
		if s.LastMessage.ID != "" {
			last := s.LastMessage
			item.LastMessage = &last
			item.LastActivity = last.CreatedAt
		}
		items = append(items, item)
	}
	return items, nil
}
