package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"whistle/internal/adapters/storage"
	"whistle/internal/adapters/storage/storagetest"
	domain "whistle/internal/domain/message"
)

func setup(t *testing.T) *SQLiteStore {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.SeedProfile(t, db, "c1", "coach")
	storagetest.SeedReferee(t, db, "r1", "London")
	storagetest.SeedBooking(t, db, "b1", "c1", "confirmed", "2026-09-05", "10:00")
	return NewSQLiteStore(db)
}

func TestSQLiteStore_EnsureThreadIsIdempotent(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	first, err := store.EnsureThread(ctx, domain.Thread{ID: "t1", BookingID: "b1", CreatedAt: storagetest.Now})
	if err != nil {
		t.Fatalf("EnsureThread: %v", err)
	}
	second, err := store.EnsureThread(ctx, domain.Thread{ID: "t2", BookingID: "b1", CreatedAt: storagetest.Now})
	if err != nil {
		t.Fatalf("EnsureThread again: %v", err)
	}
	if first.ID != "t1" || second.ID != "t1" {
		t.Errorf("threads = %s, %s, want both t1", first.ID, second.ID)
	}
	if _, err := store.GetThread(ctx, "t2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetThread(t2) = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ParticipantsAndMessages(t *testing.T) {
	store := setup(t)
	ctx := context.Background()
	thread, _ := store.EnsureThread(ctx, domain.Thread{ID: "t1", BookingID: "b1", CreatedAt: storagetest.Now})

	for _, id := range []string{"c1", "r1", "c1"} {
		if err := store.AddParticipant(ctx, domain.Participant{ThreadID: thread.ID, ProfileID: id, JoinedAt: storagetest.Now}); err != nil {
			t.Fatalf("AddParticipant %s: %v", id, err)
		}
	}
	parts, err := store.ListParticipants(ctx, thread.ID)
	if err != nil || len(parts) != 2 {
		t.Fatalf("ListParticipants = %+v, %v", parts, err)
	}

	msgs := []domain.Message{
		{ID: "m1", ThreadID: "t1", Kind: domain.KindSystem, Body: "Booking confirmed", CreatedAt: storagetest.Now},
		{ID: "m2", ThreadID: "t1", SenderID: "c1", Kind: domain.KindUser, Body: "Car park is behind the clubhouse", CreatedAt: storagetest.Now.Add(time.Minute)},
		{ID: "m3", ThreadID: "t1", SenderID: "r1", Kind: domain.KindUser, Body: "Thanks", CreatedAt: storagetest.Now.Add(2 * time.Minute)},
	}
	for _, m := range msgs {
		if err := store.SaveMessage(ctx, m); err != nil {
			t.Fatalf("SaveMessage %s: %v", m.ID, err)
		}
	}

	recent, err := store.ListMessages(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "m2" || recent[1].ID != "m3" {
		t.Errorf("ListMessages(2) = %+v, want m2 then m3", recent)
	}

	sums, err := store.ListThreadSummaries(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("ListThreadSummaries: %v", err)
	}
	if len(sums) != 1 || sums[0].LastMessage.ID != "m3" || sums[0].UnreadCount != 2 {
		t.Errorf("summary for r1 = %+v, want last m3 with 2 unread", sums)
	}

	if err := store.MarkRead(ctx, "t1", "r1", storagetest.Now.Add(3*time.Minute)); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	sums, _ = store.ListThreadSummaries(ctx, "r1", 10)
	if sums[0].UnreadCount != 0 {
		t.Errorf("unread after MarkRead = %d, want 0", sums[0].UnreadCount)
	}
	p, err := store.GetParticipant(ctx, "t1", "r1")
	if err != nil || p.LastReadAt.IsZero() {
		t.Errorf("GetParticipant = %+v, %v", p, err)
	}
	if _, err := store.GetParticipant(ctx, "t1", "stranger"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetParticipant(stranger) = %v, want ErrNotFound", err)
	}
}
