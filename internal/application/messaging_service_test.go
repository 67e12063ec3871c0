package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/hybrid-work/internal/persistence"
)

func newMessagingHarness() (*MessagingService, *threadRepoStub, *publisherStub) {
	threads := newThreadRepoStub()
	publisher := &publisherStub{}
	users := newUserRepoStub(
		persistence.User{ID: "alice", Name: "Alice"},
		persistence.User{ID: "bob", Name: "Bob"},
		persistence.User{ID: "carol", Name: "Carol"},
	)
	svc := NewMessagingService(MessagingServiceDeps{
		Threads:     threads,
		Users:       users,
		Transactor:  &txStub{},
		Publisher:   publisher,
		IDGenerator: sequentialIDs("th"),
		Now:         fixedNow(calendarNow),
	})
	return svc, threads, publisher
}

func TestMessagingService_CreateThread(t *testing.T) {
	alice := Principal{UserID: "alice"}

	t.Run("direct messages are reused", func(t *testing.T) {
		svc, threads, _ := newMessagingHarness()
		first, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "DM", ParticipantIDs: []string{"bob"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: Principal{UserID: "bob"}, Type: "dm", ParticipantIDs: []string{"alice", "bob"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID != second.ID || len(threads.threads) != 1 {
			t.Fatalf("expected the same DM thread, got %s and %s", first.ID, second.ID)
		}
		if len(first.Participants) != 2 {
			t.Fatalf("expected two participants, got %#v", first.Participants)
		}
	})

	t.Run("validates type and participant count", func(t *testing.T) {
		svc, _, _ := newMessagingHarness()
		_, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "DM", ParticipantIDs: []string{"bob", "carol"}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["participantIds"] == "" {
			t.Fatalf("expected participant validation error, got %v", err)
		}
		_, err = svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "CHANNEL"})
		if !errors.As(err, &vErr) || vErr.FieldErrors["type"] == "" {
			t.Fatalf("expected type validation error, got %v", err)
		}
	})

	t.Run("unknown participants are rejected", func(t *testing.T) {
		svc, _, _ := newMessagingHarness()
		_, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "GROUP", ParticipantIDs: []string{"ghost"}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("groups include the caller", func(t *testing.T) {
		svc, _, _ := newMessagingHarness()
		topic := " Launch "
		view, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "GROUP", ParticipantIDs: []string{"bob", "carol", "bob"}, Topic: &topic})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(view.ParticipantIDs) != 3 || view.ParticipantIDs[0] != "alice" {
			t.Fatalf("unexpected participants: %v", view.ParticipantIDs)
		}
		if view.Topic == nil || *view.Topic != "Launch" {
			t.Fatalf("unexpected topic: %v", view.Topic)
		}
	})
}

func TestMessagingService_Messages(t *testing.T) {
	svc, _, publisher := newMessagingHarness()
	alice := Principal{UserID: "alice"}
	thread, err := svc.CreateThread(context.Background(), CreateThreadParams{Principal: alice, Type: "DM", ParticipantIDs: []string{"bob"}})
	if err != nil {
		t.Fatalf("create thread failed: %v", err)
	}

	if _, err := svc.CreateMessage(context.Background(), CreateMessageParams{Principal: alice, ThreadID: thread.ID, Body: "  "}); err == nil {
		t.Fatalf("expected validation error for empty body")
	}
	if _, err := svc.CreateMessage(context.Background(), CreateMessageParams{Principal: Principal{UserID: "carol"}, ThreadID: thread.ID, Body: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-participant, got %v", err)
	}

	for _, body := range []string{"one", "two", "three"} {
		if _, err := svc.CreateMessage(context.Background(), CreateMessageParams{Principal: alice, ThreadID: thread.ID, Body: body}); err != nil {
			t.Fatalf("create message failed: %v", err)
		}
	}
	if len(publisher.events) != 3 || publisher.events[0].Type != EventMessageCreated || len(publisher.events[0].UserIDs) != 2 {
		t.Fatalf("unexpected published events: %#v", publisher.events)
	}

	messages, err := svc.ListMessages(context.Background(), ListMessagesParams{Principal: Principal{UserID: "bob"}, ThreadID: thread.ID, Take: 2})
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Body != "two" || messages[1].Body != "three" {
		t.Fatalf("expected the two newest messages ascending, got %#v", messages)
	}
	if _, err := svc.ListMessages(context.Background(), ListMessagesParams{Principal: Principal{UserID: "carol"}, ThreadID: thread.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-participant, got %v", err)
	}

	views, err := svc.ListThreads(context.Background(), Principal{UserID: "bob"})
	if err != nil {
		t.Fatalf("list threads failed: %v", err)
	}
	if len(views) != 1 || views[0].LatestMessage == nil || views[0].LatestMessage.Body != "three" {
		t.Fatalf("expected latest message preview, got %#v", views)
	}
}

func TestClampTake(t *testing.T) {
	cases := map[int]int{0: 50, -3: 1, 1: 1, 75: 75, 500: 200}
	for in, want := range cases {
		if got := clampTake(in); got != want {
			t.Fatalf("clampTake(%d) = %d, want %d", in, got, want)
		}
	}
}
