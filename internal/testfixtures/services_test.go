package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

func TestServiceFactory_ScheduleRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	harness := NewSQLiteHarness(t)
	alice := NewUserFixture(WithUserID("alice"), WithUserName("Alice"))
	bob := NewUserFixture(WithUserID("bob"), WithUserName("Bob"))
	harness.Seed(t, alice, bob)

	factory := NewServiceFactory()
	calendar := factory.NewCalendarService(harness.Store)

	start := ReferenceTime().Add(2 * time.Hour)
	request, err := calendar.CreateScheduleRequest(ctx, application.CreateScheduleRequestParams{
		Principal:    alice.Principal(),
		TargetUserID: bob.ID,
		Draft:        map[string]any{"title": "Sync", "startsAt": start.Format(time.RFC3339)},
	})
	require.NoError(t, err)
	assert.Equal(t, persistence.RequestStatusPending, request.Status)

	thread, err := harness.Threads.FindDirectThread(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	messages, err := harness.Threads.ListMessages(ctx, thread.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Body, "Sync")

	decided, err := calendar.UpdateScheduleRequestStatus(ctx, application.DecideScheduleRequestParams{
		Principal: bob.Principal(),
		RequestID: request.ID,
		Status:    "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, persistence.RequestStatusApproved, decided.Status)

	events, err := harness.Calendar.ListEvents(ctx, persistence.IntervalFilter{OwnerIDs: []string{alice.ID, bob.ID}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, "Sync", event.Title)
		assert.True(t, event.StartsAt.Equal(start))
		assert.True(t, event.EndsAt.Equal(start.Add(application.DefaultScheduleRequestDuration)))
		assert.Equal(t, persistence.EventSourceRequest, event.Source)
	}

	notifications, err := harness.Notifications.ListNotifications(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, application.EventScheduleRequestDecided, notifications[0].Kind)

	assert.Len(t, factory.Publisher.OfType(application.EventScheduleRequestCreated), 1)
	assert.Len(t, factory.Publisher.OfType(application.EventScheduleRequestDecided), 1)
}

func TestServiceFactory_DeskReservationConflict(t *testing.T) {
	ctx := context.Background()
	harness := NewSQLiteHarness(t)
	alice := NewUserFixture(WithUserID("alice"))
	bob := NewUserFixture(WithUserID("bob"))
	harness.Seed(t, alice, bob)

	desk := NewDeskFixture(WithDeskID("d1"), WithDeskLabel("D-1"))
	require.NoError(t, harness.Desks.CreateDesk(ctx, desk.Persistence()))

	factory := NewServiceFactory()
	desks := factory.NewDeskService(harness.Store)

	first, err := desks.ReserveDesk(ctx, application.ReserveDeskParams{Principal: alice.Principal(), DeskID: desk.ID})
	require.NoError(t, err)
	assert.True(t, first.EndsAt.Equal(ReferenceTime().Add(application.DefaultReservationWindow)))
	assert.Contains(t, factory.IDGenerator.Issued(), first.ID)

	later, laterEnd := factory.Clock.Window(time.Hour, time.Hour)
	_, err = desks.ReserveDesk(ctx, application.ReserveDeskParams{Principal: bob.Principal(), DeskID: desk.ID, StartsAt: &later, EndsAt: &laterEnd})
	assert.ErrorIs(t, err, application.ErrConflict)

	presence, err := harness.Presence.GetPresence(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, persistence.LocationOffice, presence.Location)
	require.NotNil(t, presence.DeskID)
	assert.Equal(t, desk.ID, *presence.DeskID)

	_, err = desks.CancelReservation(ctx, alice.Principal(), first.ID)
	require.NoError(t, err)
	second, err := desks.ReserveDesk(ctx, application.ReserveDeskParams{Principal: bob.Principal(), DeskID: desk.ID, StartsAt: &later, EndsAt: &laterEnd})
	require.NoError(t, err)
	assert.Equal(t, factory.IDGenerator.Last(), second.ID)
	assert.Len(t, factory.Publisher.OfType(application.EventDeskReservationsChanged), 3)
}
