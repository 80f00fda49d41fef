package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func TestSendStoresPushesAndPublishes(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	hub := realtime.NewHub(testutil.Logger())
	go hub.Run()
	defer hub.Stop()

	user := testutil.CreateCustomer(t, gdb, "c@example.com")

	client := &realtime.Client{ID: "c1", UserID: user.ID, Send: make(chan []byte, 4)}
	hub.RegisterClient(client)
	require.Eventually(t, func() bool { return hub.Connected(user.ID) == 1 }, time.Second, 10*time.Millisecond)

	sub := rdb.Subscribe(ctx, Channel(user.ID))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	svc := NewNotifyService(gdb, hub, rdb, testutil.Logger())
	svc.Send(ctx, user.ID, "New application", "/jobs/1")

	list, err := svc.List(ctx, user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New application", list[0].Message)
	assert.Equal(t, "/jobs/1", list[0].Link)

	select {
	case raw := <-client.Send:
		var ev map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, "notification", ev["type"])
	case <-time.After(time.Second):
		t.Fatal("no realtime push")
	}

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, "New application")
	case <-time.After(time.Second):
		t.Fatal("no redis publish")
	}
}

func TestSendWithoutTransports(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	user := testutil.CreateCustomer(t, gdb, "c@example.com")

	svc := NewNotifyService(gdb, nil, nil, testutil.Logger())
	svc.Send(ctx, user.ID, "hello", "")

	n, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	user := testutil.CreateCustomer(t, gdb, "c@example.com")
	other := testutil.CreateCustomer(t, gdb, "o@example.com")

	svc := NewNotifyService(gdb, nil, nil, testutil.Logger())
	svc.Send(ctx, user.ID, "one", "")
	svc.Send(ctx, user.ID, "two", "")

	list, err := svc.List(ctx, user.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	err = svc.MarkRead(ctx, other.ID, list[0].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.MarkRead(ctx, user.ID, list[0].ID))
	unread, err := svc.List(ctx, user.ID, true, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, svc.MarkRead(ctx, user.ID, uuid.New()), apperr.ErrNotFound)
}
