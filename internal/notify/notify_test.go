package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel(KindSecurityBlock), "vhp:vehicle:VIN-10002")
	defer sub.Close()
	_, err := sub.Receive(ctx) // подтверждение подписки
	require.NoError(t, err)
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := Event{
		Kind:      KindSecurityBlock,
		RunID:     "run-1",
		VehicleID: "VIN-10002",
		Status:    "BLOCKED",
		Alerts:    []string{"Suspicious Out-of-Hours Booking"},
		At:        time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewRedisPublisher(rdb).Publish(ctx, ev))

	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)

		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev.RunID, got.RunID)
		assert.Equal(t, ev.Alerts, got.Alerts)
	}
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "vhp:security:blocked", Channel(KindSecurityBlock))
	assert.Equal(t, "vhp:notifications:driver", Channel(KindDriverNotification))
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), Event{Kind: KindDriverNotification, VehicleID: "VIN-10001", Status: "COMPLIANT"}))

	entries := logs.FilterMessage("event dispatched").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "VIN-10001", entries[0].ContextMap()["vehicle_id"])
}
