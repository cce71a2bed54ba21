package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/callummance/hibiki/bus"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//These tests need a running rethinkdb instance and are skipped unless HIBIKI_TEST_DB_ADDR is set.
const testDBAddrEnvVar = "HIBIKI_TEST_DB_ADDR"

func connectTestDB(t *testing.T) *Connection {
	t.Helper()
	addr, ok := os.LookupEnv(testDBAddrEnvVar)
	if !ok {
		t.Skipf("%v not set; skipping rethinkdb test", testDBAddrEnvVar)
	}
	conn, err := Init(Options{Address: addr, Database: "hibiki_test"})
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestRethinkTriggerLifecycle(t *testing.T) {
	conn := connectTestDB(t)
	ctx := context.Background()
	guildID := "test-" + time.Now().Format("150405.000000")

	id, err := conn.Insert(ctx, newTestTrigger(guildID, "hello"))
	require.NoError(t, err)
	other, err := conn.Insert(ctx, newTestTrigger(guildID, "bye"))
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	got, err := conn.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, got.IsPresent())
	assert.Equal(t, "hello", got.MustGet().Trigger)

	tr := got.MustGet()
	tr.Flags.AllowTarget = true
	tr.Crosspost.SetChannel("chan-1")
	updated, err := conn.Update(ctx, tr)
	require.NoError(t, err)
	assert.True(t, updated)
	got, err = conn.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.MustGet().Flags.AllowTarget)
	assert.Equal(t, "chan-1", got.MustGet().Crosspost.ChannelID)

	deleted, err := conn.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = conn.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
	updated, err = conn.Update(ctx, tr)
	require.NoError(t, err)
	assert.False(t, updated)

	n, err := conn.DeleteAllForGuild(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRethinkEventBusDeliversToSubscribers(t *testing.T) {
	conn := connectTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eb := NewEventBus(conn)
	defer eb.Close()

	var mu sync.Mutex
	var got []bus.Event
	eb.Subscribe(bus.TopicGlobalEdit, func(_ context.Context, ev bus.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})
	go eb.Listen(ctx)
	//Give the changefeed a moment to open before publishing
	time.Sleep(500 * time.Millisecond)

	ev := bus.NewEvent("shard-a")
	ev.Trigger = &guildmodels.Trigger{ID: 42, Trigger: "hello"}
	require.NoError(t, eb.Publish(ctx, bus.TopicGlobalEdit, ev))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 5*time.Second, 50*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(42), got[0].Trigger.ID)
	assert.Equal(t, "shard-a", got[0].Origin)
}
