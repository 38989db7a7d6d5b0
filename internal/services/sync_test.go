package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mindping-core/internal/clock"
	"mindping-core/internal/models"
	"mindping-core/internal/services"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
	"mindping-core/internal/testutil"
)

// 8pm local on Monday 2025-03-10.
var testNow = time.Date(2025, 3, 10, 20, 0, 0, 0, time.Local)

type syncEnv struct {
	dir        *testutil.FakeDirectory
	subscriber *testutil.FakeSubscriber
	dispatcher *testutil.RecordingDispatcher
	pings      *store.PingStore
	friends    *store.FriendStore
	stats      *store.StatsStore
	outbox     *services.Outbox
	sync       *services.Synchronizer
	user       *models.User
}

func setupSync(t *testing.T, cooldown time.Duration) *syncEnv {
	t.Helper()

	kv := store.NewMemory()
	env := &syncEnv{
		dir:        testutil.NewFakeDirectory(),
		subscriber: testutil.NewFakeSubscriber(),
		dispatcher: &testutil.RecordingDispatcher{},
		pings:      store.NewPingStore(kv),
		friends:    store.NewFriendStore(kv),
		stats:      store.NewStatsStore(kv),
	}
	env.user = &models.User{
		ID:          "u1",
		Username:    "ayse",
		FriendCode:  "ABC234",
		DisplayName: "Ayşe",
	}

	pushToken := "expo-token-b"
	env.dir.AddUser(env.user)
	env.dir.AddUser(&models.User{
		ID:          "u2",
		Username:    "baris",
		FriendCode:  "XYZ789",
		DisplayName: "Barış",
		Language:    "tr",
		PushToken:   &pushToken,
	})
	env.friends.Add(models.Friend{ID: "u2", Username: "baris", DisplayName: "Barış", AddedAt: 1})

	sess := session.New(env.user, "test-token")
	env.outbox = services.NewOutbox(store.NewOutboxStore(kv), env.dir)
	env.sync = services.NewSynchronizer(
		sess, env.dir, env.subscriber,
		env.pings, env.friends, env.stats,
		env.outbox, env.dispatcher,
		clock.Fixed{T: testNow}, cooldown,
	)
	return env
}

func TestSendPing(t *testing.T) {
	t.Run("writes remote, mirrors local, counts, pushes", func(t *testing.T) {
		env := setupSync(t, 0)

		id, err := env.sync.SendPing(context.Background(), "u2")
		if err != nil {
			t.Fatalf("SendPing() error = %v", err)
		}
		if id == "" {
			t.Fatal("expected an assigned ping id")
		}

		doc, ok := env.dir.Ping(id)
		if !ok {
			t.Fatal("ping document missing from directory")
		}
		if doc.SenderID != "u1" || doc.ReceiverID != "u2" {
			t.Errorf("document = %+v", doc)
		}
		if doc.Timestamp != testNow.UnixMilli() {
			t.Errorf("timestamp = %d, want %d", doc.Timestamp, testNow.UnixMilli())
		}

		local, _ := env.pings.List()
		if len(local) != 1 || local[0].ID != id {
			t.Errorf("local mirror = %v", local)
		}

		day, _ := env.stats.Get(testNow.Format("2006-01-02"))
		if day.Sent != 1 {
			t.Errorf("sent counter = %d, want 1", day.Sent)
		}

		if env.dispatcher.Count() != 1 {
			t.Fatalf("pushes = %d, want 1", env.dispatcher.Count())
		}
		last := env.dispatcher.Last()
		if last.Token != "expo-token-b" {
			t.Errorf("pushed to token %q", last.Token)
		}
		// Receiver's language is Turkish.
		if !strings.Contains(last.Body, "ping attı") {
			t.Errorf("push body %q not localized for receiver", last.Body)
		}

		friend, _ := env.friends.Get("u2")
		if friend.LastPingAt != testNow.UnixMilli() {
			t.Errorf("LastPingAt = %d", friend.LastPingAt)
		}
	})

	t.Run("remote failure degrades to local with outbox entry", func(t *testing.T) {
		env := setupSync(t, 0)
		env.dir.SetOffline(true)

		id, err := env.sync.SendPing(context.Background(), "u2")
		if err != nil {
			t.Fatalf("SendPing() error = %v, want local fallback", err)
		}
		if id == "" {
			t.Fatal("expected a locally generated id")
		}

		local, _ := env.pings.List()
		if len(local) != 1 || local[0].ID != id {
			t.Errorf("local mirror = %v", local)
		}
		day, _ := env.stats.Get(testNow.Format("2006-01-02"))
		if day.Sent != 1 {
			t.Errorf("sent counter = %d, want 1", day.Sent)
		}
		if n, _ := env.outbox.Pending(); n != 1 {
			t.Fatalf("outbox pending = %d, want 1", n)
		}

		// Back online: flush replays the ping document.
		env.dir.SetOffline(false)
		if err := env.outbox.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if n, _ := env.outbox.Pending(); n != 0 {
			t.Errorf("outbox pending after flush = %d", n)
		}
		if env.dir.PingCount() != 1 {
			t.Errorf("directory pings = %d, want 1", env.dir.PingCount())
		}
	})

	t.Run("flush keeps entries while still offline", func(t *testing.T) {
		env := setupSync(t, 0)
		env.dir.SetOffline(true)

		if _, err := env.sync.SendPing(context.Background(), "u2"); err != nil {
			t.Fatalf("SendPing() error = %v", err)
		}
		if err := env.outbox.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if n, _ := env.outbox.Pending(); n != 1 {
			t.Errorf("outbox pending = %d, want entry kept", n)
		}
	})

	t.Run("unknown receiver is rejected", func(t *testing.T) {
		env := setupSync(t, 0)
		if _, err := env.sync.SendPing(context.Background(), "u99"); err == nil {
			t.Error("expected error for non-friend receiver")
		}
	})
}

func TestSendPingCooldown(t *testing.T) {
	t.Run("enabled blocks repeat within window", func(t *testing.T) {
		env := setupSync(t, 30*time.Minute)

		if _, err := env.sync.SendPing(context.Background(), "u2"); err != nil {
			t.Fatalf("first SendPing() error = %v", err)
		}
		_, err := env.sync.SendPing(context.Background(), "u2")
		if !errors.Is(err, services.ErrCooldownActive) {
			t.Fatalf("second SendPing() error = %v, want ErrCooldownActive", err)
		}

		local, _ := env.pings.List()
		if len(local) != 1 {
			t.Errorf("blocked send still mirrored: %v", local)
		}
	})

	t.Run("disabled allows immediate repeat", func(t *testing.T) {
		env := setupSync(t, 0)
		for i := 0; i < 2; i++ {
			if _, err := env.sync.SendPing(context.Background(), "u2"); err != nil {
				t.Fatalf("SendPing() #%d error = %v", i+1, err)
			}
		}
	})
}

// runSync starts the synchronizer loop and returns a channel signalling each
// processed snapshot.
func runSync(t *testing.T, env *syncEnv) (context.CancelFunc, chan int) {
	t.Helper()
	processed := make(chan int, 16)
	env.sync.OnUnread(func(pings []models.Ping) {
		processed <- len(pings)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go env.sync.Run(ctx)
	return cancel, processed
}

func waitSnapshot(t *testing.T, processed chan int) int {
	t.Helper()
	select {
	case n := <-processed:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return 0
	}
}

func TestIncomingPings(t *testing.T) {
	t.Run("mirrors and counts each ping exactly once", func(t *testing.T) {
		env := setupSync(t, 0)
		cancel, processed := runSync(t, env)
		defer cancel()

		snapshot := []models.Ping{
			{ID: "r1", SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
			{ID: "r2", SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
		}
		env.subscriber.Snapshots <- snapshot
		if n := waitSnapshot(t, processed); n != 2 {
			t.Fatalf("unread = %d, want 2", n)
		}

		// The feed re-delivers the same snapshot; nothing may double.
		env.subscriber.Snapshots <- snapshot
		waitSnapshot(t, processed)

		local, _ := env.pings.List()
		if len(local) != 2 {
			t.Errorf("mirrored %d pings, want 2", len(local))
		}
		day, _ := env.stats.Get(testNow.Format("2006-01-02"))
		if day.Received != 2 {
			t.Errorf("received counter = %d, want 2", day.Received)
		}

		counts := env.sync.UnreadBySender()
		if counts["u2"] != 2 {
			t.Errorf("unread by sender = %v", counts)
		}
	})

	t.Run("delivered snapshot stays stable across mark read", func(t *testing.T) {
		env := setupSync(t, 0)
		delivered := make(chan []models.Ping, 16)
		env.sync.OnUnread(func(pings []models.Ping) {
			delivered <- pings
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go env.sync.Run(ctx)

		id1, _ := env.dir.WritePing(context.Background(), "u2", "u1", testNow.UnixMilli())
		id2, _ := env.dir.WritePing(context.Background(), "u2", "u1", testNow.UnixMilli())
		env.subscriber.Snapshots <- []models.Ping{
			{ID: id1, SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
			{ID: id2, SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
		}

		var snapshot []models.Ping
		select {
		case snapshot = <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}

		if err := env.sync.MarkRead(ctx, id1); err != nil {
			t.Fatalf("MarkRead() error = %v", err)
		}

		// The callback's slice is the consumer's copy; filtering the unread
		// set must not rewrite its entries underneath them.
		if len(snapshot) != 2 || snapshot[0].ID != id1 || snapshot[1].ID != id2 {
			t.Errorf("delivered snapshot mutated: %v", snapshot)
		}
		if remaining := env.sync.Unread(); len(remaining) != 1 || remaining[0].ID != id2 {
			t.Errorf("unread after mark read = %v", remaining)
		}
	})

	t.Run("mark friend read clears unread and flips remote", func(t *testing.T) {
		env := setupSync(t, 0)
		cancel, processed := runSync(t, env)
		defer cancel()

		id1, _ := env.dir.WritePing(context.Background(), "u2", "u1", testNow.UnixMilli())
		id2, _ := env.dir.WritePing(context.Background(), "u2", "u1", testNow.UnixMilli())
		env.subscriber.Snapshots <- []models.Ping{
			{ID: id1, SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
			{ID: id2, SenderID: "u2", ReceiverID: "u1", Timestamp: testNow.UnixMilli()},
		}
		waitSnapshot(t, processed)

		if err := env.sync.MarkFriendRead(context.Background(), "u2"); err != nil {
			t.Fatalf("MarkFriendRead() error = %v", err)
		}

		if len(env.sync.Unread()) != 0 {
			t.Errorf("unread not cleared: %v", env.sync.Unread())
		}
		for _, id := range []string{id1, id2} {
			doc, _ := env.dir.Ping(id)
			if !doc.Read {
				t.Errorf("remote ping %s not marked read", id)
			}
		}
		local, _ := env.pings.List()
		for _, p := range local {
			if !p.Read {
				t.Errorf("local mirror %s not marked read", p.ID)
			}
		}
	})
}
