package services_test

import (
	"context"
	"errors"
	"testing"

	"mindping-core/internal/clock"
	"mindping-core/internal/models"
	"mindping-core/internal/qr"
	"mindping-core/internal/remote"
	"mindping-core/internal/services"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
	"mindping-core/internal/testutil"
)

type friendEnv struct {
	dir     *testutil.FakeDirectory
	friends *store.FriendStore
	outbox  *services.Outbox
	svc     *services.FriendService
	user    *models.User
}

func setupFriends(t *testing.T) *friendEnv {
	t.Helper()

	kv := store.NewMemory()
	env := &friendEnv{
		dir:     testutil.NewFakeDirectory(),
		friends: store.NewFriendStore(kv),
	}
	env.user = &models.User{ID: "u1", Username: "ayse", FriendCode: "ABC234", DisplayName: "Ayşe"}
	env.dir.AddUser(env.user)
	env.dir.AddUser(&models.User{ID: "u2", Username: "baris", FriendCode: "XYZ789", DisplayName: "Barış"})

	env.outbox = services.NewOutbox(store.NewOutboxStore(kv), env.dir)
	env.svc = services.NewFriendService(
		session.New(env.user, "test-token"),
		env.dir, env.friends, env.outbox,
		clock.Fixed{T: testNow},
	)
	return env
}

func TestAddFriend(t *testing.T) {
	t.Run("appends locally and records the edge", func(t *testing.T) {
		env := setupFriends(t)

		err := env.svc.Add(context.Background(), models.Friend{ID: "u2", Username: "baris", DisplayName: "Barış"})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		list, _ := env.svc.List()
		if len(list) != 1 || list[0].ID != "u2" {
			t.Fatalf("list = %v", list)
		}
		if list[0].AddedAt != testNow.UnixMilli() {
			t.Errorf("AddedAt = %d, want stamped", list[0].AddedAt)
		}
		if !env.dir.HasFriendship("u1", "u2") {
			t.Error("friendship edge missing from directory")
		}
	})

	t.Run("duplicate is rejected", func(t *testing.T) {
		env := setupFriends(t)
		friend := models.Friend{ID: "u2", Username: "baris"}

		if err := env.svc.Add(context.Background(), friend); err != nil {
			t.Fatalf("first Add() error = %v", err)
		}
		err := env.svc.Add(context.Background(), friend)
		if !errors.Is(err, services.ErrDuplicateFriend) {
			t.Fatalf("second Add() error = %v, want ErrDuplicateFriend", err)
		}
		list, _ := env.svc.List()
		if len(list) != 1 {
			t.Errorf("list grew on duplicate: %v", list)
		}
	})

	t.Run("self add by id", func(t *testing.T) {
		env := setupFriends(t)
		err := env.svc.Add(context.Background(), models.Friend{ID: "u1", Username: "someone"})
		if !errors.Is(err, services.ErrSelfAdd) {
			t.Errorf("error = %v, want ErrSelfAdd", err)
		}
	})

	t.Run("self add by username is case insensitive", func(t *testing.T) {
		env := setupFriends(t)
		err := env.svc.Add(context.Background(), models.Friend{ID: "other", Username: "AYSE"})
		if !errors.Is(err, services.ErrSelfAdd) {
			t.Errorf("error = %v, want ErrSelfAdd", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		env := setupFriends(t)
		for _, friend := range []models.Friend{
			{Username: "baris"},
			{ID: "u2"},
			{},
		} {
			if err := env.svc.Add(context.Background(), friend); !errors.Is(err, services.ErrMissingFields) {
				t.Errorf("Add(%+v) error = %v, want ErrMissingFields", friend, err)
			}
		}
	})

	t.Run("directory outage queues the edge", func(t *testing.T) {
		env := setupFriends(t)
		env.dir.SetOffline(true)

		if err := env.svc.Add(context.Background(), models.Friend{ID: "u2", Username: "baris"}); err != nil {
			t.Fatalf("Add() error = %v, want local success", err)
		}
		if n, _ := env.outbox.Pending(); n != 1 {
			t.Fatalf("outbox pending = %d, want 1", n)
		}

		env.dir.SetOffline(false)
		if err := env.outbox.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if !env.dir.HasFriendship("u1", "u2") {
			t.Error("edge not replayed from outbox")
		}
	})
}

func TestAddFromQR(t *testing.T) {
	env := setupFriends(t)

	other := &models.User{ID: "u2", Username: "baris", FriendCode: "XYZ789", DisplayName: "Barış", AvatarStyle: "bottts", AvatarSeed: "baris"}
	payload, err := qr.Encode(other)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	friend, err := env.svc.AddFromQR(context.Background(), payload)
	if err != nil {
		t.Fatalf("AddFromQR() error = %v", err)
	}
	if friend.ID != "u2" || friend.FriendCode != "XYZ789" || friend.AvatarStyle != "bottts" {
		t.Errorf("snapshot = %+v", friend)
	}
	if !env.dir.HasFriendship("u1", "u2") {
		t.Error("friendship edge missing")
	}

	if _, err := env.svc.AddFromQR(context.Background(), []byte("garbage")); !errors.Is(err, qr.ErrInvalidPayload) {
		t.Errorf("garbage payload error = %v, want ErrInvalidPayload", err)
	}
}

func TestAddManual(t *testing.T) {
	t.Run("resolves friend code shape by code", func(t *testing.T) {
		env := setupFriends(t)
		friend, err := env.svc.AddManual(context.Background(), "xyz789")
		if err != nil {
			t.Fatalf("AddManual() error = %v", err)
		}
		if friend.ID != "u2" {
			t.Errorf("resolved %+v, want u2", friend)
		}
	})

	t.Run("resolves other input by username", func(t *testing.T) {
		env := setupFriends(t)
		friend, err := env.svc.AddManual(context.Background(), "baris")
		if err != nil {
			t.Fatalf("AddManual() error = %v", err)
		}
		if friend.ID != "u2" {
			t.Errorf("resolved %+v, want u2", friend)
		}
		// Directory record has no avatar fields; snapshot falls back.
		if friend.AvatarStyle != models.DefaultAvatarStyle || friend.AvatarSeed != "baris" {
			t.Errorf("fallbacks not applied: %+v", friend)
		}
	})

	t.Run("code-shaped username falls back to username lookup", func(t *testing.T) {
		env := setupFriends(t)
		// "faruk2" is 6 characters from the code alphabet but matches no
		// code; the username path must still find the user.
		env.dir.AddUser(&models.User{ID: "u3", Username: "faruk2", FriendCode: "QQQ222"})

		friend, err := env.svc.AddManual(context.Background(), "faruk2")
		if err != nil {
			t.Fatalf("AddManual() error = %v", err)
		}
		if friend.ID != "u3" {
			t.Errorf("resolved %+v, want u3", friend)
		}
	})

	t.Run("unknown input", func(t *testing.T) {
		env := setupFriends(t)
		if _, err := env.svc.AddManual(context.Background(), "nobody"); !errors.Is(err, remote.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestMutualScan(t *testing.T) {
	// Two devices scanning each other share one directory; the edge is
	// undirected, so the second device's write is a no-op.
	dir := testutil.NewFakeDirectory()
	ayse := &models.User{ID: "u1", Username: "ayse", FriendCode: "ABC234"}
	baris := &models.User{ID: "u2", Username: "baris", FriendCode: "XYZ789"}
	dir.AddUser(ayse)
	dir.AddUser(baris)

	newDevice := func(user *models.User) *services.FriendService {
		kv := store.NewMemory()
		return services.NewFriendService(
			session.New(user, "test-token"),
			dir,
			store.NewFriendStore(kv),
			services.NewOutbox(store.NewOutboxStore(kv), dir),
			clock.Fixed{T: testNow},
		)
	}
	deviceA := newDevice(ayse)
	deviceB := newDevice(baris)

	payloadB, _ := qr.Encode(baris)
	payloadA, _ := qr.Encode(ayse)

	if _, err := deviceA.AddFromQR(context.Background(), payloadB); err != nil {
		t.Fatalf("device A AddFromQR() error = %v", err)
	}
	if _, err := deviceB.AddFromQR(context.Background(), payloadA); err != nil {
		t.Fatalf("device B AddFromQR() error = %v", err)
	}

	if !dir.HasFriendship("u1", "u2") {
		t.Error("edge missing after mutual scan")
	}
	listA, _ := deviceA.List()
	listB, _ := deviceB.List()
	if len(listA) != 1 || len(listB) != 1 {
		t.Errorf("lists = %d and %d entries, want 1 each", len(listA), len(listB))
	}
}

func TestRemoveFriendKeepsPings(t *testing.T) {
	kv := store.NewMemory()
	dir := testutil.NewFakeDirectory()
	user := &models.User{ID: "u1", Username: "ayse", FriendCode: "ABC234"}
	dir.AddUser(user)
	pings := store.NewPingStore(kv)
	svc := services.NewFriendService(
		session.New(user, "test-token"),
		dir,
		store.NewFriendStore(kv),
		services.NewOutbox(store.NewOutboxStore(kv), dir),
		clock.Fixed{T: testNow},
	)

	if err := svc.Add(context.Background(), models.Friend{ID: "u2", Username: "baris"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	pings.Add(models.Ping{ID: "p1", SenderID: "u1", ReceiverID: "u2", Timestamp: 100})

	if err := svc.Remove("u2"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	list, _ := svc.List()
	if len(list) != 0 {
		t.Errorf("friend still listed: %v", list)
	}
	history, _ := pings.List()
	if len(history) != 1 {
		t.Errorf("ping history lost on unfriend: %v", history)
	}
}

func TestReorderFriends(t *testing.T) {
	env := setupFriends(t)
	env.dir.AddUser(&models.User{ID: "u3", Username: "ceren", FriendCode: "QQQ222"})
	for _, f := range []models.Friend{
		{ID: "u2", Username: "baris"},
		{ID: "u3", Username: "ceren"},
	} {
		if err := env.svc.Add(context.Background(), f); err != nil {
			t.Fatalf("Add(%s) error = %v", f.ID, err)
		}
	}

	if err := env.svc.Reorder([]string{"u3", "u2"}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	list, _ := env.svc.List()
	if list[0].ID != "u3" || list[1].ID != "u2" {
		t.Errorf("order = %v", list)
	}

	for name, ids := range map[string][]string{
		"wrong length": {"u2"},
		"unknown id":   {"u2", "u9"},
		"repeated id":  {"u2", "u2"},
	} {
		t.Run(name, func(t *testing.T) {
			if err := env.svc.Reorder(ids); !errors.Is(err, services.ErrInvalidOrder) {
				t.Errorf("Reorder(%v) error = %v, want ErrInvalidOrder", ids, err)
			}
		})
	}
}

func TestPruneDeleted(t *testing.T) {
	env := setupFriends(t)
	if err := env.svc.Add(context.Background(), models.Friend{ID: "u2", Username: "baris"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	env.dir.PutNotification(context.Background(), &models.Notification{
		ID:          "n1",
		Kind:        models.NotificationAccountDeleted,
		RecipientID: "u1",
		UserID:      "u2",
		Username:    "baris",
		CreatedAt:   testNow.UnixMilli(),
	})

	if err := env.svc.PruneDeleted(context.Background()); err != nil {
		t.Fatalf("PruneDeleted() error = %v", err)
	}

	list, _ := env.svc.List()
	if len(list) != 0 {
		t.Errorf("deleted friend still listed: %v", list)
	}
	if env.dir.NotificationCount() != 0 {
		t.Error("consumed notification not deleted")
	}

	// Second run is a no-op.
	if err := env.svc.PruneDeleted(context.Background()); err != nil {
		t.Fatalf("second PruneDeleted() error = %v", err)
	}
}

func TestListWithBadges(t *testing.T) {
	env := setupFriends(t)
	if err := env.svc.Add(context.Background(), models.Friend{ID: "u2", Username: "baris"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	badged, err := env.svc.ListWithBadges(map[string]int{"u2": 3})
	if err != nil {
		t.Fatalf("ListWithBadges() error = %v", err)
	}
	if len(badged) != 1 || badged[0].UnreadCount != 3 {
		t.Errorf("badged = %+v", badged)
	}
}
