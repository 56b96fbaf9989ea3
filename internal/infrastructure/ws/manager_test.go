package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/metrics"
	"github.com/arjun7543/chatroom/internal/persistence/repository"
)

// fakeConn is an in-memory wsConn. Reads block until a payload is scripted
// or the conn is closed; writes are discarded because manager tests observe
// events on the client send channel instead.
type fakeConn struct {
	mu       sync.Mutex
	closed   bool
	incoming chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-f.incoming
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, raw, nil
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed connection")
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type testEnv struct {
	store   domain.RoomStore
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, repository.NewMemoryRoomStore())
}

func newTestEnvWithStore(t *testing.T, store domain.RoomStore) *testEnv {
	t.Helper()

	logger := logging.NewNopLogger()
	m := metrics.New(prometheus.NewRegistry())

	registry := NewRegistry(m)
	dispatcher := NewDispatcher(registry, logger, m)
	manager := NewManager(store, registry, dispatcher, nil, logger, m)

	return &testEnv{store: store, manager: manager}
}

func (e *testEnv) newClient() *Client {
	return newClient(newFakeConn(), e.manager, logging.NewNopLogger())
}

// nextEvent pops the next queued event without blocking; the manager queues
// events synchronously, so anything expected is already there.
func nextEvent(t *testing.T, c *Client) any {
	t.Helper()

	select {
	case ev := <-c.send:
		return ev
	default:
		t.Fatal("expected a queued event, got none")
		return nil
	}
}

func expectError(t *testing.T, c *Client, message string) {
	t.Helper()

	ev, ok := nextEvent(t, c).(*ErrorEvent)
	if !ok {
		t.Fatal("expected an error event")
	}
	if ev.Message != message {
		t.Fatalf("expected error %q, got %q", message, ev.Message)
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case ev := <-c.send:
		t.Fatalf("expected no event, got %#v", ev)
	default:
	}
}

func TestCreateAcksAndBinds(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Create(context.Background(), c, "ABCD", "alice")

	ev, ok := nextEvent(t, c).(*CreatedEvent)
	if !ok {
		t.Fatal("expected a created event")
	}
	if ev.Code != "ABCD" {
		t.Fatalf("expected code ABCD, got %q", ev.Code)
	}

	if !c.session.Bound() {
		t.Fatal("expected session to be bound after create")
	}
	if c.session.DisplayName != "alice" {
		t.Fatalf("expected display name alice, got %q", c.session.DisplayName)
	}

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("expected room record to exist: %v", err)
	}
	if len(room.Members) != 1 || room.Members[0] != "alice" {
		t.Fatalf("expected members [alice], got %v", room.Members)
	}

	if got := env.manager.Registry().Count("ABCD"); got != 1 {
		t.Fatalf("expected 1 attached connection, got %d", got)
	}
}

func TestCreateRejectsBoundSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Create(context.Background(), c, "ABCD", "alice")
	nextEvent(t, c)

	env.manager.Create(context.Background(), c, "WXYZ", "alice")
	expectError(t, c, "Already in a room.")

	if _, err := env.store.Find(context.Background(), "WXYZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatal("second room must not be created")
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		code string
		user string
	}{
		{name: "empty code", code: "", user: "alice"},
		{name: "code with symbols", code: "AB-CD", user: "alice"},
		{name: "code too short", code: "AB", user: "alice"},
		{name: "empty name", code: "ABCD", user: ""},
		{name: "name with spaces", code: "ABCD", user: "a b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := env.newClient()
			env.manager.Create(context.Background(), c, tc.code, tc.user)

			if _, ok := nextEvent(t, c).(*ErrorEvent); !ok {
				t.Fatal("expected an error event")
			}
			if c.session.Bound() {
				t.Fatal("session must not bind on invalid input")
			}
		})
	}
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	a := env.newClient()
	b := env.newClient()

	env.manager.Create(context.Background(), a, "ABCD", "alice")
	nextEvent(t, a)

	env.manager.Create(context.Background(), b, "ABCD", "bob")
	expectError(t, b, "Room code already in use.")

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Members) != 1 {
		t.Fatalf("original room must be untouched, got members %v", room.Members)
	}
}

func TestJoinDeliversSnapshotAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	bob := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)

	env.manager.Join(context.Background(), bob, "ABCD", "bob")

	joined, ok := nextEvent(t, bob).(*JoinedEvent)
	if !ok {
		t.Fatal("expected a joined event")
	}
	if joined.Code != "ABCD" {
		t.Fatalf("expected code ABCD, got %q", joined.Code)
	}
	if len(joined.Users) != 2 || joined.Users[0] != "alice" || joined.Users[1] != "bob" {
		t.Fatalf("expected users [alice bob], got %v", joined.Users)
	}
	if joined.Messages == nil || len(joined.Messages) != 0 {
		t.Fatalf("expected an empty, non-nil message log, got %v", joined.Messages)
	}

	userJoined, ok := nextEvent(t, alice).(*UserJoinedEvent)
	if !ok {
		t.Fatal("expected a user_joined event for the existing member")
	}
	if userJoined.User != "bob" {
		t.Fatalf("expected user bob, got %q", userJoined.User)
	}

	// The newcomer must not receive their own join notification.
	expectNoEvent(t, bob)
}

func TestJoinUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Join(context.Background(), c, "NOPE", "alice")
	expectError(t, c, "Room full or not found.")

	if c.session.Bound() {
		t.Fatal("session must stay unbound after a failed join")
	}
	if got := env.manager.Registry().Count("NOPE"); got != 0 {
		t.Fatalf("expected no attached connections, got %d", got)
	}
}

func TestJoinFullRoom(t *testing.T) {
	env := newTestEnv(t)

	owner := env.newClient()
	env.manager.Create(context.Background(), owner, "ABCD", "user0")
	nextEvent(t, owner)

	for i := 1; i < domain.MaxMembers; i++ {
		c := env.newClient()
		env.manager.Join(context.Background(), c, "ABCD", fmt.Sprintf("user%d", i))
		if _, ok := nextEvent(t, c).(*JoinedEvent); !ok {
			t.Fatalf("join %d should succeed", i)
		}
	}

	extra := env.newClient()
	env.manager.Join(context.Background(), extra, "ABCD", "overflow")
	expectError(t, extra, "Room full or not found.")

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Members) != domain.MaxMembers {
		t.Fatalf("expected %d members, got %d", domain.MaxMembers, len(room.Members))
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)

	owner := env.newClient()
	env.manager.Create(context.Background(), owner, "ABCD", "owner")
	nextEvent(t, owner)

	const contenders = 25

	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := env.newClient()
			env.manager.Join(context.Background(), c, "ABCD", fmt.Sprintf("racer%d", i))
		}(i)
	}
	wg.Wait()

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Members) != domain.MaxMembers {
		t.Fatalf("expected exactly %d members after the race, got %d", domain.MaxMembers, len(room.Members))
	}
	if got := env.manager.Registry().Count("ABCD"); got != domain.MaxMembers {
		t.Fatalf("registry count %d diverged from record size %d", got, domain.MaxMembers)
	}
}

func TestJoinRejectsTakenName(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	imposter := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)

	env.manager.Join(context.Background(), imposter, "ABCD", "alice")
	expectError(t, imposter, "Name already taken.")

	if imposter.session.Bound() {
		t.Fatal("session must stay unbound after a rejected join")
	}
}

func TestJoinRejectsBoundSession(t *testing.T) {
	env := newTestEnv(t)
	a := env.newClient()
	b := env.newClient()

	env.manager.Create(context.Background(), a, "ABCD", "alice")
	nextEvent(t, a)
	env.manager.Create(context.Background(), b, "WXYZ", "bob")
	nextEvent(t, b)

	env.manager.Join(context.Background(), b, "ABCD", "bob")
	expectError(t, b, "Already in a room.")

	if b.session.RoomCode != "WXYZ" {
		t.Fatalf("session must keep its original room, got %q", b.session.RoomCode)
	}
}

func TestMessageFanOutIncludesSender(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	bob := env.newClient()
	carol := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)
	env.manager.Join(context.Background(), bob, "ABCD", "bob")
	nextEvent(t, bob)
	nextEvent(t, alice) // bob's user_joined
	env.manager.Join(context.Background(), carol, "ABCD", "carol")
	nextEvent(t, carol)
	nextEvent(t, alice) // carol's user_joined
	nextEvent(t, bob)

	env.manager.Message(context.Background(), alice, "hello")
	env.manager.Message(context.Background(), bob, "hi alice")

	for _, c := range []*Client{alice, bob, carol} {
		first, ok := nextEvent(t, c).(*MessageEvent)
		if !ok {
			t.Fatal("expected a message event")
		}
		if first.User != "alice" || first.Text != "hello" {
			t.Fatalf("expected alice/hello first, got %s/%s", first.User, first.Text)
		}

		second, ok := nextEvent(t, c).(*MessageEvent)
		if !ok {
			t.Fatal("expected a second message event")
		}
		if second.User != "bob" || second.Text != "hi alice" {
			t.Fatalf("expected bob/hi alice second, got %s/%s", second.User, second.Text)
		}
	}

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(room.Messages))
	}
	if room.Messages[0].Text != "hello" || room.Messages[1].Text != "hi alice" {
		t.Fatalf("persisted log out of order: %v", room.Messages)
	}
}

// A bound session whose record has vanished is stale; the manager unbinds
// it instead of letting the client loop on the same error forever.
func TestMessageOnVanishedRoomUnbinds(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Create(context.Background(), c, "ABCD", "alice")
	nextEvent(t, c)

	if err := env.store.Delete(context.Background(), "ABCD"); err != nil {
		t.Fatal(err)
	}

	env.manager.Message(context.Background(), c, "anyone there?")
	expectError(t, c, "Room full or not found.")

	if c.session.Bound() {
		t.Fatal("stale session must be unbound")
	}
	if got := env.manager.Registry().Count("ABCD"); got != 0 {
		t.Fatalf("expected no attached connections, got %d", got)
	}

	// The connection is free to start over.
	env.manager.Create(context.Background(), c, "WXYZ", "alice")
	if _, ok := nextEvent(t, c).(*CreatedEvent); !ok {
		t.Fatal("expected a fresh create to succeed after unbinding")
	}
}

func TestMessageRequiresRoom(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Message(context.Background(), c, "hello?")
	expectError(t, c, "You are not in a room.")
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	bob := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)
	env.manager.Join(context.Background(), bob, "ABCD", "bob")
	nextEvent(t, bob)
	nextEvent(t, alice)

	env.manager.Leave(context.Background(), bob)

	left, ok := nextEvent(t, alice).(*UserLeftEvent)
	if !ok {
		t.Fatal("expected a user_left event")
	}
	if left.User != "bob" {
		t.Fatalf("expected user bob, got %q", left.User)
	}

	// The departed member is detached before the broadcast.
	expectNoEvent(t, bob)

	if bob.session.Bound() {
		t.Fatal("session must be unbound after leave")
	}

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("room with a remaining member must survive: %v", err)
	}
	if len(room.Members) != 1 || room.Members[0] != "alice" {
		t.Fatalf("expected members [alice], got %v", room.Members)
	}
	if got := env.manager.Registry().Count("ABCD"); got != 1 {
		t.Fatalf("expected 1 attached connection, got %d", got)
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)

	env.manager.Leave(context.Background(), alice)

	if _, err := env.store.Find(context.Background(), "ABCD"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected the empty room to be deleted, got %v", err)
	}
	if got := env.manager.Registry().Count("ABCD"); got != 0 {
		t.Fatalf("expected 0 attached connections, got %d", got)
	}

	// A join against the deleted code behaves like any unknown code.
	late := env.newClient()
	env.manager.Join(context.Background(), late, "ABCD", "bob")
	expectError(t, late, "Room full or not found.")
}

func TestLeaveRequiresRoom(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Leave(context.Background(), c)
	expectError(t, c, "You are not in a room.")
}

func TestDisconnectActsAsLeave(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	bob := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)
	env.manager.Join(context.Background(), bob, "ABCD", "bob")
	nextEvent(t, bob)
	nextEvent(t, alice)

	env.manager.Disconnect(context.Background(), bob)

	if _, ok := nextEvent(t, alice).(*UserLeftEvent); !ok {
		t.Fatal("expected a user_left event on disconnect")
	}

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Members) != 1 {
		t.Fatalf("expected 1 member after disconnect, got %d", len(room.Members))
	}

	if !bob.conn.conn.(*fakeConn).isClosed() {
		t.Fatal("expected the transport to be closed")
	}
}

func TestDisconnectUnboundOnlyClosesConn(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.manager.Disconnect(context.Background(), c)

	if !c.conn.conn.(*fakeConn).isClosed() {
		t.Fatal("expected the transport to be closed")
	}
	expectNoEvent(t, c)
}

func TestRejoinAfterLeave(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newClient()
	bob := env.newClient()

	env.manager.Create(context.Background(), alice, "ABCD", "alice")
	nextEvent(t, alice)
	env.manager.Join(context.Background(), bob, "ABCD", "bob")
	nextEvent(t, bob)
	nextEvent(t, alice)

	env.manager.Leave(context.Background(), bob)
	nextEvent(t, alice) // user_left

	env.manager.Join(context.Background(), bob, "ABCD", "bob")
	if _, ok := nextEvent(t, bob).(*JoinedEvent); !ok {
		t.Fatal("expected rejoin to succeed after leaving")
	}

	room, err := env.store.Find(context.Background(), "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Members) != 2 {
		t.Fatalf("expected 2 members after rejoin, got %d", len(room.Members))
	}
}
