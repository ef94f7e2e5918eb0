package factory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/state"
)

type testKey struct {
	private ed25519.PrivateKey
	id      Identity
}

func newTestKey(t testing.TB, seed byte) testKey {
	t.Helper()
	private := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	id, err := IdentityFromPublicKey(private.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("identity from key: %v", err)
	}
	return testKey{private: private, id: id}
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type sequenceIDs struct {
	mu   sync.Mutex
	next int
}

func (s *sequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("id-%04d", s.next)
}

type testEnv struct {
	factory *Factory
	store   *state.MemoryStore[Record]
	capture *activity.CaptureHook
	logs    *logCapture
	program testKey
	a, b, c testKey
	r       testKey
}

func newTestEnv(t testing.TB, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   state.NewMemoryStore[Record](),
		capture: &activity.CaptureHook{},
		logs:    &logCapture{},
		program: newTestKey(t, 0x50),
		a:       newTestKey(t, 0x0a),
		b:       newTestKey(t, 0x0b),
		c:       newTestKey(t, 0x0c),
		r:       newTestKey(t, 0x0d),
	}
	ids := &sequenceIDs{}
	base := []Option{
		WithStore(env.store),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(ids.NewID),
		WithActivityHooks(activity.Hooks{env.capture}),
		WithOperationLogger(env.logs),
	}
	f, err := New(env.program.id, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	env.factory = f
	return env
}

// raw returns the encoded stored record so tests can assert byte identity.
func (env *testEnv) raw(t testing.TB) []byte {
	t.Helper()
	rec, _, ok, err := env.store.Load(context.Background(), env.factory.Address().Key.String())
	if err != nil || !ok {
		t.Fatalf("load raw record: ok=%v err=%v", ok, err)
	}
	data, err := rec.MarshalBinary()
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	return data
}

func (env *testEnv) meta(t testing.TB) state.Meta {
	t.Helper()
	_, meta, err := env.factory.Load(context.Background())
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	return meta
}

func (env *testEnv) initialize(t testing.TB, ratio, fee uint16) Record {
	t.Helper()
	rec, err := env.factory.Initialize(context.Background(), env.a.id, ratio, fee)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return rec
}

type logCapture struct {
	mu     sync.Mutex
	events []OperationLogEvent
}

func (l *logCapture) LogOperation(event OperationLogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *logCapture) Events() []OperationLogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]OperationLogEvent(nil), l.events...)
}

func (l *logCapture) Last() OperationLogEvent {
	events := l.Events()
	if len(events) == 0 {
		return OperationLogEvent{}
	}
	return events[len(events)-1]
}

// saveCountingStore records writes that reach the underlying store.
type saveCountingStore struct {
	state.Store[Record]
	mu      sync.Mutex
	creates int
	saves   int
}

func (s *saveCountingStore) Create(ctx context.Context, key string, rec Record, meta state.Meta) (state.Meta, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.Store.Create(ctx, key, rec, meta)
}

func (s *saveCountingStore) Save(ctx context.Context, key string, rec Record, meta state.Meta, ifMatch string) (state.Meta, error) {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, key, rec, meta, ifMatch)
}

func (s *saveCountingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates + s.saves
}
