package chathub_test

import (
	"context"
	"sync"
	"testing"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/knowledge"
	"livechat/backend/internal/localization"
	"livechat/backend/internal/presence"
	"livechat/backend/internal/responder"
	"livechat/backend/internal/storage/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	connID  string
	adminID string
	send    chan chathub.Event

	mu     sync.Mutex
	closed bool
}

func newMockClient(connID string) *mockClient {
	return &mockClient{connID: connID, send: make(chan chathub.Event, 256)}
}

func (c *mockClient) GetConnID() string                    { return c.connID }
func (c *mockClient) GetAdminID() string                   { return c.adminID }
func (c *mockClient) GetSendChannel() chan<- chathub.Event { return c.send }
func (c *mockClient) Run()                                 {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns everything queued for the client so far.
func (c *mockClient) drain() []chathub.Event {
	var out []chathub.Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func names(evs []chathub.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

func only(evs []chathub.Event, name string) []chathub.Event {
	var out []chathub.Event
	for _, ev := range evs {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func indexOf(evs []chathub.Event, match func(chathub.Event) bool) int {
	for i, ev := range evs {
		if match(ev) {
			return i
		}
	}
	return -1
}

type MockAI struct {
	mock.Mock
}

func (m *MockAI) Generate(ctx context.Context, text string, history []responder.Turn) (string, error) {
	args := m.Called(ctx, text, history)
	return args.String(0), args.Error(1)
}

func (m *MockAI) ShouldHandoff(text string) bool {
	return m.Called(text).Bool(0)
}

func (m *MockAI) FAQAnswer(text string) (string, bool) {
	args := m.Called(text)
	return args.String(0), args.Bool(1)
}

func (m *MockAI) Fallback() string {
	return m.Called().String(0)
}

type MockKnowledge struct {
	mock.Mock
}

func (m *MockKnowledge) Answer(ctx context.Context, text string) (*knowledge.Answer, error) {
	args := m.Called(ctx, text)
	ans, _ := args.Get(0).(*knowledge.Answer)
	return ans, args.Error(1)
}

func (m *MockKnowledge) Fallback() string {
	return m.Called().String(0)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyHandoff(_ context.Context, conversationID, _, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, conversationID+"|"+reason)
	return nil
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type fixture struct {
	relay    *chathub.Relay
	hub      *chathub.Hub
	store    *memory.Store
	presence *presence.Store
}

func newFixture(t *testing.T, opts chathub.Options) *fixture {
	t.Helper()
	opts.Texts = localization.Default().Lang("en")
	f := &fixture{
		hub:      chathub.NewHub(),
		store:    memory.New(),
		presence: presence.NewStore(),
	}
	f.relay = chathub.NewRelay(f.store, f.presence, f.hub, opts)
	return f
}

func (f *fixture) visitor(t *testing.T, connID, userID, conversationID string) *mockClient {
	t.Helper()
	c := newMockClient(connID)
	f.relay.Register(c)
	require.NoError(t, f.relay.Join(connID, chathub.Participant{
		UserID:         userID,
		ConversationID: conversationID,
		Name:           "Visitor " + userID,
	}))
	return c
}

func (f *fixture) admin(t *testing.T, connID, adminID string) *mockClient {
	t.Helper()
	c := newMockClient(connID)
	c.adminID = adminID
	f.relay.Register(c)
	require.NoError(t, f.relay.Join(connID, chathub.Participant{UserID: adminID, IsAdmin: true}))
	return c
}
