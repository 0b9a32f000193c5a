package autoresponder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	agentsDomain "github.com/wappanel/wappanel/agents/domain"
	conversationsDomain "github.com/wappanel/wappanel/conversations/domain"
	messagesDomain "github.com/wappanel/wappanel/messages/domain"
	tenantsDomain "github.com/wappanel/wappanel/tenants/domain"
)

type stubTenantSource struct {
	tenant *tenantsDomain.Tenant
}

func (s *stubTenantSource) GetTenant(ctx context.Context, tenantID string) (*tenantsDomain.Tenant, error) {
	if s.tenant == nil {
		return nil, tenantsDomain.ErrTenantNotFound
	}
	return s.tenant, nil
}

type stubAgentSource struct {
	agent *agentsDomain.Agent
}

func (s *stubAgentSource) GetByID(ctx context.Context, id string) (*agentsDomain.Agent, error) {
	if s.agent == nil || s.agent.ID != id {
		return nil, agentsDomain.ErrAgentNotFound
	}
	return s.agent, nil
}

type stubSessionStore struct {
	sessions map[string]string
}

func (s *stubSessionStore) UpdateAiSession(ctx context.Context, id, sessionID string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]string)
	}
	s.sessions[id] = sessionID
	return nil
}

type stubHistorySource struct {
	lastAssistant *messagesDomain.Message
	turns         []*messagesDomain.Message
}

func (s *stubHistorySource) History(ctx context.Context, conversationID string, limit int) ([]*messagesDomain.Message, error) {
	return s.turns, nil
}

func (s *stubHistorySource) LastByRole(ctx context.Context, conversationID string, role messagesDomain.Role) (*messagesDomain.Message, error) {
	if s.lastAssistant == nil {
		return nil, messagesDomain.ErrMessageNotFound
	}
	return s.lastAssistant, nil
}

type stubReplySaver struct {
	saved []string
	err   error
}

func (s *stubReplySaver) SaveAutomatedReply(ctx context.Context, tenantID, conversationID, agentID, content string) (*messagesDomain.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = append(s.saved, content)
	return &messagesDomain.Message{ID: "reply1", Content: content}, nil
}

type stubBroadcast struct {
	events []string
}

func (s *stubBroadcast) Broadcast(conversationID, event string, payload any) {
	s.events = append(s.events, event)
}

type fakeAI struct {
	reply       string
	err         error
	completions int
	sessions    int
	lastReq     CompletionRequest
}

func (f *fakeAI) CreateSession(ctx context.Context, apiKey, systemPrompt string) (string, error) {
	f.sessions++
	return "session1", nil
}

func (f *fakeAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.completions++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type responderFixture struct {
	responder *Responder
	tenants   *stubTenantSource
	agents    *stubAgentSource
	sessions  *stubSessionStore
	history   *stubHistorySource
	replies   *stubReplySaver
	broadcast *stubBroadcast
	ai        *fakeAI
}

func newResponderFixture() *responderFixture {
	f := &responderFixture{
		tenants: &stubTenantSource{tenant: &tenantsDomain.Tenant{
			ID: "t1", Name: "Acme", Enabled: true,
			AI: tenantsDomain.AIConfig{Enabled: true, Model: "gpt-4o-mini", EncryptedAPIKey: "sk-test", SystemPrompt: "be helpful"},
		}},
		agents:    &stubAgentSource{agent: &agentsDomain.Agent{ID: "agent1", TenantID: "t1", Active: true, Lead: true}},
		sessions:  &stubSessionStore{},
		history:   &stubHistorySource{},
		replies:   &stubReplySaver{},
		broadcast: &stubBroadcast{},
		ai:        &fakeAI{reply: "hello there"},
	}
	f.responder = NewResponder(ResponderDeps{
		Tenants:   f.tenants,
		Agents:    f.agents,
		Sessions:  f.sessions,
		History:   f.history,
		Replies:   f.replies,
		Broadcast: f.broadcast,
		AI:        f.ai,
	})
	f.responder.decrypt = func(s string) (string, error) { return s, nil }
	return f
}

func inboundMessage() *messagesDomain.Message {
	return &messagesDomain.Message{
		ID: "msg1", TenantID: "t1", ConversationID: "conv1",
		Role: messagesDomain.RoleUser, SenderType: messagesDomain.SenderContact,
		Type: messagesDomain.TypeText, Content: "Hola",
		Metadata: map[string]any{"push_name": "Maria", "phone": "+5511987654321"},
	}
}

func activeConversation() *conversationsDomain.Conversation {
	return &conversationsDomain.Conversation{
		ID: "conv1", TenantID: "t1", ContactID: "contact1",
		Status: conversationsDomain.StatusActive, AgentID: "agent1", IsAiActive: true,
	}
}

func TestMaybeRespond_HappyPath(t *testing.T) {
	f := newResponderFixture()

	f.responder.MaybeRespond(context.Background(), inboundMessage(), activeConversation(), "t1", "main")

	require.Equal(t, []string{"hello there"}, f.replies.saved)
	assert.Equal(t, 1, f.ai.completions)
	assert.Equal(t, "session1", f.sessions.sessions["conv1"], "session persisted for later turns")
	assert.Equal(t, []string{"typing_start", "message_received", "typing_stop"}, f.broadcast.events)
	assert.Equal(t, "Maria", f.ai.lastReq.Metadata["contact"])
	assert.Equal(t, "+5511987654321", f.ai.lastReq.Metadata["phone"], "the model must know the remote party")
}

func TestMaybeRespond_ReusesExistingSession(t *testing.T) {
	f := newResponderFixture()
	conversation := activeConversation()
	conversation.AiSessionID = "existing-session"

	f.responder.MaybeRespond(context.Background(), inboundMessage(), conversation, "t1", "main")

	assert.Zero(t, f.ai.sessions, "no new session when one exists")
	assert.Len(t, f.replies.saved, 1)
}

func TestMaybeRespond_AiInactiveNeverTriggers(t *testing.T) {
	f := newResponderFixture()
	conversation := activeConversation()
	conversation.IsAiActive = false

	f.responder.MaybeRespond(context.Background(), inboundMessage(), conversation, "t1", "main")

	assert.Zero(t, f.ai.completions)
	assert.Empty(t, f.replies.saved)
	assert.Empty(t, f.broadcast.events)
}

func TestIsEligible_RuleOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation)
		reason string
	}{
		{
			name:   "self message",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) { m.FromMe = true },
			reason: "self_message",
		},
		{
			name: "media excluded",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) {
				m.Type = messagesDomain.TypeImage
			},
			reason: "non_text_message",
		},
		{
			name: "ai flag off",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) {
				c.IsAiActive = false
			},
			reason: "ai_inactive",
		},
		{
			name:   "unassigned",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) { c.AgentID = "" },
			reason: "no_agent_assigned",
		},
		{
			name: "agent inactive",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) {
				f.agents.agent.Active = false
			},
			reason: "agent_inactive",
		},
		{
			name: "cooldown",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) {
				f.history.lastAssistant = &messagesDomain.Message{CreatedAt: time.Now().Add(-5 * time.Second)}
			},
			reason: "cooldown",
		},
		{
			name: "no ai config",
			mutate: func(f *responderFixture, m *messagesDomain.Message, c *conversationsDomain.Conversation) {
				f.tenants.tenant.AI.EncryptedAPIKey = ""
			},
			reason: "no_ai_config",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newResponderFixture()
			message := inboundMessage()
			conversation := activeConversation()
			tc.mutate(f, message, conversation)

			eligible, reason := f.responder.IsEligible(context.Background(), message, conversation, "t1")
			assert.False(t, eligible)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestIsEligible_CooldownExpired(t *testing.T) {
	f := newResponderFixture()
	f.history.lastAssistant = &messagesDomain.Message{CreatedAt: time.Now().Add(-time.Minute)}

	eligible, reason := f.responder.IsEligible(context.Background(), inboundMessage(), activeConversation(), "t1")
	assert.True(t, eligible)
	assert.Empty(t, reason)
}

func TestMaybeRespond_CompletionFailureIsSilent(t *testing.T) {
	f := newResponderFixture()
	f.ai.err = errors.New("upstream 500")

	f.responder.MaybeRespond(context.Background(), inboundMessage(), activeConversation(), "t1", "main")

	assert.Empty(t, f.replies.saved)
	assert.Equal(t, []string{"typing_start", "typing_stop"}, f.broadcast.events, "typing always stops")
}

func TestMaybeRespond_HistoryExcludesCurrentMessage(t *testing.T) {
	f := newResponderFixture()
	message := inboundMessage()
	f.history.turns = []*messagesDomain.Message{
		{ID: "old1", Role: messagesDomain.RoleUser, Content: "earlier"},
		{ID: message.ID, Role: messagesDomain.RoleUser, Content: message.Content},
	}

	turns, err := f.responder.loadHistory(context.Background(), "conv1", message.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "earlier", turns[0].Text)
}
