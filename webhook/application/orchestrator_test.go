package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contactsApp "github.com/wappanel/wappanel/contacts/application"
	contactsDomain "github.com/wappanel/wappanel/contacts/domain"
	conversationsApp "github.com/wappanel/wappanel/conversations/application"
	conversationsDomain "github.com/wappanel/wappanel/conversations/domain"
	messagesApp "github.com/wappanel/wappanel/messages/application"
	messagesDomain "github.com/wappanel/wappanel/messages/domain"
	"github.com/wappanel/wappanel/pkg/normalize"
	tenantsDomain "github.com/wappanel/wappanel/tenants/domain"
	"github.com/wappanel/wappanel/webhook/domain"
)

// --- stubs ---

type stubTenants struct {
	summaries map[string]tenantsDomain.Summary
}

func (s *stubTenants) GetSummary(ctx context.Context, tenantID string) (tenantsDomain.Summary, error) {
	if summary, ok := s.summaries[tenantID]; ok {
		return summary, nil
	}
	return tenantsDomain.Summary{}, tenantsDomain.ErrTenantNotFound
}

type stubContacts struct {
	contacts      map[string]*contactsDomain.Contact
	identityCalls int
	outboundCalls int
}

func newStubContacts() *stubContacts {
	return &stubContacts{contacts: make(map[string]*contactsDomain.Contact)}
}

func (s *stubContacts) upsert(in contactsApp.UpsertInput) *contactsDomain.Contact {
	phone := normalize.Phone(in.Phone)
	if c, ok := s.contacts[phone]; ok {
		return c
	}
	c := &contactsDomain.Contact{
		ID: "contact-" + phone, TenantID: in.TenantID,
		Name: in.DisplayName, Phone: phone, ChannelID: in.ChannelID,
	}
	s.contacts[phone] = c
	return c
}

func (s *stubContacts) Upsert(ctx context.Context, in contactsApp.UpsertInput) (*contactsDomain.Contact, error) {
	s.identityCalls++
	return s.upsert(in), nil
}

func (s *stubContacts) UpsertWithoutIdentityUpdate(ctx context.Context, in contactsApp.UpsertInput) (*contactsDomain.Contact, error) {
	s.outboundCalls++
	return s.upsert(in), nil
}

type stubConversations struct {
	conversations map[string]*conversationsDomain.Conversation
}

func newStubConversations() *stubConversations {
	return &stubConversations{conversations: make(map[string]*conversationsDomain.Conversation)}
}

func (s *stubConversations) GetOrCreate(ctx context.Context, in conversationsApp.GetOrCreateInput) (*conversationsDomain.Conversation, error) {
	key := in.ContactID + "|" + in.TenantID
	if c, ok := s.conversations[key]; ok {
		return c, nil
	}
	c := &conversationsDomain.Conversation{
		ID: "conv-" + in.ContactID, TenantID: in.TenantID,
		ContactID: in.ContactID, Status: conversationsDomain.StatusActive,
	}
	s.conversations[key] = c
	return c, nil
}

type stubMessages struct {
	byGatewayID map[string]*messagesDomain.Message
	saves       int
	refreshes   int
}

func newStubMessages() *stubMessages {
	return &stubMessages{byGatewayID: make(map[string]*messagesDomain.Message)}
}

func (s *stubMessages) Save(ctx context.Context, in messagesApp.SaveInput) (*messagesDomain.Message, bool, error) {
	s.saves++
	if existing, ok := s.byGatewayID[in.GatewayMessageID]; ok {
		status := messagesDomain.NormalizeDeliveryStatus(in.RawStatus)
		if in.RawStatus != "" && status != existing.Status {
			existing.Status = status
		}
		return existing, true, nil
	}
	m := &messagesDomain.Message{
		ID: "msg-" + in.GatewayMessageID, TenantID: in.TenantID,
		ConversationID: in.ConversationID, GatewayMessageID: in.GatewayMessageID,
		Type: messagesDomain.NormalizeType(in.RawType), Content: in.Content,
		Status: messagesDomain.NormalizeDeliveryStatus(in.RawStatus), FromMe: in.FromMe,
	}
	s.byGatewayID[in.GatewayMessageID] = m
	return m, false, nil
}

func (s *stubMessages) FindByGatewayIDForTenant(ctx context.Context, gatewayID, tenantID string) (*messagesDomain.Message, error) {
	if m, ok := s.byGatewayID[gatewayID]; ok && m.TenantID == tenantID {
		return m, nil
	}
	return nil, messagesDomain.ErrMessageNotFound
}

func (s *stubMessages) RefreshDeliveryStatus(ctx context.Context, message *messagesDomain.Message, status messagesDomain.DeliveryStatus) error {
	s.refreshes++
	message.Status = status
	return nil
}

type stubBroadcaster struct {
	events []string
}

func (s *stubBroadcaster) Broadcast(conversationID, event string, payload any) {
	s.events = append(s.events, event)
}

type stubResponder struct {
	calls int
}

func (s *stubResponder) MaybeRespond(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID, instanceName string) {
	s.calls++
}

type fixture struct {
	orchestrator  *Orchestrator
	tenants       *stubTenants
	contacts      *stubContacts
	conversations *stubConversations
	messages      *stubMessages
	broadcast     *stubBroadcaster
	responder     *stubResponder
}

func newFixture() *fixture {
	f := &fixture{
		tenants: &stubTenants{summaries: map[string]tenantsDomain.Summary{
			"t1": {ID: "t1", Enabled: true},
		}},
		contacts:      newStubContacts(),
		conversations: newStubConversations(),
		messages:      newStubMessages(),
		broadcast:     &stubBroadcaster{},
		responder:     &stubResponder{},
	}
	f.orchestrator = NewOrchestrator(OrchestratorDeps{
		Tenants:       f.tenants,
		Contacts:      f.contacts,
		Conversations: f.conversations,
		Ingest:        f.messages,
		Lookup:        f.messages,
		Broadcast:     f.broadcast,
		Responder:     f.responder,
	})
	return f
}

func inboundPayload(remoteJid, gatewayID, text string) domain.Payload {
	return domain.Payload{
		Event:    "messages.upsert",
		Instance: "main",
		Data: map[string]any{
			"key": map[string]any{
				"remoteJid": remoteJid,
				"id":        gatewayID,
				"fromMe":    false,
			},
			"pushName":         "Maria Silva",
			"messageTimestamp": float64(time.Now().Unix()),
			"message":          map[string]any{"conversation": text},
		},
	}
}

// --- scenarios ---

func TestHandle_NewInboundTextMessage(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "t1", "main",
		inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola"))

	require.True(t, result.Success)
	assert.Equal(t, domain.TagMessageProcessed, result.MessageType)

	contact, ok := f.contacts.contacts["+5511987654321"]
	require.True(t, ok, "contact created with normalized phone")
	assert.Equal(t, "Maria Silva", contact.Name)

	stored := f.messages.byGatewayID["WA1"]
	require.NotNil(t, stored)
	assert.Equal(t, messagesDomain.TypeText, stored.Type)
	assert.Equal(t, "Hola", stored.Content)

	assert.Contains(t, f.broadcast.events, "message_received")
	assert.Equal(t, 1, f.responder.calls)
}

func TestHandle_AliasAddressIgnored(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "t1", "main",
		inboundPayload("5511987654321@lid", "WA1", "Hola"))

	require.True(t, result.Success)
	assert.Equal(t, domain.TagMobileIgnored, result.MessageType)
	assert.Empty(t, f.contacts.contacts)
	assert.Empty(t, f.messages.byGatewayID)
	assert.Empty(t, f.conversations.conversations)
}

func TestHandle_GroupAddressIgnored(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "t1", "main",
		inboundPayload("120363041234567890@g.us", "WA1", "Hola"))

	require.True(t, result.Success)
	assert.Equal(t, domain.TagGroupIgnored, result.MessageType)
	assert.Empty(t, f.messages.byGatewayID)
}

func TestHandle_ReactionIgnored(t *testing.T) {
	f := newFixture()

	payload := inboundPayload("5511987654321@s.whatsapp.net", "WA1", "")
	payload.Data["message"] = map[string]any{
		"reactionMessage": map[string]any{"text": "👍"},
	}

	result := f.orchestrator.Handle(context.Background(), "t1", "main", payload)

	require.True(t, result.Success)
	assert.Equal(t, domain.TagReactionIgnored, result.MessageType)
	assert.Empty(t, f.messages.byGatewayID)
}

func TestHandle_DuplicateDelivery(t *testing.T) {
	f := newFixture()
	payload := inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola")

	first := f.orchestrator.Handle(context.Background(), "t1", "main", payload)
	require.True(t, first.Success)
	require.Equal(t, domain.TagMessageProcessed, first.MessageType)

	second := f.orchestrator.Handle(context.Background(), "t1", "main", payload)
	require.True(t, second.Success)
	assert.Equal(t, domain.TagDuplicateMessage, second.MessageType)
	assert.Len(t, f.messages.byGatewayID, 1, "message count stays at 1")
	assert.Equal(t, 1, f.responder.calls, "duplicates never re-trigger automation")
}

func TestHandle_UnknownTenant(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "ghost", "main",
		inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola"))

	require.False(t, result.Success)
	assert.Equal(t, domain.TagValidationError, result.MessageType)
}

func TestHandle_DisabledTenant(t *testing.T) {
	f := newFixture()
	f.tenants.summaries["t1"] = tenantsDomain.Summary{ID: "t1", Enabled: false}

	result := f.orchestrator.Handle(context.Background(), "t1", "main",
		inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola"))

	require.False(t, result.Success)
	assert.Equal(t, domain.TagValidationError, result.MessageType)
}

func TestHandle_InstanceMismatch(t *testing.T) {
	f := newFixture()
	payload := inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola")
	payload.Instance = "other"

	result := f.orchestrator.Handle(context.Background(), "t1", "main", payload)

	require.False(t, result.Success)
	assert.Equal(t, domain.TagValidationError, result.MessageType)
}

func TestHandle_MissingEventOrData(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "t1", "main", domain.Payload{Event: "messages.upsert"})
	require.False(t, result.Success)
	assert.Equal(t, domain.TagValidationError, result.MessageType)

	result = f.orchestrator.Handle(context.Background(), "t1", "main", domain.Payload{Data: map[string]any{}})
	require.False(t, result.Success)
	assert.Equal(t, domain.TagValidationError, result.MessageType)
}

func TestHandle_SendMessageAlwaysSelf(t *testing.T) {
	f := newFixture()
	payload := inboundPayload("5511987654321@s.whatsapp.net", "WA1", "our reply")
	payload.Event = "send.message"

	result := f.orchestrator.Handle(context.Background(), "t1", "main", payload)

	require.True(t, result.Success)
	assert.Equal(t, domain.TagMessageProcessed, result.MessageType)
	assert.True(t, f.messages.byGatewayID["WA1"].FromMe)
	assert.Equal(t, 1, f.contacts.outboundCalls, "outbound events never touch contact identity")
	assert.Zero(t, f.contacts.identityCalls)
	assert.Zero(t, f.responder.calls, "self messages never trigger automation")
}

func TestHandle_StatusUpdate(t *testing.T) {
	f := newFixture()
	payload := inboundPayload("5511987654321@s.whatsapp.net", "WA1", "Hola")

	first := f.orchestrator.Handle(context.Background(), "t1", "main", payload)
	require.True(t, first.Success)

	update := domain.Payload{
		Event:    "messages.update",
		Instance: "main",
		Data: map[string]any{
			"key":    map[string]any{"remoteJid": "5511987654321@s.whatsapp.net", "id": "WA1"},
			"status": "READ",
		},
	}
	result := f.orchestrator.Handle(context.Background(), "t1", "main", update)

	require.True(t, result.Success)
	assert.Equal(t, domain.TagMessageStatusUpdated, result.MessageType)
	assert.Equal(t, messagesDomain.StatusRead, f.messages.byGatewayID["WA1"].Status)
	assert.Equal(t, 1, f.messages.refreshes, "status writes go through the ingest so caches drop")
}

func TestHandle_StatusUpdateForUnknownMessage(t *testing.T) {
	f := newFixture()

	update := domain.Payload{
		Event:    "messages.update",
		Instance: "main",
		Data: map[string]any{
			"key":    map[string]any{"id": "never-seen"},
			"status": "READ",
		},
	}
	result := f.orchestrator.Handle(context.Background(), "t1", "main", update)

	require.True(t, result.Success, "unknown acks are a no-op, not a failure")
	assert.Equal(t, domain.TagMessageStatusUpdated, result.MessageType)
}

func TestHandle_ContactsUpsert(t *testing.T) {
	f := newFixture()

	payload := domain.Payload{
		Event:    "contacts.upsert",
		Instance: "main",
		Data: map[string]any{
			"contacts": []any{
				map[string]any{"id": "5511987654321@s.whatsapp.net", "notify": "Maria Silva"},
				map[string]any{"id": "5511912345678@s.whatsapp.net", "name": "Joao"},
			},
		},
	}
	result := f.orchestrator.Handle(context.Background(), "t1", "main", payload)

	require.True(t, result.Success)
	assert.Equal(t, domain.TagContactUpserted, result.MessageType)
	assert.Len(t, f.contacts.contacts, 2)
}

func TestHandle_UnsupportedEvent(t *testing.T) {
	f := newFixture()

	result := f.orchestrator.Handle(context.Background(), "t1", "main", domain.Payload{
		Event: "presence.update",
		Data:  map[string]any{"id": "x"},
	})

	require.True(t, result.Success, "unknown events must not look like failures to the gateway")
	assert.Equal(t, domain.TagUnsupportedEvent, result.MessageType)
}

func TestFilterOrder_ReactionBeatsAddressRules(t *testing.T) {
	m := domain.ExtractedMessage{RemoteJid: "5511987654321@g.us", IsReaction: true}
	assert.Equal(t, domain.TagReactionIgnored, FilterMessage(m))
}

func TestExtract_MediaMessage(t *testing.T) {
	m := Extract(map[string]any{
		"key": map[string]any{"remoteJid": "55119@s.whatsapp.net", "id": "WA9"},
		"message": map[string]any{
			"imageMessage": map[string]any{"caption": "look", "url": "https://cdn/img.enc"},
		},
	})
	assert.Equal(t, "imageMessage", m.RawType)
	assert.Equal(t, "look", m.Content)
	assert.Equal(t, "https://cdn/img.enc", m.MediaURL)
}

func TestExtract_FallbackIdentifiers(t *testing.T) {
	m := Extract(map[string]any{
		"remoteJid": "55119@s.whatsapp.net",
		"messageId": "WA7",
	})
	assert.Equal(t, "55119@s.whatsapp.net", m.RemoteJid)
	assert.Equal(t, "WA7", m.GatewayID)
}
