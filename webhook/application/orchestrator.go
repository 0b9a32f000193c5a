package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	contactsApp "github.com/wappanel/wappanel/contacts/application"
	contactsDomain "github.com/wappanel/wappanel/contacts/domain"
	conversationsApp "github.com/wappanel/wappanel/conversations/application"
	conversationsDomain "github.com/wappanel/wappanel/conversations/domain"
	messagesApp "github.com/wappanel/wappanel/messages/application"
	messagesDomain "github.com/wappanel/wappanel/messages/domain"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/msgworker"
	"github.com/wappanel/wappanel/pkg/normalize"
	tenantsDomain "github.com/wappanel/wappanel/tenants/domain"
	"github.com/wappanel/wappanel/webhook/domain"
)

const sourceWebhook = "webhook"

// Consumer-side views of the collaborating services, so the pipeline
// can be exercised with stubs.
type tenantProvider interface {
	GetSummary(ctx context.Context, tenantID string) (tenantsDomain.Summary, error)
}

type contactResolver interface {
	Upsert(ctx context.Context, in contactsApp.UpsertInput) (*contactsDomain.Contact, error)
	UpsertWithoutIdentityUpdate(ctx context.Context, in contactsApp.UpsertInput) (*contactsDomain.Contact, error)
}

type conversationStarter interface {
	GetOrCreate(ctx context.Context, in conversationsApp.GetOrCreateInput) (*conversationsDomain.Conversation, error)
}

type messageIngest interface {
	Save(ctx context.Context, in messagesApp.SaveInput) (*messagesDomain.Message, bool, error)
	RefreshDeliveryStatus(ctx context.Context, message *messagesDomain.Message, status messagesDomain.DeliveryStatus) error
}

type messageLookup interface {
	FindByGatewayIDForTenant(ctx context.Context, gatewayID, tenantID string) (*messagesDomain.Message, error)
}

type broadcaster interface {
	Broadcast(conversationID, event string, payload any)
}

type autoResponder interface {
	MaybeRespond(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID, instanceName string)
}

type mediaStore interface {
	Store(ctx context.Context, tenantID, messageID, url string) error
}

// Orchestrator runs the webhook pipeline: validate, classify, filter,
// resolve contact, resolve conversation, persist message, then the
// best-effort side channels.
type Orchestrator struct {
	tenants       tenantProvider
	contacts      contactResolver
	conversations conversationStarter
	ingest        messageIngest
	lookup        messageLookup
	broadcast     broadcaster
	responder     autoResponder
	media         mediaStore
	pool          *msgworker.Pool
}

type OrchestratorDeps struct {
	Tenants       tenantProvider
	Contacts      contactResolver
	Conversations conversationStarter
	Ingest        messageIngest
	Lookup        messageLookup
	Broadcast     broadcaster
	Responder     autoResponder
	Media         mediaStore
	Pool          *msgworker.Pool
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		tenants:       deps.Tenants,
		contacts:      deps.Contacts,
		conversations: deps.Conversations,
		ingest:        deps.Ingest,
		lookup:        deps.Lookup,
		broadcast:     deps.Broadcast,
		responder:     deps.Responder,
		media:         deps.Media,
		pool:          deps.Pool,
	}
}

// Handle processes one delivery. It always returns a Result; errors
// are classified, never propagated, since the gateway only acts on the
// outcome tag.
func (o *Orchestrator) Handle(ctx context.Context, tenantID, instanceName string, payload domain.Payload) domain.Result {
	if payload.Event == "" || payload.Data == nil {
		return domain.Fail(domain.TagValidationError, "event and data are required")
	}
	if payload.Instance != "" && instanceName != "" && payload.Instance != instanceName {
		return domain.Fail(domain.TagValidationError, "payload instance does not match endpoint instance")
	}

	summary, err := o.tenants.GetSummary(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantsDomain.ErrTenantNotFound) {
			return domain.Fail(domain.TagValidationError, "unknown tenant")
		}
		return o.failFromError(err)
	}
	if !summary.Enabled {
		return domain.Fail(domain.TagValidationError, "tenant disabled")
	}

	switch ClassifyEvent(payload.Event) {
	case domain.EventMessage:
		return o.handleMessage(ctx, tenantID, instanceName, payload, false)
	case domain.EventSendMessage:
		// Send events originate from this side; the gateway echoes them
		// back without a fromMe flag.
		return o.handleMessage(ctx, tenantID, instanceName, payload, true)
	case domain.EventStatusUpdate:
		return o.handleStatusUpdate(ctx, tenantID, payload)
	case domain.EventContacts:
		return o.handleContacts(ctx, tenantID, payload)
	default:
		return domain.Ok(domain.TagUnsupportedEvent, map[string]any{"event": payload.Event})
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, tenantID, instanceName string, payload domain.Payload, forceSelf bool) domain.Result {
	extracted := Extract(payload.Data)
	if forceSelf {
		extracted.FromMe = true
	}

	if extracted.RemoteJid == "" {
		return domain.Fail(domain.TagValidationError, "payload carries no remote address")
	}
	if tag := FilterMessage(extracted); tag != "" {
		logrus.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"remote":    extracted.RemoteJid,
			"tag":       tag,
		}).Debug("[WEBHOOK] Message filtered")
		return domain.Ok(tag, nil)
	}
	if extracted.GatewayID == "" {
		return domain.Fail(domain.TagValidationError, "payload carries no message id")
	}

	// Fast path: a gateway id already stored anywhere in the tenant
	// short-circuits contact and conversation resolution. The save
	// below remains the authoritative duplicate check.
	if existing, err := o.lookup.FindByGatewayIDForTenant(ctx, extracted.GatewayID, tenantID); err == nil {
		return o.saveDuplicate(ctx, tenantID, instanceName, payload.Event, extracted, existing)
	} else if !errors.Is(err, messagesDomain.ErrMessageNotFound) {
		return o.failFromError(err)
	}

	contact, err := o.resolveContact(ctx, tenantID, extracted)
	if err != nil {
		return o.failFromError(err)
	}

	timestamp := extracted.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	conversation, err := o.conversations.GetOrCreate(ctx, conversationsApp.GetOrCreateInput{
		ContactID:         contact.ID,
		TenantID:          tenantID,
		MessageTimestamp:  timestamp,
		InstanceName:      instanceName,
		GatewayInstanceID: payload.Instance,
	})
	if err != nil {
		return o.failFromError(err)
	}

	message, duplicate, err := o.ingest.Save(ctx, o.saveInput(tenantID, conversation.ID, instanceName, payload.Event, extracted))
	if err != nil {
		return o.failFromError(err)
	}
	if duplicate {
		return domain.Ok(domain.TagDuplicateMessage, map[string]any{"messageId": message.ID})
	}

	o.afterStore(ctx, message, conversation, tenantID, instanceName, extracted)

	return domain.Ok(domain.TagMessageProcessed, map[string]any{
		"messageId":      message.ID,
		"conversationId": conversation.ID,
		"contactId":      contact.ID,
	})
}

func (o *Orchestrator) resolveContact(ctx context.Context, tenantID string, extracted domain.ExtractedMessage) (*contactsDomain.Contact, error) {
	in := contactsApp.UpsertInput{
		Phone:       extracted.RemoteJid,
		DisplayName: extracted.PushName,
		TenantID:    tenantID,
		ChannelID:   extracted.RemoteJid,
		Source:      sourceWebhook,
	}
	if extracted.FromMe {
		// Outbound events carry our own push name, never the contact's.
		return o.contacts.UpsertWithoutIdentityUpdate(ctx, in)
	}
	in.UpdateIdentity = true
	return o.contacts.Upsert(ctx, in)
}

// saveDuplicate routes a known gateway id through the ingest save so
// the status refresh and cache invalidation stay in one place.
func (o *Orchestrator) saveDuplicate(ctx context.Context, tenantID, instanceName, event string, extracted domain.ExtractedMessage, existing *messagesDomain.Message) domain.Result {
	message, _, err := o.ingest.Save(ctx, o.saveInput(tenantID, existing.ConversationID, instanceName, event, extracted))
	if err != nil {
		return o.failFromError(err)
	}
	return domain.Ok(domain.TagDuplicateMessage, map[string]any{"messageId": message.ID})
}

func (o *Orchestrator) saveInput(tenantID, conversationID, instanceName, event string, extracted domain.ExtractedMessage) messagesApp.SaveInput {
	return messagesApp.SaveInput{
		TenantID:         tenantID,
		ConversationID:   conversationID,
		GatewayMessageID: extracted.GatewayID,
		SenderPhone:      normalize.Phone(extracted.RemoteJid),
		Content:          extracted.Content,
		MediaURL:         extracted.MediaURL,
		RawType:          extracted.RawType,
		RawStatus:        extracted.RawStatus,
		FromMe:           extracted.FromMe,
		PushName:         extracted.PushName,
		IsGroup:          extracted.IsGroup,
		GatewayTimestamp: extracted.Timestamp,
		InstanceName:     instanceName,
		Event:            event,
	}
}

// afterStore runs the best-effort side channels. The message is
// already durable; nothing here may flip the result to failure.
func (o *Orchestrator) afterStore(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID, instanceName string, extracted domain.ExtractedMessage) {
	if o.broadcast != nil {
		o.broadcast.Broadcast(conversation.ID, "message_received", map[string]any{
			"messageId": message.ID,
			"type":      message.Type,
			"fromMe":    message.FromMe,
		})
	}

	if o.media != nil && extracted.MediaURL != "" {
		o.dispatch(tenantID, conversation.ID, "media_store", func(jobCtx context.Context) error {
			if err := o.media.Store(jobCtx, tenantID, message.ID, extracted.MediaURL); err != nil {
				logrus.Warnf("[WEBHOOK] Media store failed for %s: %v", message.ID, err)
			}
			return nil
		})
	}

	if o.responder != nil && !message.FromMe {
		o.dispatch(tenantID, conversation.ID, "auto_response", func(jobCtx context.Context) error {
			o.responder.MaybeRespond(jobCtx, message, conversation, tenantID, instanceName)
			return nil
		})
	}
}

func (o *Orchestrator) dispatch(tenantID, conversationID, name string, handler func(context.Context) error) {
	if o.pool == nil {
		// No pool wired (tests); run inline.
		_ = handler(context.Background())
		return
	}
	o.pool.Dispatch(msgworker.Job{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Name:           name,
		Handler:        handler,
	})
}

func (o *Orchestrator) handleStatusUpdate(ctx context.Context, tenantID string, payload domain.Payload) domain.Result {
	extracted := Extract(payload.Data)
	if extracted.GatewayID == "" {
		return domain.Fail(domain.TagValidationError, "status update carries no message id")
	}
	if extracted.RawStatus == "" {
		return domain.Fail(domain.TagValidationError, "status update carries no status")
	}

	existing, err := o.lookup.FindByGatewayIDForTenant(ctx, extracted.GatewayID, tenantID)
	if err != nil {
		if errors.Is(err, messagesDomain.ErrMessageNotFound) {
			// The gateway reports acks for messages we never stored
			// (filtered, pre-onboarding). Nothing to update.
			return domain.Ok(domain.TagMessageStatusUpdated, map[string]any{"updated": false})
		}
		return o.failFromError(err)
	}

	status := messagesDomain.NormalizeDeliveryStatus(extracted.RawStatus)
	updated := status != existing.Status
	// Routing the write through the ingest keeps the page-cache
	// invalidation in one place.
	if err := o.ingest.RefreshDeliveryStatus(ctx, existing, status); err != nil {
		return o.failFromError(err)
	}
	return domain.Ok(domain.TagMessageStatusUpdated, map[string]any{
		"messageId": existing.ID,
		"status":    status,
		"updated":   updated,
	})
}

func (o *Orchestrator) handleContacts(ctx context.Context, tenantID string, payload domain.Payload) domain.Result {
	entries := contactEntries(payload.Data)
	if len(entries) == 0 {
		return domain.Fail(domain.TagValidationError, "contacts event carries no contacts")
	}

	upserted := 0
	for _, entry := range entries {
		phone := str(entry["id"])
		if phone == "" {
			phone = str(entry["remoteJid"])
		}
		if phone == "" {
			continue
		}
		name := str(entry["notify"])
		if name == "" {
			name = str(entry["name"])
		}
		_, err := o.contacts.Upsert(ctx, contactsApp.UpsertInput{
			Phone:          phone,
			DisplayName:    name,
			TenantID:       tenantID,
			ChannelID:      phone,
			Source:         "contacts_sync",
			UpdateIdentity: true,
		})
		if err != nil {
			logrus.Warnf("[WEBHOOK] Contact sync failed for %s: %v", phone, err)
			continue
		}
		upserted++
	}
	return domain.Ok(domain.TagContactUpserted, map[string]any{"upserted": upserted})
}

func contactEntries(data map[string]any) []map[string]any {
	if raw, ok := data["contacts"].([]any); ok {
		entries := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if entry, ok := item.(map[string]any); ok {
				entries = append(entries, entry)
			}
		}
		return entries
	}
	if str(data["id"]) != "" || str(data["remoteJid"]) != "" {
		return []map[string]any{data}
	}
	return nil
}

func (o *Orchestrator) failFromError(err error) domain.Result {
	tag := classifyError(err)
	logrus.WithFields(logrus.Fields{
		"tag":   tag,
		"error": err.Error(),
	}).Error("[WEBHOOK] Pipeline failed")
	return domain.Fail(tag, err.Error())
}

// classifyError maps a pipeline error onto the outcome taxonomy.
func classifyError(err error) string {
	switch {
	case err == nil:
		return domain.TagUnknownError
	case isValidation(err):
		return domain.TagValidationError
	case errors.Is(err, contactsDomain.ErrContactNotFound):
		return domain.TagContactError
	case errors.Is(err, conversationsDomain.ErrConversationNotFound),
		errors.Is(err, conversationsDomain.ErrInvalidTransition):
		return domain.TagConversationError
	case errors.Is(err, messagesDomain.ErrMessageNotFound):
		return domain.TagMessageError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key value"):
		return domain.TagDuplicateError
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host"):
		return domain.TagNetworkError
	case strings.Contains(msg, "database") || strings.Contains(msg, "sql") ||
		strings.Contains(msg, "constraint"):
		return domain.TagDatabaseError
	case strings.Contains(msg, "contact"):
		return domain.TagContactError
	case strings.Contains(msg, "conversation"):
		return domain.TagConversationError
	case strings.Contains(msg, "message"):
		return domain.TagMessageError
	default:
		return domain.TagUnknownError
	}
}

func isValidation(err error) bool {
	var v pkgError.ValidationError
	return errors.As(err, &v)
}
