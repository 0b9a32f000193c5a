package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
	agentsDomain "github.com/wappanel/wappanel/agents/domain"
	"github.com/wappanel/wappanel/conversations/domain"
	instancesDomain "github.com/wappanel/wappanel/instances/domain"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/ttlcache"
)

// Lifecycle owns conversation creation, agent auto-assignment and the
// status state machine.
type Lifecycle struct {
	repo      domain.ConversationRepository
	agents    agentsDomain.AgentRepository
	instances instancesDomain.InstanceRepository
	cache     *ttlcache.Cache
	listTTL   time.Duration
}

func NewLifecycle(
	repo domain.ConversationRepository,
	agents agentsDomain.AgentRepository,
	instances instancesDomain.InstanceRepository,
	cache *ttlcache.Cache,
	listTTL time.Duration,
) *Lifecycle {
	if listTTL <= 0 {
		listTTL = 10 * time.Minute
	}
	return &Lifecycle{repo: repo, agents: agents, instances: instances, cache: cache, listTTL: listTTL}
}

// defaultListLimit is the page size the cached active-conversation list
// is stored under. Other page shapes always hit the database.
const defaultListLimit = 50

// List returns a tenant's conversations filtered by status. The first
// page of ACTIVE conversations is the hot path for panel views and is
// served from cache until a write invalidates it.
func (l *Lifecycle) List(ctx context.Context, tenantID string, status domain.Status, limit, offset int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	cacheable := l.cache != nil && status == domain.StatusActive && offset == 0 && limit == defaultListLimit
	key := ttlcache.ConversationListKey(tenantID)
	if cacheable {
		if cached, ok := l.cache.Get(key); ok {
			if conversations, ok := cached.([]*domain.Conversation); ok {
				return conversations, nil
			}
		}
	}

	conversations, err := l.repo.ListByTenant(ctx, tenantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if cacheable {
		l.cache.Set(key, conversations, l.listTTL)
	}
	return conversations, nil
}

// GetOrCreateInput identifies the conversation a message belongs to.
type GetOrCreateInput struct {
	ContactID         string
	TenantID          string
	MessageTimestamp  int64 // unix seconds, from the gateway payload
	InstanceName      string
	GatewayInstanceID string
}

func (in GetOrCreateInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.ContactID, validation.Required),
		validation.Field(&in.TenantID, validation.Required),
		validation.Field(&in.InstanceName, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if in.MessageTimestamp <= 0 {
		return pkgError.ValidationError("message timestamp must be positive")
	}
	// Future timestamps are an input error, not something to clamp.
	if time.Unix(in.MessageTimestamp, 0).After(time.Now().Add(time.Minute)) {
		return pkgError.ValidationError("message timestamp is in the future")
	}
	return nil
}

// GetOrCreate returns the contact's ACTIVE conversation, creating one when
// none exists. On both paths the lead-agent assignment policy runs, so a
// tenant can graduate from manual to automated handling without migrating
// open conversations.
func (l *Lifecycle) GetOrCreate(ctx context.Context, in GetOrCreateInput) (*domain.Conversation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	instanceID := l.lookupInstanceID(ctx, in)
	messageAt := time.Unix(in.MessageTimestamp, 0).UTC()

	conversation, err := l.repo.FindActiveByContact(ctx, in.ContactID, in.TenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrConversationNotFound) {
			return nil, fmt.Errorf("find active conversation: %w", err)
		}
		return l.create(ctx, in, instanceID, messageAt)
	}

	return l.refresh(ctx, conversation, in, instanceID, messageAt)
}

func (l *Lifecycle) create(ctx context.Context, in GetOrCreateInput, instanceID string, messageAt time.Time) (*domain.Conversation, error) {
	conversation := &domain.Conversation{
		TenantID:        in.TenantID,
		ContactID:       in.ContactID,
		Status:          domain.StatusActive,
		Type:            "direct",
		Channel:         "whatsapp",
		ChannelInstance: in.InstanceName,
		InstanceID:      instanceID,
		LastMessageAt:   &messageAt,
	}

	lead, err := l.agents.GetLeadAgent(ctx, in.TenantID)
	if err == nil {
		conversation.AgentID = lead.ID
		conversation.IsAiActive = true
	} else if !errors.Is(err, agentsDomain.ErrAgentNotFound) {
		return nil, fmt.Errorf("lead agent lookup: %w", err)
	}
	// No lead agent: this tenant is under manual-only handling.

	if err := l.repo.Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"tenant_id":       in.TenantID,
		"contact_id":      in.ContactID,
		"agent_id":        conversation.AgentID,
		"ai_active":       conversation.IsAiActive,
	}).Info("[CONVERSATIONS] Conversation created")

	l.invalidateList(in.TenantID)
	return conversation, nil
}

func (l *Lifecycle) refresh(ctx context.Context, conversation *domain.Conversation, in GetOrCreateInput, instanceID string, messageAt time.Time) (*domain.Conversation, error) {
	conversation.LastMessageAt = &messageAt

	if in.InstanceName != "" && conversation.ChannelInstance != in.InstanceName {
		conversation.ChannelInstance = in.InstanceName
	}
	if instanceID != "" && conversation.InstanceID != instanceID {
		conversation.InstanceID = instanceID
	}

	// Re-run the assignment policy on every message: unassigned
	// conversations pick up a newly flagged lead, and every conversation
	// loses automation while the tenant has no lead. An existing agent is
	// never reassigned.
	lead, err := l.agents.GetLeadAgent(ctx, in.TenantID)
	switch {
	case err == nil:
		if conversation.AgentID == "" {
			conversation.AgentID = lead.ID
			conversation.IsAiActive = true
			logrus.WithFields(logrus.Fields{
				"conversation_id": conversation.ID,
				"agent_id":        lead.ID,
			}).Info("[CONVERSATIONS] Lead agent assigned to existing conversation")
		} else if conversation.AgentID == lead.ID && !conversation.IsAiActive {
			// The assigned agent regained the lead flag.
			conversation.IsAiActive = true
		}
	case errors.Is(err, agentsDomain.ErrAgentNotFound):
		if conversation.IsAiActive {
			// The tenant lost its lead agent after creation. The agent
			// stays on the conversation for attribution, automation stops.
			conversation.IsAiActive = false
			logrus.WithFields(logrus.Fields{
				"conversation_id": conversation.ID,
				"agent_id":        conversation.AgentID,
			}).Info("[CONVERSATIONS] Lead agent lost, automated handling disabled")
		}
	default:
		return nil, fmt.Errorf("lead agent lookup: %w", err)
	}

	if err := l.repo.Update(ctx, conversation); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	l.invalidateList(in.TenantID)
	return conversation, nil
}

// UpdateStatus applies a status change after validating it against the
// transition table. The current status is read fresh to avoid acting on a
// stale copy.
func (l *Lifecycle) UpdateStatus(ctx context.Context, conversationID string, target domain.Status) (*domain.Conversation, error) {
	conversation, err := l.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(conversation.Status, target) {
		return nil, domain.InvalidTransitionError(conversation.Status, target)
	}

	if err := l.repo.UpdateStatus(ctx, conversationID, target); err != nil {
		return nil, err
	}
	conversation.Status = target

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"status":          target,
	}).Info("[CONVERSATIONS] Status updated")

	l.invalidateList(conversation.TenantID)
	return conversation, nil
}

// Assign sets the human assignee. Independent of the agent/AI fields.
func (l *Lifecycle) Assign(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	if userID == "" {
		return nil, pkgError.ValidationError("user id is required")
	}

	conversation, err := l.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	conversation.AssignedUserID = userID
	if err := l.repo.Update(ctx, conversation); err != nil {
		return nil, err
	}

	l.invalidateList(conversation.TenantID)
	return conversation, nil
}

// Close transitions the conversation to CLOSED.
func (l *Lifecycle) Close(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	return l.UpdateStatus(ctx, conversationID, domain.StatusClosed)
}

// Archive transitions the conversation to ARCHIVED.
func (l *Lifecycle) Archive(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	return l.UpdateStatus(ctx, conversationID, domain.StatusArchived)
}

func (l *Lifecycle) lookupInstanceID(ctx context.Context, in GetOrCreateInput) string {
	if l.instances == nil {
		return ""
	}
	instance, err := l.instances.GetByNameAndTenant(ctx, in.InstanceName, in.TenantID)
	if err != nil {
		if errors.Is(err, instancesDomain.ErrInstanceNotFound) {
			logrus.WithFields(logrus.Fields{
				"instance":  in.InstanceName,
				"tenant_id": in.TenantID,
			}).Debug("[CONVERSATIONS] No instance record for webhook instance name")
		} else {
			logrus.Warnf("[CONVERSATIONS] Instance lookup failed: %v", err)
		}
		return ""
	}
	return instance.ID
}

func (l *Lifecycle) invalidateList(tenantID string) {
	if l.cache != nil {
		l.cache.Invalidate(ttlcache.ConversationListKey(tenantID))
	}
}
