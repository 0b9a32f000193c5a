package autoresponder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	agentsDomain "github.com/wappanel/wappanel/agents/domain"
	conversationsDomain "github.com/wappanel/wappanel/conversations/domain"
	messagesDomain "github.com/wappanel/wappanel/messages/domain"
	"github.com/wappanel/wappanel/pkg/crypto"
	tenantsDomain "github.com/wappanel/wappanel/tenants/domain"
)

// DefaultCooldown guards against automated double-replies when webhook
// deliveries race.
const DefaultCooldown = 30 * time.Second

type tenantSource interface {
	GetTenant(ctx context.Context, tenantID string) (*tenantsDomain.Tenant, error)
}

type agentSource interface {
	GetByID(ctx context.Context, id string) (*agentsDomain.Agent, error)
}

type sessionStore interface {
	UpdateAiSession(ctx context.Context, id, sessionID string) error
}

type historySource interface {
	History(ctx context.Context, conversationID string, limit int) ([]*messagesDomain.Message, error)
	LastByRole(ctx context.Context, conversationID string, role messagesDomain.Role) (*messagesDomain.Message, error)
}

type replySaver interface {
	SaveAutomatedReply(ctx context.Context, tenantID, conversationID, agentID, content string) (*messagesDomain.Message, error)
}

type broadcaster interface {
	Broadcast(conversationID, event string, payload any)
}

// Responder produces best-effort automated replies. Nothing in here
// may fail the ingestion pipeline; every error path logs and returns.
type Responder struct {
	tenants       tenantSource
	agents        agentSource
	sessions      sessionStore
	history       historySource
	replies       replySaver
	broadcast     broadcaster
	ai            AIClient
	cooldown      time.Duration
	maxHistory    int
	defaultModel  string
	disableTyping bool
	decrypt       func(string) (string, error)
}

type ResponderDeps struct {
	Tenants      tenantSource
	Agents       agentSource
	Sessions     sessionStore
	History      historySource
	Replies      replySaver
	Broadcast    broadcaster
	AI           AIClient
	Cooldown     time.Duration
	MaxHistory   int
	DefaultModel string
	// DisableTyping suppresses the typing_start/typing_stop presence
	// events while a completion is in flight.
	DisableTyping bool
}

func NewResponder(deps ResponderDeps) *Responder {
	cooldown := deps.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	maxHistory := deps.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &Responder{
		tenants:       deps.Tenants,
		agents:        deps.Agents,
		sessions:      deps.Sessions,
		history:       deps.History,
		replies:       deps.Replies,
		broadcast:     deps.Broadcast,
		ai:            deps.AI,
		cooldown:      cooldown,
		maxHistory:    maxHistory,
		defaultModel:  deps.DefaultModel,
		disableTyping: deps.DisableTyping,
		decrypt:       crypto.Decrypt,
	}
}

// verdict is the eligibility outcome plus everything the trigger needs
// that the checks already had to load.
type verdict struct {
	eligible bool
	reason   string
	tenant   *tenantsDomain.Tenant
	agent    *agentsDomain.Agent
}

// IsEligible runs the eligibility checks in fixed order and
// short-circuits on the first failing one. It never returns an error;
// a check that cannot be evaluated counts as not eligible.
func (r *Responder) IsEligible(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID string) (bool, string) {
	v := r.evaluate(ctx, message, conversation, tenantID)
	return v.eligible, v.reason
}

func (r *Responder) evaluate(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID string) verdict {
	if message.FromMe || message.SenderType != messagesDomain.SenderContact {
		return verdict{reason: "self_message"}
	}
	if message.Type != messagesDomain.TypeText {
		return verdict{reason: "non_text_message"}
	}
	if !conversation.IsAiActive {
		return verdict{reason: "ai_inactive"}
	}
	if conversation.AgentID == "" {
		return verdict{reason: "no_agent_assigned"}
	}

	agent, err := r.agents.GetByID(ctx, conversation.AgentID)
	if err != nil {
		if !errors.Is(err, agentsDomain.ErrAgentNotFound) {
			logrus.Warnf("[AUTORESPONDER] Agent lookup failed: %v", err)
		}
		return verdict{reason: "agent_missing"}
	}
	if !agent.Active {
		return verdict{reason: "agent_inactive"}
	}

	last, err := r.history.LastByRole(ctx, conversation.ID, messagesDomain.RoleAssistant)
	if err == nil && time.Since(last.CreatedAt) < r.cooldown {
		return verdict{reason: "cooldown"}
	}
	if err != nil && !errors.Is(err, messagesDomain.ErrMessageNotFound) {
		logrus.Warnf("[AUTORESPONDER] Cooldown lookup failed: %v", err)
		return verdict{reason: "cooldown_check_failed"}
	}

	tenant, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		logrus.Warnf("[AUTORESPONDER] Tenant lookup failed: %v", err)
		return verdict{reason: "tenant_missing"}
	}
	if !tenant.HasAIConfig() {
		return verdict{reason: "no_ai_config"}
	}

	return verdict{eligible: true, tenant: tenant, agent: agent}
}

// MaybeRespond triggers an automated reply when the message is
// eligible. Called from the worker pool after the message is durable.
func (r *Responder) MaybeRespond(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenantID, instanceName string) {
	v := r.evaluate(ctx, message, conversation, tenantID)
	if !v.eligible {
		logrus.WithFields(logrus.Fields{
			"conversation_id": conversation.ID,
			"reason":          v.reason,
		}).Debug("[AUTORESPONDER] Not eligible")
		return
	}
	r.trigger(ctx, message, conversation, v.tenant, v.agent, instanceName)
}

func (r *Responder) trigger(ctx context.Context, message *messagesDomain.Message, conversation *conversationsDomain.Conversation, tenant *tenantsDomain.Tenant, agent *agentsDomain.Agent, instanceName string) {
	apiKey, err := r.decrypt(tenant.AI.EncryptedAPIKey)
	if err != nil {
		logrus.Errorf("[AUTORESPONDER] API key decrypt failed for tenant %s: %v", tenant.ID, err)
		return
	}

	sessionID, err := r.resolveSession(ctx, conversation, apiKey, systemPrompt(tenant, agent))
	if err != nil {
		logrus.Errorf("[AUTORESPONDER] Session resolve failed: %v", err)
		return
	}

	r.emitTyping(conversation.ID, "typing_start")
	defer r.emitTyping(conversation.ID, "typing_stop")

	history, err := r.loadHistory(ctx, conversation.ID, message.ID)
	if err != nil {
		logrus.Warnf("[AUTORESPONDER] History load failed, replying without context: %v", err)
	}

	reply, err := r.ai.Complete(ctx, CompletionRequest{
		APIKey:       apiKey,
		Model:        r.model(tenant, agent),
		SystemPrompt: systemPrompt(tenant, agent),
		SessionID:    sessionID,
		History:      history,
		UserText:     message.Content,
		Metadata: map[string]string{
			"contact":      pushName(message),
			"phone":        contactPhone(message),
			"instance":     instanceName,
			"tenant":       tenant.Name,
			"message_type": string(message.Type),
			"source":       "whatsapp",
		},
	})
	if err != nil {
		logrus.Errorf("[AUTORESPONDER] Completion failed for conversation %s: %v", conversation.ID, err)
		return
	}
	if reply == "" {
		logrus.Debugf("[AUTORESPONDER] Empty completion for conversation %s", conversation.ID)
		return
	}

	stored, err := r.replies.SaveAutomatedReply(ctx, tenant.ID, conversation.ID, agent.ID, reply)
	if err != nil {
		logrus.Errorf("[AUTORESPONDER] Reply persist failed: %v", err)
		return
	}

	if r.broadcast != nil {
		r.broadcast.Broadcast(conversation.ID, "message_received", map[string]any{
			"messageId": stored.ID,
			"fromMe":    true,
			"automated": true,
		})
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"agent_id":        agent.ID,
		"reply_id":        stored.ID,
	}).Info("[AUTORESPONDER] Automated reply sent")
}

// resolveSession reuses the conversation's AI session or lazily
// creates one and persists it for subsequent turns.
func (r *Responder) resolveSession(ctx context.Context, conversation *conversationsDomain.Conversation, apiKey, prompt string) (string, error) {
	if conversation.AiSessionID != "" {
		return conversation.AiSessionID, nil
	}
	sessionID, err := r.ai.CreateSession(ctx, apiKey, prompt)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := r.sessions.UpdateAiSession(ctx, conversation.ID, sessionID); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	conversation.AiSessionID = sessionID
	return sessionID, nil
}

func (r *Responder) loadHistory(ctx context.Context, conversationID, currentMessageID string) ([]Turn, error) {
	messages, err := r.history.History(ctx, conversationID, r.maxHistory)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		if m.ID == currentMessageID || m.Content == "" {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns, nil
}

func (r *Responder) emitTyping(conversationID, event string) {
	if r.broadcast == nil || r.disableTyping {
		return
	}
	r.broadcast.Broadcast(conversationID, event, map[string]any{"automated": true})
}

func (r *Responder) model(tenant *tenantsDomain.Tenant, agent *agentsDomain.Agent) string {
	if agent.Model != "" {
		return agent.Model
	}
	if tenant.AI.Model != "" {
		return tenant.AI.Model
	}
	return r.defaultModel
}

func systemPrompt(tenant *tenantsDomain.Tenant, agent *agentsDomain.Agent) string {
	if agent.SystemPrompt != "" {
		return agent.SystemPrompt
	}
	return tenant.AI.SystemPrompt
}

func pushName(message *messagesDomain.Message) string {
	if name, ok := message.Metadata["push_name"].(string); ok {
		return name
	}
	return ""
}

func contactPhone(message *messagesDomain.Message) string {
	if phone, ok := message.Metadata["phone"].(string); ok {
		return phone
	}
	return message.SenderID
}
