package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wappanel/wappanel/contacts/domain"
	"github.com/wappanel/wappanel/pkg/normalize"
	"github.com/wappanel/wappanel/pkg/ttlcache"
)

const channelWhatsApp = "whatsapp"

// Resolver converges gateway identities onto durable contacts. The gateway
// exposes at least three address formats for the same person (direct, alias,
// group member) and historical rows may hold partial phone values, so lookup
// runs through ordered strategies and stops at the first hit.
type Resolver struct {
	repo  domain.ContactRepository
	cache *ttlcache.Cache
	ttl   time.Duration
}

func NewResolver(repo domain.ContactRepository, cache *ttlcache.Cache, contactTTL time.Duration) *Resolver {
	if contactTTL <= 0 {
		contactTTL = 30 * time.Minute
	}
	return &Resolver{repo: repo, cache: cache, ttl: contactTTL}
}

// UpsertInput carries everything extracted from a webhook event that can
// refine a contact identity.
type UpsertInput struct {
	Phone       string
	DisplayName string
	TenantID    string
	ChannelID   string
	Source      string
	// UpdateIdentity is true for inbound events only. Outbound events carry
	// the sending account's display name, never the contact's.
	UpdateIdentity bool
}

// Resolve finds an existing contact for the given identity, or nil when none
// matches. It never creates.
func (r *Resolver) Resolve(ctx context.Context, phone, channelID, tenantID string) (*domain.Contact, error) {
	normalized := normalize.Phone(phone)

	// Strategy 1: exact channel id. Kept effective by the update path, which
	// refreshes the stored channel id whenever it drifts.
	if channelID != "" {
		contact, err := r.repo.FindByChannelID(ctx, channelID, tenantID)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, domain.ErrContactNotFound) {
			return nil, fmt.Errorf("lookup by channel id: %w", err)
		}
	}

	// Strategy 2: normalized phone.
	if normalized != "" {
		contact, err := r.repo.FindByPhone(ctx, normalized, tenantID)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, domain.ErrContactNotFound) {
			return nil, fmt.Errorf("lookup by normalized phone: %w", err)
		}
	}

	// Strategy 3: raw phone, for rows stored before normalization existed.
	if phone != "" && phone != normalized {
		contact, err := r.repo.FindByPhone(ctx, phone, tenantID)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, domain.ErrContactNotFound) {
			return nil, fmt.Errorf("lookup by raw phone: %w", err)
		}
	}

	// Strategy 4: substring scan over partial/legacy stored formats,
	// re-normalizing each candidate before comparing.
	if fragment := phoneFragment(normalized); fragment != "" {
		candidates, err := r.repo.FindByPhoneFragment(ctx, fragment, tenantID)
		if err != nil {
			return nil, fmt.Errorf("phone fragment scan: %w", err)
		}
		for _, c := range candidates {
			if normalize.Phone(c.Phone) == normalized {
				return c, nil
			}
		}
	}

	return nil, nil
}

// Upsert resolves the contact for the event, creating it when unknown and
// refining identity fields on a hit according to the update policy.
func (r *Resolver) Upsert(ctx context.Context, in UpsertInput) (*domain.Contact, error) {
	normalized := normalize.Phone(in.Phone)

	contact, err := r.Resolve(ctx, in.Phone, in.ChannelID, in.TenantID)
	if err != nil {
		return nil, err
	}

	if contact == nil {
		contact = &domain.Contact{
			TenantID:    in.TenantID,
			Name:        strings.TrimSpace(in.DisplayName),
			Phone:       normalized,
			ChannelID:   in.ChannelID,
			LastChannel: channelWhatsApp,
			Status:      domain.StatusNew,
			Source:      in.Source,
		}
		if err := r.repo.Create(ctx, contact); err != nil {
			return nil, fmt.Errorf("create contact: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"contact_id": contact.ID,
			"tenant_id":  in.TenantID,
			"phone":      normalized,
		}).Info("[CONTACTS] New contact created")
		r.invalidate(contact)
		return contact, nil
	}

	changed := false

	if in.ChannelID != "" && contact.ChannelID != in.ChannelID {
		contact.ChannelID = in.ChannelID
		changed = true
	}
	if contact.LastChannel != channelWhatsApp {
		contact.LastChannel = channelWhatsApp
		changed = true
	}

	// A longer normalized phone is a more complete one; never shorten.
	if len(normalized) > len(normalize.Phone(contact.Phone)) {
		contact.Phone = normalized
		changed = true
	}

	if in.UpdateIdentity && ShouldUpdateName(contact.Name, in.DisplayName, in.Source) {
		logrus.WithFields(logrus.Fields{
			"contact_id": contact.ID,
			"old_name":   contact.Name,
			"new_name":   in.DisplayName,
		}).Debug("[CONTACTS] Updating display name")
		contact.Name = strings.TrimSpace(in.DisplayName)
		changed = true
	}

	if changed {
		if err := r.repo.Update(ctx, contact); err != nil {
			return nil, fmt.Errorf("update contact: %w", err)
		}
		r.invalidate(contact)
	}

	return contact, nil
}

// UpsertWithoutIdentityUpdate is the outbound-event variant: same lookup and
// channel/phone refinement, but the display name is never touched.
func (r *Resolver) UpsertWithoutIdentityUpdate(ctx context.Context, in UpsertInput) (*domain.Contact, error) {
	in.UpdateIdentity = false
	return r.Upsert(ctx, in)
}

func (r *Resolver) invalidate(contact *domain.Contact) {
	if r.cache == nil {
		return
	}
	r.cache.Invalidate(ttlcache.ContactKey(contact.TenantID, contact.ID))
	// Conversation lists embed contact summaries.
	r.cache.Invalidate(ttlcache.ConversationListKey(contact.TenantID))
}

// phoneFragment returns the trailing digits used for the substring scan.
// The full normalized number would miss rows stored without country code.
func phoneFragment(normalized string) string {
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 {
		return ""
	}
	if len(digits) > 8 {
		return digits[len(digits)-8:]
	}
	return digits
}
