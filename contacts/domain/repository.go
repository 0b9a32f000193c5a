package domain

import "context"

// ContactRepository defines the persistence operations the resolver needs.
// The three Find* lookups plus the substring scan back the resolver's
// ordered strategies.
type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	FindByChannelID(ctx context.Context, channelID, tenantID string) (*Contact, error)
	FindByPhone(ctx context.Context, phone, tenantID string) (*Contact, error)
	// FindByPhoneFragment returns every contact of the tenant whose stored
	// phone contains the fragment, for re-normalization filtering by the
	// caller.
	FindByPhoneFragment(ctx context.Context, fragment, tenantID string) ([]*Contact, error)
	Update(ctx context.Context, contact *Contact) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Contact, error)
}
