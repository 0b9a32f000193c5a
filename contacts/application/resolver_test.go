package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel/contacts/domain"
)

type memContactRepo struct {
	contacts []*domain.Contact
	nextID   int
}

func (m *memContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	m.nextID++
	if c.ID == "" {
		c.ID = "c" + string(rune('0'+m.nextID))
	}
	clone := *c
	m.contacts = append(m.contacts, &clone)
	return nil
}

func (m *memContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	for _, c := range m.contacts {
		if c.ID == id {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrContactNotFound
}

func (m *memContactRepo) FindByChannelID(ctx context.Context, channelID, tenantID string) (*domain.Contact, error) {
	for _, c := range m.contacts {
		if c.ChannelID == channelID && c.TenantID == tenantID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrContactNotFound
}

func (m *memContactRepo) FindByPhone(ctx context.Context, phone, tenantID string) (*domain.Contact, error) {
	for _, c := range m.contacts {
		if c.Phone == phone && c.TenantID == tenantID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrContactNotFound
}

func (m *memContactRepo) FindByPhoneFragment(ctx context.Context, fragment, tenantID string) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range m.contacts {
		if c.TenantID == tenantID && strings.Contains(c.Phone, fragment) {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memContactRepo) Update(ctx context.Context, c *domain.Contact) error {
	for i, existing := range m.contacts {
		if existing.ID == c.ID {
			clone := *c
			m.contacts[i] = &clone
			return nil
		}
	}
	return domain.ErrContactNotFound
}

func (m *memContactRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Contact, error) {
	return m.contacts, nil
}

func TestResolver_CreatesContactWhenUnknown(t *testing.T) {
	repo := &memContactRepo{}
	r := NewResolver(repo, nil, 0)

	contact, err := r.Upsert(context.Background(), UpsertInput{
		Phone:          "5511987654321@s.whatsapp.net",
		DisplayName:    "Maria Silva",
		TenantID:       "t1",
		ChannelID:      "5511987654321@s.whatsapp.net",
		Source:         "webhook",
		UpdateIdentity: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "+5511987654321", contact.Phone)
	assert.Equal(t, domain.StatusNew, contact.Status)
	assert.Equal(t, "whatsapp", contact.LastChannel)
	assert.Equal(t, "Maria Silva", contact.Name)
	assert.Len(t, repo.contacts, 1)
}

func TestResolver_ChannelIDMatchWinsFirst(t *testing.T) {
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "a", TenantID: "t1", ChannelID: "111@s.whatsapp.net", Phone: "+999999999999"},
		{ID: "b", TenantID: "t1", ChannelID: "other", Phone: "+5511987654321"},
	}}
	r := NewResolver(repo, nil, 0)

	contact, err := r.Resolve(context.Background(), "5511987654321", "111@s.whatsapp.net", "t1")
	require.NoError(t, err)
	assert.Equal(t, "a", contact.ID, "channel id match must take precedence over phone match")
}

func TestResolver_FallsBackToNormalizedPhone(t *testing.T) {
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "a", TenantID: "t1", ChannelID: "old-channel", Phone: "+5511987654321"},
	}}
	r := NewResolver(repo, nil, 0)

	contact, err := r.Resolve(context.Background(), "5511987654321@lid", "5511987654321@lid", "t1")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "a", contact.ID)
}

func TestResolver_FragmentScanMatchesLegacyFormat(t *testing.T) {
	// Stored before normalization existed (digits, no plus): only the
	// re-normalizing substring scan can relate it to the full number.
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "legacy", TenantID: "t1", Phone: "5511987654321"},
	}}
	r := NewResolver(repo, nil, 0)

	contact, err := r.Resolve(context.Background(), "+55 (11) 98765-4321", "", "t1")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "legacy", contact.ID)
}

func TestResolver_NoMatchReturnsNil(t *testing.T) {
	r := NewResolver(&memContactRepo{}, nil, 0)

	contact, err := r.Resolve(context.Background(), "123", "x@s.whatsapp.net", "t1")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestResolver_RefreshesDriftedChannelID(t *testing.T) {
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "a", TenantID: "t1", ChannelID: "old@lid", Phone: "+5511987654321", LastChannel: "whatsapp"},
	}}
	r := NewResolver(repo, nil, 0)

	contact, err := r.Upsert(context.Background(), UpsertInput{
		Phone:          "+5511987654321",
		TenantID:       "t1",
		ChannelID:      "5511987654321@s.whatsapp.net",
		UpdateIdentity: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "5511987654321@s.whatsapp.net", contact.ChannelID)
	assert.Equal(t, "5511987654321@s.whatsapp.net", repo.contacts[0].ChannelID)
}

func TestResolver_NeverShortensPhone(t *testing.T) {
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "a", TenantID: "t1", ChannelID: "ch1", Phone: "+5511987654321", LastChannel: "whatsapp"},
	}}
	r := NewResolver(repo, nil, 0)

	_, err := r.Upsert(context.Background(), UpsertInput{
		Phone:          "98765",
		TenantID:       "t1",
		ChannelID:      "ch1",
		UpdateIdentity: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "+5511987654321", repo.contacts[0].Phone, "truncated values must not overwrite complete ones")
}

func TestResolver_OutboundNeverTouchesName(t *testing.T) {
	repo := &memContactRepo{contacts: []*domain.Contact{
		{ID: "a", TenantID: "t1", ChannelID: "ch1", Phone: "+5511987654321", Name: "Maria Silva", LastChannel: "whatsapp"},
	}}
	r := NewResolver(repo, nil, 0)

	_, err := r.UpsertWithoutIdentityUpdate(context.Background(), UpsertInput{
		Phone:       "+5511987654321",
		DisplayName: "Company Account Name",
		TenantID:    "t1",
		ChannelID:   "ch1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", repo.contacts[0].Name)
}

func TestShouldUpdateName_PolicyTable(t *testing.T) {
	cases := []struct {
		desc      string
		existing  string
		candidate string
		source    string
		want      bool
	}{
		{"empty candidate rejected", "Maria", "", "webhook", false},
		{"identical candidate rejected", "Maria", "Maria", "webhook", false},
		{"placeholder existing always replaced", "unknown", "Maria Silva", "webhook", true},
		{"digit existing always replaced", "5511987", "Maria", "webhook", true},
		{"short existing always replaced", "M", "Maria", "webhook", true},
		{"placeholder candidate rejected", "Maria", "Unknown", "webhook", false},
		{"short candidate rejected", "Maria", "Jo", "webhook", false},
		{"digit candidate rejected", "Maria", "12345", "webhook", false},
		{"system keyword candidate rejected", "Maria", "WhatsApp Support", "webhook", false},
		{"automated source rejected", "Maria", "Better Name Here", "bot", false},
		{"clear improvement accepted", "maria", "Maria Silva Santos", "webhook", true},
		{"regression rejected", "Maria Silva", "mar1a", "webhook", false},
		{"cosmetic variant rejected", "Maria Silva", "maria silva", "webhook", false},
		{"different same-quality name accepted", "Maria Souza", "Paulo Gomes", "webhook", true},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			assert.Equal(t, c.want, ShouldUpdateName(c.existing, c.candidate, c.source))
		})
	}
}

func TestShouldUpdateName_NeverRegressesQuality(t *testing.T) {
	// Non-regression: a lower-quality candidate is always rejected once the
	// always-update / always-reject rules have passed.
	existing := "Maria Silva"
	for _, candidate := range []string{"mar1a silva", "m@ria", "maria"} {
		assert.False(t, ShouldUpdateName(existing, candidate, "webhook"), "candidate %q", candidate)
	}
}
