package domain

import (
	"strings"
	"time"
)

// Role tells who authored the message from the AI point of view.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
)

// SenderType tells what kind of actor sent the message.
type SenderType string

const (
	SenderContact SenderType = "CONTACT"
	SenderUser    SenderType = "USER"
	SenderAgent   SenderType = "AGENT"
)

// MessageType is the closed set of content kinds the store accepts.
type MessageType string

const (
	TypeText     MessageType = "TEXT"
	TypeImage    MessageType = "IMAGE"
	TypeVideo    MessageType = "VIDEO"
	TypeAudio    MessageType = "AUDIO"
	TypeDocument MessageType = "DOCUMENT"
	TypeSticker  MessageType = "STICKER"
	TypeLocation MessageType = "LOCATION"
	TypeContact  MessageType = "CONTACT"
	TypePoll     MessageType = "POLL"
	TypeButton   MessageType = "BUTTON"
	TypeList     MessageType = "LIST"
	TypeTemplate MessageType = "TEMPLATE"
	TypeUnknown  MessageType = "UNKNOWN"
)

var typeAliases = map[string]MessageType{
	"text":                 TypeText,
	"conversation":         TypeText,
	"extendedtextmessage":  TypeText,
	"image":                TypeImage,
	"imagemessage":         TypeImage,
	"video":                TypeVideo,
	"videomessage":         TypeVideo,
	"audio":                TypeAudio,
	"audiomessage":         TypeAudio,
	"ptt":                  TypeAudio,
	"document":             TypeDocument,
	"documentmessage":      TypeDocument,
	"sticker":              TypeSticker,
	"stickermessage":       TypeSticker,
	"location":             TypeLocation,
	"locationmessage":      TypeLocation,
	"contact":              TypeContact,
	"contactmessage":       TypeContact,
	"contactsarraymessage": TypeContact,
	"poll":                 TypePoll,
	"pollcreationmessage":  TypePoll,
	"button":               TypeButton,
	"buttonsmessage":       TypeButton,
	"list":                 TypeList,
	"listmessage":          TypeList,
	"template":             TypeTemplate,
	"templatemessage":      TypeTemplate,
}

// NormalizeType maps a raw gateway type string onto the closed enum.
// Unrecognized values become UNKNOWN, never an error.
func NormalizeType(raw string) MessageType {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return TypeUnknown
}

// DeliveryStatus tracks the gateway-reported delivery state.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusSent      DeliveryStatus = "SENT"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusRead      DeliveryStatus = "READ"
	StatusFailed    DeliveryStatus = "FAILED"
)

var statusAliases = map[string]DeliveryStatus{
	"pending":      StatusPending,
	"sent":         StatusSent,
	"server_ack":   StatusSent,
	"delivered":    StatusDelivered,
	"delivery_ack": StatusDelivered,
	"read":         StatusRead,
	"read_ack":     StatusRead,
	"played":       StatusRead,
	"failed":       StatusFailed,
	"error":        StatusFailed,
}

// NormalizeDeliveryStatus maps a raw gateway status onto the enum.
// Empty or unrecognized values fall back to DELIVERED, the state an
// inbound webhook delivery implies.
func NormalizeDeliveryStatus(raw string) DeliveryStatus {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusDelivered
}

// Message is a stored conversation message.
type Message struct {
	ID               string
	TenantID         string
	ConversationID   string
	GatewayMessageID string
	Role             Role
	SenderType       SenderType
	SenderID         string
	Type             MessageType
	Content          string
	MediaURL         string
	Status           DeliveryStatus
	FromMe           bool
	// Metadata carries free-form gateway context (push name, group
	// flag, raw timestamp, event name) for diagnostics.
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsInbound reports whether the message came from the contact side.
func (m *Message) IsInbound() bool {
	return !m.FromMe && m.SenderType == SenderContact
}
