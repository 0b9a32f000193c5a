package domain

// Payload is the envelope every gateway webhook delivery carries. Data
// stays loosely typed; gateways disagree on field placement, so the
// extractor navigates it instead of a rigid schema.
type Payload struct {
	Event    string         `json:"event"`
	Instance string         `json:"instance"`
	Data     map[string]any `json:"data"`
}

// ExtractedMessage is the flattened view of a message payload after
// navigation, before filtering and persistence.
type ExtractedMessage struct {
	RemoteJid  string
	GatewayID  string
	FromMe     bool
	PushName   string
	Timestamp  int64
	RawType    string
	RawStatus  string
	Content    string
	MediaURL   string
	IsGroup    bool
	IsReaction bool
	IsProtocol bool
}

// EventKind buckets the recognized gateway event names.
type EventKind int

const (
	EventUnsupported EventKind = iota
	EventMessage
	EventSendMessage
	EventStatusUpdate
	EventContacts
)
