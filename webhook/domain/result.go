package domain

// Outcome tags, the machine-readable signal monitoring keys on.
const (
	TagMessageProcessed     = "message_processed"
	TagDuplicateMessage     = "duplicate_message"
	TagMobileIgnored        = "mobile_message_ignored"
	TagGroupIgnored         = "group_message_ignored"
	TagReactionIgnored      = "reaction_ignored"
	TagProtocolIgnored      = "protocol_message_ignored"
	TagContactUpserted      = "contact_upserted"
	TagMessageStatusUpdated = "message_status_updated"
	TagUnsupportedEvent     = "unsupported_event"

	TagValidationError   = "validation_error"
	TagDatabaseError     = "database_error"
	TagNetworkError      = "network_error"
	TagDuplicateError    = "duplicate_error"
	TagContactError      = "contact_error"
	TagConversationError = "conversation_error"
	TagMessageError      = "message_error"
	TagUnknownError      = "unknown_error"
)

// Result is the outcome returned to the calling gateway.
type Result struct {
	Success     bool   `json:"success"`
	MessageType string `json:"messageType"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
}

func Ok(tag string, data any) Result {
	return Result{Success: true, MessageType: tag, Data: data}
}

func Fail(tag, message string) Result {
	return Result{Success: false, MessageType: tag, Error: message}
}
