package ttlcache

import "fmt"

// Key builders shared by the services that populate and invalidate the
// cache. Keys embed the tenant or conversation id so pattern invalidation
// can target everything derived from one entity.

func ContactKey(tenantID, contactID string) string {
	return fmt.Sprintf("contact:%s:%s", tenantID, contactID)
}

func ConversationListKey(tenantID string) string {
	return fmt.Sprintf("conversations:%s:active", tenantID)
}

func MessagePageKey(conversationID string, limit, offset int) string {
	return fmt.Sprintf("messages:%s:page:%d:%d", conversationID, limit, offset)
}

// MessagePagePattern matches every cached page of one conversation.
func MessagePagePattern(conversationID string) string {
	return fmt.Sprintf("messages:%s:", conversationID)
}

// TenantPattern matches every entry derived from one tenant.
func TenantPattern(tenantID string) string {
	return ":" + tenantID + ":"
}
