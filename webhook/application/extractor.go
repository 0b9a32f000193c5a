package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wappanel/wappanel/pkg/normalize"
	"github.com/wappanel/wappanel/webhook/domain"
)

// ClassifyEvent buckets a gateway event name. Matching is
// case-insensitive and tolerant of singular/plural drift between
// gateway versions.
func ClassifyEvent(event string) domain.EventKind {
	e := strings.ToLower(strings.TrimSpace(event))
	switch {
	case e == "send.message" || e == "send_message" || e == "messages.send":
		return domain.EventSendMessage
	case strings.HasPrefix(e, "messages.update") || strings.HasPrefix(e, "message.update") ||
		e == "messages.status" || e == "message.ack":
		return domain.EventStatusUpdate
	case strings.HasPrefix(e, "contacts.") || strings.HasPrefix(e, "contact."):
		return domain.EventContacts
	case strings.HasPrefix(e, "messages.upsert") || strings.HasPrefix(e, "message.upsert") ||
		strings.HasPrefix(e, "messages.set") || strings.HasPrefix(e, "message.set"):
		return domain.EventMessage
	default:
		return domain.EventUnsupported
	}
}

// Extract flattens a message payload. It never fails; missing fields
// stay zero and the caller validates what it needs.
func Extract(data map[string]any) domain.ExtractedMessage {
	var m domain.ExtractedMessage

	if key, ok := data["key"].(map[string]any); ok {
		m.RemoteJid = str(key["remoteJid"])
		m.GatewayID = str(key["id"])
		m.FromMe, _ = key["fromMe"].(bool)
	}
	if m.RemoteJid == "" {
		m.RemoteJid = str(data["remoteJid"])
	}
	if m.GatewayID == "" {
		m.GatewayID = str(data["messageId"])
	}
	if m.GatewayID == "" {
		m.GatewayID = str(data["keyId"])
	}

	m.PushName = str(data["pushName"])
	m.Timestamp = num(data["messageTimestamp"])
	m.RawStatus = str(data["status"])
	m.IsGroup = strings.HasSuffix(m.RemoteJid, normalize.SuffixGroup)

	if m.RawType == "" {
		m.RawType = str(data["messageType"])
	}

	if message, ok := data["message"].(map[string]any); ok {
		extractContent(message, &m)
	}
	return m
}

// Content variants in probe order. The first present wins.
func extractContent(message map[string]any, m *domain.ExtractedMessage) {
	if text := str(message["conversation"]); text != "" {
		m.RawType = "conversation"
		m.Content = text
		return
	}
	if ext, ok := message["extendedTextMessage"].(map[string]any); ok {
		m.RawType = "extendedTextMessage"
		m.Content = str(ext["text"])
		return
	}
	if img, ok := message["imageMessage"].(map[string]any); ok {
		m.RawType = "imageMessage"
		m.Content = str(img["caption"])
		m.MediaURL = str(img["url"])
		return
	}
	if vid, ok := message["videoMessage"].(map[string]any); ok {
		m.RawType = "videoMessage"
		m.Content = str(vid["caption"])
		m.MediaURL = str(vid["url"])
		return
	}
	if aud, ok := message["audioMessage"].(map[string]any); ok {
		m.RawType = "audioMessage"
		m.MediaURL = str(aud["url"])
		return
	}
	if doc, ok := message["documentMessage"].(map[string]any); ok {
		m.RawType = "documentMessage"
		m.Content = str(doc["fileName"])
		m.MediaURL = str(doc["url"])
		return
	}
	if stk, ok := message["stickerMessage"].(map[string]any); ok {
		m.RawType = "stickerMessage"
		m.MediaURL = str(stk["url"])
		return
	}
	if loc, ok := message["locationMessage"].(map[string]any); ok {
		m.RawType = "locationMessage"
		m.Content = fmt.Sprintf("%v,%v", loc["degreesLatitude"], loc["degreesLongitude"])
		return
	}
	if ct, ok := message["contactMessage"].(map[string]any); ok {
		m.RawType = "contactMessage"
		m.Content = str(ct["displayName"])
		return
	}
	if _, ok := message["contactsArrayMessage"]; ok {
		m.RawType = "contactsArrayMessage"
		return
	}
	if poll, ok := message["pollCreationMessage"].(map[string]any); ok {
		m.RawType = "pollCreationMessage"
		m.Content = str(poll["name"])
		return
	}
	if btn, ok := message["buttonsResponseMessage"].(map[string]any); ok {
		m.RawType = "buttonsMessage"
		m.Content = str(btn["selectedDisplayText"])
		return
	}
	if list, ok := message["listResponseMessage"].(map[string]any); ok {
		m.RawType = "listMessage"
		m.Content = str(list["title"])
		return
	}
	if _, ok := message["templateMessage"]; ok {
		m.RawType = "templateMessage"
		return
	}
	if react, ok := message["reactionMessage"].(map[string]any); ok {
		m.RawType = "reactionMessage"
		m.Content = str(react["text"])
		m.IsReaction = true
		return
	}
	if _, ok := message["protocolMessage"]; ok {
		m.IsProtocol = true
		return
	}
	if _, ok := message["senderKeyDistributionMessage"]; ok {
		m.IsProtocol = true
		return
	}
	if _, ok := message["messageContextInfo"]; ok && len(message) == 1 {
		m.IsProtocol = true
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
