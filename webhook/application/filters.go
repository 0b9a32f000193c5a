package application

import (
	"strings"

	"github.com/wappanel/wappanel/pkg/normalize"
	"github.com/wappanel/wappanel/webhook/domain"
)

// filterRule inspects an extracted message before any persistence.
// A non-empty tag blocks the pipeline; the delivery is answered as a
// successful no-op so the gateway stops redelivering it.
type filterRule struct {
	name  string
	apply func(domain.ExtractedMessage) string
}

var filterRules = []filterRule{
	{
		name: "reaction",
		apply: func(m domain.ExtractedMessage) string {
			if m.IsReaction {
				return domain.TagReactionIgnored
			}
			return ""
		},
	},
	{
		name: "protocol",
		apply: func(m domain.ExtractedMessage) string {
			if m.IsProtocol {
				return domain.TagProtocolIgnored
			}
			return ""
		},
	},
	{
		// Alias addresses are mobile-originated duplicates of messages
		// also delivered through the primary channel.
		name: "alias address",
		apply: func(m domain.ExtractedMessage) string {
			if strings.HasSuffix(m.RemoteJid, normalize.SuffixAlias) {
				return domain.TagMobileIgnored
			}
			return ""
		},
	},
	{
		name: "direct messages only",
		apply: func(m domain.ExtractedMessage) string {
			if !strings.HasSuffix(m.RemoteJid, normalize.SuffixUser) {
				return domain.TagGroupIgnored
			}
			return ""
		},
	},
}

// FilterMessage runs the rules in order and returns the tag of the
// first one that blocks, or "" when the message may proceed.
func FilterMessage(m domain.ExtractedMessage) string {
	for _, rule := range filterRules {
		if tag := rule.apply(m); tag != "" {
			return tag
		}
	}
	return ""
}
