package triggers

import (
	"fmt"
	"strings"

	"github.com/callummance/hibiki/guildmodels"
)

//BotMentionPlaceholder is replaced in trigger text with a mention of the bot when triggers are loaded
const BotMentionPlaceholder = "%bot.mention%"

func newPlaceholderReplacer(botUserID string) *strings.Replacer {
	if botUserID == "" {
		return strings.NewReplacer()
	}
	return strings.NewReplacer(BotMentionPlaceholder, fmt.Sprintf("<@%v>", botUserID))
}

//resolvePlaceholders returns the form of t that is placed in the caches. The stored form keeps the placeholders so
//that the same rows work for any bot account.
func (m *Manager) resolvePlaceholders(t guildmodels.Trigger) guildmodels.Trigger {
	if !strings.Contains(t.Trigger, "%") {
		return t
	}
	t.Trigger = m.placeholders.Replace(t.Trigger)
	return t
}
