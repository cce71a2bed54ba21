package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//Allows @mentions, raw role IDs, double quotation marked role names or role names made up from word characters
var roleRegex = regexp.MustCompile(`^\s*(?:<@&(\d+)>|(\d{17,20})|"([^"]+)"|(\w+))\s*$`)

func (b *HibikiBot) interpretRoleString(roleStr string, guildID string) (*discordgo.Role, error) {
	matches := roleRegex.FindStringSubmatch(roleStr)
	if matches == nil {
		return nil, fmt.Errorf("%q was not a valid role string format", roleStr)
	}
	guildRoles, err := b.session.GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild roles for guild id %v", guildID)
		return nil, err
	}

	switch {
	case matches[1] != "" || matches[2] != "":
		//We have a role id directly
		rid := matches[1] + matches[2]
		for _, guildRole := range guildRoles {
			if guildRole.ID == rid {
				return guildRole, nil
			}
		}
	default:
		//We have a role name, either quoted or bare
		roleName := matches[3] + matches[4]
		for _, guildRole := range guildRoles {
			if strings.EqualFold(guildRole.Name, roleName) {
				return guildRole, nil
			}
		}
	}
	return nil, nil
}

//This is kind of a mess and waay too greedy but the symbol other category doesn't seem to work with RE2 so eh ¯\_(ツ)_/¯
const unicodeEmojiRegex = `(\S{1,8})`

var emojiRegex = regexp.MustCompile(`^(?:(<(a?):([^:]+):(\d+)>)|` + unicodeEmojiRegex + `)$`)

//interpretEmoji converts an emoji as typed in a message into the form the reactions API expects
func interpretEmoji(emojiStr string) (string, bool) {
	matches := emojiRegex.FindStringSubmatch(strings.TrimSpace(emojiStr))
	switch {
	case matches == nil:
		return "", false
	case matches[1] != "":
		//Discord guild emoji
		name := matches[3]
		id := matches[4]
		return fmt.Sprintf("%v:%v", name, id), true
	case matches[5] != "":
		//Unicode emoji
		return matches[5], true
	default:
		return "", false
	}
}

var channelRegex = regexp.MustCompile(`^\s*(?:<#(\d+)>|(\d{17,20}))\s*$`)

func interpretChannel(channelStr string) (string, bool) {
	matches := channelRegex.FindStringSubmatch(channelStr)
	if matches == nil {
		return "", false
	}
	return matches[1] + matches[2], true
}

var userMentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)

func interpretUserMention(s string) (string, bool) {
	matches := userMentionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return "", false
	}
	return matches[1], true
}

//nextArg splits the first argument off a command string. An argument wrapped in double quotes may contain spaces.
func nextArg(s string) (arg string, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t\n")
	if s == "" {
		return "", "", false
	}
	if s[0] == '"' {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return "", s, false
		}
		return s[1 : end+1], strings.TrimLeft(s[end+2:], " \t\n"), true
	}
	end := strings.IndexAny(s, " \t\n")
	if end < 0 {
		return s, "", true
	}
	return s[:end], strings.TrimLeft(s[end:], " \t\n"), true
}

func parseTriggerID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	return id, err == nil && id > 0
}
