package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/commandtree"
	"github.com/sirupsen/logrus"
)

const (
	successMessageColour int = 0x28bd00
	infoMessageColour    int = 0x0077bd
	warnMessageColour    int = 0xbdb900
	errorMessageColour   int = 0xbd1b00
)

//discord refuses embeds with more fields than this
const maxEmbedFields = 25

//HibikiResponse represents the result of a command which can be both communicated over discord and written to the log.
type HibikiResponse interface {
	DiscordResponse() *discordgo.MessageSend
	WriteToLog()
}

//HibikiResponseSuccess will be returned when a command has been successfully completed
type HibikiResponseSuccess struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//Optional extra detail shown to the user
	detail string
	//The time the success was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseSuccess) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Completed %v command successfully!", r.command)
	if r.detail != "" {
		description += "\n" + r.detail
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Success! \\o/",
		Description: description,
		Color:       successMessageColour,
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseSuccess) WriteToLog() {
	logrus.Infof("%v Completed command %v successfully.", logLineLabel(r.timestamp), r.commandMsg)
}

//HibikiResponseInfo will be returned by commands which only report information
type HibikiResponseInfo struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	title      string
	//A human-readable summary
	description string
	//Fields are shown in order
	fields []*discordgo.MessageEmbedField
	//The time the command was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseInfo) DiscordResponse() *discordgo.MessageSend {
	fields := r.fields
	description := r.description
	if len(fields) > maxEmbedFields {
		description += fmt.Sprintf("\n(showing %d of %d)", maxEmbedFields, len(fields))
		fields = fields[:maxEmbedFields]
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       r.title,
		Description: description,
		Color:       infoMessageColour,
		Fields:      fields,
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseInfo) WriteToLog() {
	logrus.Debugf("%v Completed info command %v.", logLineLabel(r.timestamp), r.commandMsg)
}

//HibikiResponsePartialSuccess will be returned when a command has executed but with issues
type HibikiResponsePartialSuccess struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A map containing fields which should be included in the embed
	data map[string]string
	//The time the success was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponsePartialSuccess) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Completed %v command but with errors: \n%v", r.command, r.description)
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Partial success...",
		Description: description,
		Color:       warnMessageColour,
		Fields:      stringMapToFields(r.data),
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponsePartialSuccess) WriteToLog() {
	logrus.Infof("%v Completed command %v but with errors: %v.", logLineLabel(r.timestamp), r.commandMsg, r.data)
}

//HibikiResponseSyntaxError will be returned when there was an issue with the user's input
type HibikiResponseSyntaxError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A description of the correct syntax
	syntax string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseSyntaxError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Sorry, but there was a problem with the data you supplied for the %v command: \n%v", r.command, r.description)
	fields := map[string]string{
		"Your command":   r.commandMsg,
		"Correct syntax": r.syntax,
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Uh-oh, there was something wrong with that command",
		Description: description,
		Color:       errorMessageColour,
		Fields:      stringMapToFields(fields),
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseSyntaxError) WriteToLog() {
	logrus.Infof("%v Syntax error in command %v: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//HibikiResponseNotFound will be returned when a command refers to a trigger that does not exist in the current scope
type HibikiResponseNotFound struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//What was looked for
	subject string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseNotFound) DiscordResponse() *discordgo.MessageSend {
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Not found",
		Description: fmt.Sprintf("I couldn't find %v here, so the %v command did nothing.", r.subject, r.command),
		Color:       warnMessageColour,
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseNotFound) WriteToLog() {
	logrus.Infof("%v Command %v referred to missing %v", logLineLabel(r.timestamp), r.commandMsg, r.subject)
}

//HibikiResponseInternalError will be returned when there was some kind of error within the bot or when communicating with
//APIs
type HibikiResponseInternalError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A map containing fields which should be included in the embed
	data map[string]string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseInternalError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Oops! I encountered an unexpected error whilst running your %v command. Please try again later or file a bug report.", r.command)
	dataWithDescription := map[string]string{"Error": r.description}
	for k, v := range r.data {
		dataWithDescription[k] = v
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Oops, something went wrong ;w;",
		Description: description,
		Color:       errorMessageColour,
		Fields:      stringMapToFields(dataWithDescription),
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseInternalError) WriteToLog() {
	logrus.Errorf("%v Internal error in whilst executing command %v: %v | data: %v", logLineLabel(r.timestamp), r.commandMsg, r.description, r.data)
}

//HibikiResponseNotAllowed will be returned when a user tried to run a command that they do not have the correct role for
type HibikiResponseNotAllowed struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseNotAllowed) DiscordResponse() *discordgo.MessageSend {
	fields := map[string]string{
		"Reason":  r.description,
		"Command": r.commandMsg,
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "That's illegal m8",
		Description: "I'm sorry Dave, I can't let you do that...",
		Color:       errorMessageColour,
		Fields:      stringMapToFields(fields),
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseNotAllowed) WriteToLog() {
	logrus.Infof("%v Rejected command `%v` as the sender did not have the correct priveliges | description: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//HibikiResponseFeatureNotEnabled will be returned when a user tried to run a command which requires an unconfigured feature
type HibikiResponseFeatureNotEnabled struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//The name of the feature which was disabled
	disabledFeature string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseFeatureNotEnabled) DiscordResponse() *discordgo.MessageSend {
	fields := map[string]string{
		"Required Feature(s)": r.disabledFeature,
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Required feature is not activated",
		Description: fmt.Sprintf("Sorry, but the '%v' command requires a feature which is not currently configured.", r.command),
		Color:       errorMessageColour,
		Fields:      stringMapToFields(fields),
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseFeatureNotEnabled) WriteToLog() {
	logrus.Infof("%v Rejected command `%v` as required feature %v is not configured", logLineLabel(r.timestamp), r.commandMsg, r.disabledFeature)
}

//HibikiResponseValidationFailed will be returned when the command tree could not be registered
type HibikiResponseValidationFailed struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	problems   []commandtree.Error
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r HibikiResponseValidationFailed) DiscordResponse() *discordgo.MessageSend {
	fields := make([]*discordgo.MessageEmbedField, 0, len(r.problems))
	for _, p := range r.problems {
		ids := make([]string, len(p.IDs))
		for i, id := range p.IDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  p.Key,
			Value: fmt.Sprintf("triggers %v: %v", strings.Join(ids, ", "), strings.Join(p.Names, ", ")),
		})
	}
	if len(fields) > maxEmbedFields {
		fields = fields[:maxEmbedFields]
	}
	return embedMessage(discordgo.MessageEmbed{
		Title:       "Commands were not updated",
		Description: fmt.Sprintf("Found %d problems with the configured commands. Fix them and run %v again.", len(r.problems), r.command),
		Color:       errorMessageColour,
		Fields:      fields,
	}, r.timestamp)
}

//WriteToLog dumps data on a discord command response to the log
func (r HibikiResponseValidationFailed) WriteToLog() {
	logrus.Infof("%v Refused to register commands for `%v` due to problems %v", logLineLabel(r.timestamp), r.commandMsg, r.problems)
}

/////////////////////
//Utility Functions//
/////////////////////
func embedMessage(embed discordgo.MessageEmbed, t time.Time) *discordgo.MessageSend {
	embed.Type = discordgo.EmbedTypeRich
	embed.Timestamp = t.Format(time.RFC3339)
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Log ID: %d", t.UnixNano()),
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{&embed},
		TTS:    false,
		Files:  []*discordgo.File{},
	}
}

func logLineLabel(t time.Time) string {
	return fmt.Sprintf("#%v# | ", t.UnixNano())
}

func stringMapToFields(fields map[string]string) []*discordgo.MessageEmbedField {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var res []*discordgo.MessageEmbedField
	for _, fieldName := range names {
		field := discordgo.MessageEmbedField{
			Name:   fieldName,
			Value:  fields[fieldName],
			Inline: false,
		}
		res = append(res, &field)
	}
	return res
}
