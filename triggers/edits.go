package triggers

import (
	"context"
	"fmt"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
)

type editResult = mo.Option[guildmodels.Trigger]

//SetResponse replaces the response template
func (m *Manager) SetResponse(ctx context.Context, guildID string, id int64, response string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Response = response
		return nil
	})
}

//SetReactions replaces the reactions added when the trigger fires
func (m *Manager) SetReactions(ctx context.Context, guildID string, id int64, reactions []string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Reactions = append([]string(nil), reactions...)
		return nil
	})
}

//SetGrantedRoles replaces the roles granted when the trigger fires
func (m *Manager) SetGrantedRoles(ctx context.Context, guildID string, id int64, roles []string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.GrantedRoles = append([]string(nil), roles...)
		return nil
	})
}

//SetRemovedRoles replaces the roles removed when the trigger fires
func (m *Manager) SetRemovedRoles(ctx context.Context, guildID string, id int64, roles []string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.RemovedRoles = append([]string(nil), roles...)
		return nil
	})
}

//ToggleGrantedRole adds roleID to the granted roles, or removes it if it is already there
func (m *Manager) ToggleGrantedRole(ctx context.Context, guildID string, id int64, roleID string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.GrantedRoles = guildmodels.ToggleRole(t.GrantedRoles, roleID)
		return nil
	})
}

//ToggleRemovedRole adds roleID to the removed roles, or removes it if it is already there
func (m *Manager) ToggleRemovedRole(ctx context.Context, guildID string, id int64, roleID string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.RemovedRoles = guildmodels.ToggleRole(t.RemovedRoles, roleID)
		return nil
	})
}

//SetRoleGrantMode changes who receives the trigger's role changes
func (m *Manager) SetRoleGrantMode(ctx context.Context, guildID string, id int64, mode guildmodels.RoleGrantMode) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.RoleGrantMode = mode
		return nil
	})
}

//SetPrefix sets the trigger's custom prefix
func (m *Manager) SetPrefix(ctx context.Context, guildID string, id int64, prefix string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.CustomPrefix = prefix
		return nil
	})
}

//SetPrefixType changes which prefix the trigger requires. For PrefixCustom a non-empty prefix replaces the current one.
func (m *Manager) SetPrefixType(ctx context.Context, guildID string, id int64, pt guildmodels.PrefixType, prefix string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.PrefixType = pt
		if pt == guildmodels.PrefixCustom && prefix != "" {
			t.CustomPrefix = prefix
		}
		return nil
	})
}

//SetInteractionKind changes what kind of application command the trigger is exposed as
func (m *Manager) SetInteractionKind(ctx context.Context, guildID string, id int64, kind guildmodels.CommandKind) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		if t.Interaction.Kind != kind {
			t.Interaction.CommandID = ""
		}
		t.Interaction.Kind = kind
		return nil
	})
}

//SetInteractionName changes the application command name. An empty name falls back to the trigger text.
func (m *Manager) SetInteractionName(ctx context.Context, guildID string, id int64, name string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Interaction.Name = name
		return nil
	})
}

//SetInteractionDescription changes the application command description
func (m *Manager) SetInteractionDescription(ctx context.Context, guildID string, id int64, description string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		if len(description) > 100 {
			return fmt.Errorf("%w: command descriptions may be at most 100 characters", ErrInvalid)
		}
		t.Interaction.Description = description
		return nil
	})
}

//SetInteractionEphemeral changes whether interaction responses are only visible to the invoking user
func (m *Manager) SetInteractionEphemeral(ctx context.Context, guildID string, id int64, ephemeral bool) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Interaction.Ephemeral = ephemeral
		return nil
	})
}

//SetCommandID records the ID discord assigned when the trigger was registered as an application command
func (m *Manager) SetCommandID(ctx context.Context, guildID string, id int64, commandID string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Interaction.CommandID = commandID
		return nil
	})
}

//SetCrosspostWebhook sends a copy of each response to a webhook, clearing any crosspost channel
func (m *Manager) SetCrosspostWebhook(ctx context.Context, guildID string, id int64, url string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Crosspost.SetWebhook(url)
		return nil
	})
}

//SetCrosspostChannel sends a copy of each response to a channel, clearing any crosspost webhook
func (m *Manager) SetCrosspostChannel(ctx context.Context, guildID string, id int64, channelID string) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.Crosspost.SetChannel(channelID)
		return nil
	})
}

//ToggleValidEvent flips whether the trigger may be run by the given event type
func (m *Manager) ToggleValidEvent(ctx context.Context, guildID string, id int64, ev guildmodels.EventType) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		t.ValidEvents ^= ev
		return nil
	})
}

//ToggleFlag flips one of the trigger's boolean options
func (m *Manager) ToggleFlag(ctx context.Context, guildID string, id int64, flag guildmodels.Flag) (editResult, error) {
	return m.Edit(ctx, guildID, id, func(t *guildmodels.Trigger) error {
		if _, ok := t.Flags.Toggle(flag); !ok {
			return fmt.Errorf("%w: unknown flag %v", ErrInvalid, flag)
		}
		return nil
	})
}
