package guildmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneDoesNotShareSlices(t *testing.T) {
	orig := Trigger{ID: 1, GrantedRoles: []string{"r1"}, Reactions: []string{"👍"}}
	cp := orig.Clone()
	cp.GrantedRoles[0] = "r2"
	cp.Reactions = append(cp.Reactions, "👎")

	assert.Equal(t, []string{"r1"}, orig.GrantedRoles)
	assert.Equal(t, []string{"👍"}, orig.Reactions)
}

func TestNormalize(t *testing.T) {
	lit := Trigger{Trigger: "  HeLLo ", CustomPrefix: "Hb!", Interaction: InteractionMeta{Name: " Greet Me "}}
	lit.Normalize()
	assert.Equal(t, "hello", lit.Trigger)
	assert.Equal(t, "hb!", lit.CustomPrefix)
	assert.Equal(t, "greet me", lit.Interaction.Name)

	re := Trigger{Trigger: `^\S+ FOO$`, IsRegex: true}
	re.Normalize()
	assert.Equal(t, `^\S+ FOO$`, re.Trigger)
}

func TestToggleFlag(t *testing.T) {
	var f MatchFlags
	v, ok := f.Toggle(FlagAllowTarget)
	assert.True(t, ok)
	assert.True(t, v)
	assert.True(t, f.AllowTarget)

	v, ok = f.Toggle(FlagAllowTarget)
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = f.Toggle(Flag("bogus"))
	assert.False(t, ok)
}

func TestCrosspostIsExclusive(t *testing.T) {
	var c Crosspost
	c.SetWebhook("https://discord.com/api/webhooks/1/abc")
	c.SetChannel("123")
	assert.Equal(t, "", c.WebhookURL)
	assert.Equal(t, "123", c.ChannelID)

	c.SetWebhook("https://discord.com/api/webhooks/1/abc")
	assert.Equal(t, "", c.ChannelID)
	assert.True(t, c.IsSet())
}

func TestAcceptsEvent(t *testing.T) {
	tr := Trigger{ValidEvents: EventMessage | EventButton}
	assert.True(t, tr.AcceptsEvent(EventMessage))
	assert.False(t, tr.AcceptsEvent(EventSlash))
	assert.Equal(t, "message|button", tr.ValidEvents.String())
}

func TestRoleGrantTargets(t *testing.T) {
	tests := []struct {
		name string
		mode RoleGrantMode
		want []string
	}{
		{"none", RoleGrantNone, nil},
		{"sender", RoleGrantSender, []string{"author"}},
		{"mentioned", RoleGrantMentioned, []string{"m1", "m2"}},
		{"both dedupes", RoleGrantBoth, []string{"author", "m1", "m2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := RoleGrant{Mode: tc.mode, Granted: []string{"r"}}
			assert.Equal(t, tc.want, g.Targets("author", []string{"m1", "author", "m2"}))
		})
	}
}

func TestToggleRole(t *testing.T) {
	roles := []string{"a", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, ToggleRole(roles, "c"))
	assert.Equal(t, []string{"b"}, ToggleRole(roles, "a"))
	assert.Equal(t, []string{"a", "b"}, roles)
}
