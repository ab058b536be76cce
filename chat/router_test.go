package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/state"
)

func TestResolve(t *testing.T) {
	room := Route{Channel: ChannelRoom, Audience: AudienceRoom}
	traitors := Route{Channel: ChannelTraitors, Audience: AudienceTraitors}

	cases := []struct {
		name  string
		phase models.Phase
		role  models.Role
		alive bool
		want  Route
		code  state.Code
	}{
		{"lobby", models.PhaseLobby, models.RoleUnassigned, true, room, ""},
		{"discussion living", models.PhaseDayDiscussion, models.RoleSubject, true, room, ""},
		{"discussion dead", models.PhaseDayDiscussion, models.RoleSubject, false, Route{}, CodeDeadSender},
		{"verdict living traitor", models.PhaseDayVerdict, models.RoleTraitor, true, room, ""},
		{"verdict dead", models.PhaseDayVerdict, models.RoleTraitor, false, Route{}, CodeDeadSender},
		{"trial", models.PhaseTrial, models.RoleSubject, true, Route{}, CodeClosed},
		{"night traitor", models.PhaseNight, models.RoleTraitor, true, traitors, ""},
		{"night subject", models.PhaseNight, models.RoleSubject, true, Route{}, CodeNotTraitor},
		{"night dead traitor", models.PhaseNight, models.RoleTraitor, false, Route{}, CodeDeadSender},
		{"game over dead", models.PhaseGameOver, models.RoleSubject, false, room, ""},
		{"unknown phase", models.Phase("INTERMISSION"), models.RoleSubject, true, Route{}, CodeClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.phase, tc.role, tc.alive)
			if tc.code != "" {
				require.Error(t, err)
				assert.True(t, state.IsCode(err, tc.code), "got %v", err)
				assert.Contains(t, err.Error(), string(tc.phase))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoute_Includes(t *testing.T) {
	traitor := models.Player{ID: "a", Role: models.RoleTraitor}
	subject := models.Player{ID: "b", Role: models.RoleSubject}

	night := Route{Channel: ChannelTraitors, Audience: AudienceTraitors}
	assert.True(t, night.Includes(traitor))
	assert.False(t, night.Includes(subject))

	day := Route{Channel: ChannelRoom, Audience: AudienceRoom}
	assert.True(t, day.Includes(traitor))
	assert.True(t, day.Includes(subject))
}

func TestResolveAccused(t *testing.T) {
	accused := "p1"
	trial := models.RoomSnapshot{Phase: models.PhaseTrial, AccusedID: &accused}

	text, err := ResolveAccused(trial, "p1", "   it was not me  ")
	require.NoError(t, err)
	assert.Equal(t, "it was not me", text)

	_, err = ResolveAccused(trial, "p2", "me neither")
	assert.True(t, state.IsCode(err, CodeNotAccused))

	_, err = ResolveAccused(trial, "p1", "   ")
	assert.True(t, state.IsCode(err, CodeInvalidLength))

	_, err = ResolveAccused(trial, "p1", strings.Repeat("x", MaxLength+1))
	assert.True(t, state.IsCode(err, CodeInvalidLength))

	text, err = ResolveAccused(trial, "p1", strings.Repeat("é", MaxLength))
	require.NoError(t, err)
	assert.Len(t, []rune(text), MaxLength)

	verdict := trial
	verdict.Phase = models.PhaseDayVerdict
	_, err = ResolveAccused(verdict, "p1", "too late")
	assert.True(t, state.IsCode(err, CodeClosed))
}
