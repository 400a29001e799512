package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrivilege_Ordering(t *testing.T) {
	assert.True(t, PrivilegeNone < PrivilegeMember)
	assert.True(t, PrivilegeMember < PrivilegeOfficer)
	assert.True(t, PrivilegeOfficer < PrivilegeOwner)

	assert.True(t, PrivilegeOwner.AtLeast(PrivilegeOfficer))
	assert.True(t, PrivilegeOfficer.AtLeast(PrivilegeOfficer))
	assert.False(t, PrivilegeMember.AtLeast(PrivilegeOfficer))
	assert.False(t, PrivilegeNone.AtLeast(PrivilegeMember))
}

func TestPrivilege_String(t *testing.T) {
	assert.Equal(t, "None", PrivilegeNone.String())
	assert.Equal(t, "Member", PrivilegeMember.String())
	assert.Equal(t, "Officer", PrivilegeOfficer.String())
	assert.Equal(t, "Owner", PrivilegeOwner.String())
	assert.Equal(t, "Privilege(7)", Privilege(7).String())
}

func TestParsePrivilege(t *testing.T) {
	p, err := ParsePrivilege(2)
	require.NoError(t, err)
	assert.Equal(t, PrivilegeOfficer, p)

	_, err = ParsePrivilege(4)
	assert.Error(t, err)
	_, err = ParsePrivilege(-1)
	assert.Error(t, err)
}

func TestJoinRequestStatus(t *testing.T) {
	assert.False(t, JoinRequestPending.Terminal())
	assert.True(t, JoinRequestApproved.Terminal())
	assert.True(t, JoinRequestDenied.Terminal())
	assert.True(t, JoinRequestRevoked.Terminal())

	tests := []struct {
		raw     string
		want    JoinRequestStatus
		wantErr bool
	}{
		{"0", JoinRequestPending, false},
		{"pending", JoinRequestPending, false},
		{"Approved", JoinRequestApproved, false},
		{"DENIED", JoinRequestDenied, false},
		{"3", JoinRequestRevoked, false},
		{"4", JoinRequestPending, true},
		{"unknown", JoinRequestPending, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseJoinRequestStatus(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		raw     string
		want    Metric
		wantErr bool
	}{
		{"", MetricTotalPP, false},
		{"total_pp", MetricTotalPP, false},
		{"TotalPp", MetricTotalPP, false},
		{"averagepp", MetricAveragePP, false},
		{"RankedScore", MetricRankedScore, false},
		{"accuracy", MetricAccuracy, false},
		{"pp", MetricTotalPP, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseMetric(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGameMode(t *testing.T) {
	m, err := ParseGameMode("")
	require.NoError(t, err)
	assert.Equal(t, GameModeStandard, m)

	m, err = ParseGameMode("3")
	require.NoError(t, err)
	assert.Equal(t, GameModeMania, m)

	m, err = ParseGameMode("RelaxTaiko")
	require.NoError(t, err)
	assert.Equal(t, GameModeRelaxTaiko, m)

	m, err = ParseGameMode("autopilot_standard")
	require.NoError(t, err)
	assert.Equal(t, GameModeAutopilotStandard, m)

	_, err = ParseGameMode("7")
	assert.Error(t, err)
	_, err = ParseGameMode("osu")
	assert.Error(t, err)
}

func TestNormalizeClanInput(t *testing.T) {
	desc := "  the best  "
	in := NormalizeClanInput("  Alpha  ", " alp ", &desc)
	assert.Equal(t, "Alpha", in.Name)
	assert.Equal(t, "ALP", in.Tag)
	require.NotNil(t, in.Description)
	assert.Equal(t, "the best", *in.Description)

	blank := "   "
	in = NormalizeClanInput("Alpha", "ALP", &blank)
	assert.Nil(t, in.Description)
}

func TestValidateClanInput(t *testing.T) {
	long := strings.Repeat("d", MaxClanDescriptionLength+1)
	tests := []struct {
		name string
		in   ClanInput
		want error
	}{
		{"valid", ClanInput{Name: "Alpha", Tag: "ALP"}, nil},
		{"missing name", ClanInput{Tag: "ALP"}, ErrNameAndTagRequired},
		{"missing tag", ClanInput{Name: "Alpha"}, ErrNameAndTagRequired},
		{"tag too short", ClanInput{Name: "Alpha", Tag: "A"}, ErrInvalidTagLength},
		{"tag too long", ClanInput{Name: "Alpha", Tag: "ABCDEFG"}, ErrInvalidTagLength},
		{"tag at bounds", ClanInput{Name: "Alpha", Tag: "ABCDEF"}, nil},
		{"name too long", ClanInput{Name: strings.Repeat("n", MaxClanNameLength+1), Tag: "ALP"}, ErrNameTooLong},
		{"description too long", ClanInput{Name: "Alpha", Tag: "ALP", Description: &long}, ErrDescriptionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClanInput(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClanStats_Value(t *testing.T) {
	s := &ClanStats{TotalPP: 10, AveragePP: 5, RankedScore: 1000, Accuracy: 98.5}
	assert.Equal(t, 10.0, s.Value(MetricTotalPP))
	assert.Equal(t, 5.0, s.Value(MetricAveragePP))
	assert.Equal(t, 1000.0, s.Value(MetricRankedScore))
	assert.Equal(t, 98.5, s.Value(MetricAccuracy))
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&ApproveJoinRequest{RequestID: 1, TargetUserID: 2}))
	assert.Error(t, ValidateStruct(&ApproveJoinRequest{RequestID: 1}))
	assert.Error(t, ValidateStruct(&ClanIDRequest{ClanID: -1}))
}
