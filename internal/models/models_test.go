// internal/models/models_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLifecycleHelpers(t *testing.T) {
	assert.True(t, StatusInProgress.Active())
	assert.True(t, StatusSubmitted.Active())
	assert.False(t, StatusApproved.Active())
	assert.False(t, StatusAdjust.Active())
	assert.False(t, StatusExpired.Active())

	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusAdjust.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
}

func TestAnswers_WithPreservesOrderAndCopies(t *testing.T) {
	a := Answers{}
	b := a.With("name", "Rook")
	c := b.With("origin", "the coast")

	assert.Empty(t, a, "With must not mutate the receiver")
	assert.Len(t, c, 2)
	assert.Equal(t, "name", c[0].Key)
	assert.Equal(t, "origin", c[1].Key)

	v, ok := c.Get("origin")
	assert.True(t, ok)
	assert.Equal(t, "the coast", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestAnswers_MarshalRoundTrip(t *testing.T) {
	a := Answers{{Key: "name", Value: "Rook"}, {Key: "origin", Value: "north"}}

	data, err := a.Marshal()
	require.NoError(t, err)

	back, err := UnmarshalAnswers(data)
	require.NoError(t, err)
	assert.Equal(t, a, back)

	empty, err := UnmarshalAnswers(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCommunityConfig_ApplyDispatch(t *testing.T) {
	cfg := &CommunityConfig{CommunityID: "guild-1"}

	require.NoError(t, cfg.Apply(FieldStaffChannel, "chan-1"))
	require.NoError(t, cfg.Apply(FieldStaffRole, "role-1"))
	assert.Equal(t, "chan-1", cfg.StaffChannelID)
	assert.Equal(t, "role-1", cfg.StaffRoleID)

	err := cfg.Apply(ConfigField("favorite_color"), "red")
	assert.Error(t, err)
	assert.False(t, ValidConfigField(ConfigField("favorite_color")))
	assert.True(t, ValidConfigField(FieldPanelChannel))
}
