package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowEmptyRequirementAlwaysGrants(t *testing.T) {
	assert.True(t, Allow(nil, nil, Any))
	assert.True(t, Allow(nil, []string{"", "  "}, Any))
	assert.True(t, Allow([]string{"order:view"}, nil, All))
}

func TestAllowAnyMode(t *testing.T) {
	granted := []string{"order:view", "customer:view"}

	assert.True(t, Allow(granted, []string{"order:view", "product:view"}, Any))
	assert.False(t, Allow(granted, []string{"product:view", "store:view"}, Any))
	assert.True(t, Allow(granted, []string{"ORDER:VIEW"}, Any), "matching is case-insensitive")
}

func TestAllowAllMode(t *testing.T) {
	granted := []string{"order:view", "customer:view"}

	assert.True(t, Allow(granted, []string{"order:view", "customer:view"}, All))
	assert.False(t, Allow(granted, []string{"order:view", "product:view"}, All))
}

func TestVisibleForFiltersMenu(t *testing.T) {
	visible := VisibleFor([]string{PermOrderView})
	labels := make([]string, 0, len(visible))
	for _, e := range visible {
		labels = append(labels, e.Label)
	}
	assert.Contains(t, labels, "Dashboard")
	assert.Contains(t, labels, "Orders")
	assert.NotContains(t, labels, "Inventory")
}

func TestVisibleForNoPermissionsShowsOnlyDashboard(t *testing.T) {
	visible := VisibleFor(nil)
	assert.Len(t, visible, 1)
	assert.Equal(t, "Dashboard", visible[0].Label)
}

func TestVisibleForAnyOfRequirementSet(t *testing.T) {
	// Stores requires either view or manage; holding just one suffices.
	visible := VisibleFor([]string{PermStoreManage})
	var found bool
	for _, e := range visible {
		if e.Label == "Stores" {
			found = true
		}
	}
	assert.True(t, found)
}
