package models

import (
	"encoding/json"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSet_WithBudgetPrefersCaller(t *testing.T) {
	slots := SlotSet{BudgetMin: mo.Some(300.0), BudgetMax: mo.Some(800.0)}

	out := slots.WithBudget(mo.None[float64](), mo.Some(1200.0))

	assert.Equal(t, 300.0, out.BudgetMin.MustGet())
	assert.Equal(t, 1200.0, out.BudgetMax.MustGet())
	assert.Equal(t, 800.0, slots.BudgetMax.MustGet(), "original must stay untouched")
}

func TestFilters_PriceAllowed(t *testing.T) {
	f := FiltersFromSlots(SlotSet{DeviceType: DeviceLaptop, BudgetMin: mo.Some(500.0), BudgetMax: mo.Some(1000.0)})

	assert.Equal(t, DeviceLaptop, f.DeviceType)
	assert.True(t, f.PriceAllowed(500))
	assert.True(t, f.PriceAllowed(1000))
	assert.False(t, f.PriceAllowed(499.99))
	assert.False(t, f.PriceAllowed(1000.01))

	open := Filters{}
	assert.True(t, open.PriceAllowed(1e7))

	inverted := Filters{BudgetMin: mo.Some(1000.0), BudgetMax: mo.Some(500.0)}
	assert.False(t, inverted.PriceAllowed(700))
}

func TestSlotSet_JSONShowsAbsentNumbersAsNull(t *testing.T) {
	raw, err := json.Marshal(SlotSet{OS: OSApple, BudgetMax: mo.Some(900.0)})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Apple", decoded["os"])
	assert.Equal(t, 900.0, decoded["budget_max"])
	assert.Nil(t, decoded["ram"])
	assert.NotContains(t, decoded, "use_case")
}

func TestCandidate_Attributes(t *testing.T) {
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Pixel 8","ram":"8GB","camera":{"mp":50},"categories":["phone","android"]}`), &c))

	assert.Equal(t, "Pixel 8", c.DisplayTitle())
	_, ok := c.RAMValue()
	assert.False(t, ok)
	assert.Contains(t, c.CameraText(), "50")
	assert.Equal(t, "phone android", c.CategoryText())

	require.NoError(t, json.Unmarshal([]byte(`{"title":"XPS 13","ram":16,"shortDescription":"short","description":"long"}`), &c))
	ram, ok := c.RAMValue()
	assert.True(t, ok)
	assert.Equal(t, 16.0, ram)
	assert.Equal(t, "short", c.Summary())
}
