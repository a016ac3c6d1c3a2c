package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCheckFrequency(t *testing.T) {
	tests := []struct {
		raw  string
		want CheckFrequency
	}{
		{"daily", Daily()},
		{" Weekly ", Weekly()},
		{"3day", EveryNDays(3)},
		{"5days", EveryNDays(5)},
		{"every-4-days", EveryNDays(4)},
		{"0day", CheckFrequency{}},
		{"-2days", CheckFrequency{}},
		{"", CheckFrequency{}},
		{"monthly", CheckFrequency{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCheckFrequency(tt.raw))
		})
	}
}

func TestCheckFrequencyJSON(t *testing.T) {
	item := Item{ID: "ITEM-1", CheckFrequency: EveryNDays(3)}

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"check_frequency":"3day"`)

	var decoded Item
	require.NoError(t, json.Unmarshal([]byte(`{"check_frequency":"weekly"}`), &decoded))
	assert.Equal(t, Weekly(), decoded.CheckFrequency)

	require.Error(t, json.Unmarshal([]byte(`{"check_frequency":7}`), &decoded))
}

func TestCheckFrequencyScan(t *testing.T) {
	var f CheckFrequency
	require.NoError(t, f.Scan([]byte("daily")))
	assert.Equal(t, Daily(), f)

	require.NoError(t, f.Scan(nil))
	assert.Equal(t, FrequencyDefault, f.Kind)

	assert.Error(t, f.Scan(42))
}

func TestPredecessorsOf(t *testing.T) {
	assert.Empty(t, PredecessorsOf(POPending))
	assert.Equal(t, []POStatus{POPending}, PredecessorsOf(POOrdered))
	assert.Equal(t, []POStatus{POPending, POOrdered}, PredecessorsOf(POReceived))
	assert.Nil(t, PredecessorsOf("cancelled"))

	assert.True(t, POReceived.After(POOrdered))
	assert.False(t, POPending.After(POOrdered))
}

func TestParseStatusesAndRoles(t *testing.T) {
	s, ok := ParsePOStatus("Received")
	require.True(t, ok)
	assert.Equal(t, POReceived, s)
	assert.Equal(t, "Received", POStatusLabel(s))

	_, ok = ParsePOStatus("lost")
	assert.False(t, ok)

	st, ok := ParseItemStatus("")
	require.True(t, ok)
	assert.Equal(t, ItemActive, st)

	role, ok := ParseRole("BOSS")
	require.True(t, ok)
	assert.True(t, role.CanManage())
	assert.False(t, RoleStaff.CanManage())
}

func TestPurchaseOrderTotalCost(t *testing.T) {
	po := PurchaseOrder{Lines: []POLine{{LineCost: 62.5}, {LineCost: 10}}}
	assert.Equal(t, 72.5, po.TotalCost())
}
