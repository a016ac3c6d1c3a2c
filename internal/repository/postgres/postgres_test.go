package postgres

import (
	"testing"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLinesKeepsStoredOrder(t *testing.T) {
	rows := []orderLineRow{
		{OrderID: "PO-1", POLine: domain.POLine{ItemID: "b"}},
		{OrderID: "PO-2", POLine: domain.POLine{ItemID: "x"}},
		{OrderID: "PO-1", POLine: domain.POLine{ItemID: "a"}},
	}

	got := groupLines(rows)

	require.Len(t, got["PO-1"], 2)
	assert.Equal(t, "b", got["PO-1"][0].ItemID)
	assert.Equal(t, "a", got["PO-1"][1].ItemID)
	assert.Len(t, got["PO-2"], 1)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, []string{"pending", "ordered"}, statusStrings(domain.PredecessorsOf(domain.POReceived)))
	assert.Empty(t, statusStrings(nil))
}
