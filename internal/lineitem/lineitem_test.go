package lineitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRoundTrip(t *testing.T) {
	items := Items{
		{GoodID: int64Ptr(7), Name: "Hex Bolt M8", Description: "zinc plated", Unit: "pcs", Quantity: 100, Price: 1250},
		{Name: "Custom bracket", Unit: "set", Quantity: 4, Price: 87500},
		{GoodID: int64Ptr(12), Name: "Washer", Quantity: 200, Price: 150},
	}

	data, err := Marshal(items)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, items, back)

	// Second pass must be byte-stable as well.
	data2, err := Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestUnmarshalEmpty(t *testing.T) {
	items, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Equal(t, Items{}, items)

	items, err = Unmarshal([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestKey(t *testing.T) {
	withRef := Item{GoodID: int64Ptr(42), Name: "Bolt"}
	freeText := Item{Name: "Bolt"}

	assert.Equal(t, "good:42", withRef.Key())
	assert.Equal(t, "name:Bolt", freeText.Key())
	assert.NotEqual(t, withRef.Key(), freeText.Key())
}

func TestTotals(t *testing.T) {
	items := Items{
		{Name: "a", Quantity: 2, Price: 10},
		{Name: "b", Quantity: 3, Price: 5},
	}
	assert.Equal(t, 20.0, items[0].Subtotal())
	assert.Equal(t, 35.0, items.Total())
	assert.Equal(t, 0.0, Items{}.Total())
}
