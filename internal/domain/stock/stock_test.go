package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampedDeduct(t *testing.T) {
	cases := []struct{ quantity, amount, want int }{
		{10, 3, 7},
		{3, 3, 0},
		{2, 5, 0},
		{0, 1, 0},
		{5, 0, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampedDeduct(c.quantity, c.amount), "ClampedDeduct(%d, %d)", c.quantity, c.amount)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "amoxicillin", NormalizeName("Amoxicillin"))
	assert.Equal(t, NormalizeName("amoxicillin"), NormalizeName(" AMOXICILLIN\t"))
	assert.NotEqual(t, NormalizeName("Amoxicillin"), NormalizeName("Amoxicillin 500"))
	assert.Equal(t, "ibuprofène", NormalizeName("IBUPROFÈNE"))
}

func TestItem_SetName(t *testing.T) {
	var item Item
	item.SetName("  Cetirizine ")
	assert.Equal(t, "Cetirizine", item.MedicineName)
	assert.Equal(t, "cetirizine", item.MedicineKey)
}

func TestUpdateItemCommand_ZeroValuesAreApplied(t *testing.T) {
	item := &Item{MedicineName: "Cetirizine", Quantity: 12, Price: 3.5}
	zero := 0
	zeroPrice := 0.0

	cmd := UpdateItemCommand{Quantity: &zero, Price: &zeroPrice}
	cmd.Apply(item)

	assert.Equal(t, "Cetirizine", item.MedicineName)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, 0.0, item.Price)
}

func TestUpdateItemCommand_Columns(t *testing.T) {
	price := 4.25
	cmd := UpdateItemCommand{Price: &price}
	assert.Equal(t, map[string]any{"price": 4.25}, cmd.Columns(), "absent fields are not written")
	assert.False(t, cmd.Empty())

	name := " Cetirizine 10mg "
	cmd = UpdateItemCommand{MedicineName: &name}
	assert.Equal(t, map[string]any{
		"medicine_name": "Cetirizine 10mg",
		"medicine_key":  "cetirizine 10mg",
	}, cmd.Columns())

	assert.True(t, (&UpdateItemCommand{}).Empty())
	assert.Empty(t, (&UpdateItemCommand{}).Columns())
}

func TestDeduction_Clamped(t *testing.T) {
	assert.True(t, Deduction{Tracked: true, Before: 2, Requested: 5}.Clamped())
	assert.False(t, Deduction{Tracked: true, Before: 5, Requested: 5}.Clamped())
	assert.False(t, Deduction{Tracked: false, Requested: 5}.Clamped())
}
