package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNGLeaf_BothShapesDecodeAlike(t *testing.T) {
	var bare, obj NGLeaf
	require.NoError(t, json.Unmarshal([]byte(`12`), &bare))
	require.NoError(t, json.Unmarshal([]byte(`{"quantity": 12, "reason": "scratch"}`), &obj))

	assert.Equal(t, 12, bare.Quantity)
	assert.Equal(t, "", bare.Reason)
	assert.Equal(t, ShapeNumber, bare.Shape)

	assert.Equal(t, 12, obj.Quantity)
	assert.Equal(t, "scratch", obj.Reason)
	assert.Equal(t, ShapeObject, obj.Shape)
}

func TestNGLeaf_StringQuantities(t *testing.T) {
	var a, b NGLeaf
	require.NoError(t, json.Unmarshal([]byte(`"4"`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"quantity": "5"}`), &b))
	assert.Equal(t, 4, a.Quantity)
	assert.Equal(t, 5, b.Quantity)

}

func TestNGLeaf_UnreadableLeafIsZero(t *testing.T) {
	for _, raw := range []string{`true`, `"n/a"`, `{"quantity": "lots", "reason": "dent"}`} {
		var l NGLeaf
		require.NoError(t, json.Unmarshal([]byte(raw), &l), raw)
		assert.Equal(t, 0, l.Quantity, raw)
		assert.Equal(t, ShapeInvalid, l.Shape, raw)
		assert.Equal(t, raw, l.Raw)
	}

	// одна плохая ячейка не ломает всю неделю
	var w NGWeek
	raw := `{"false": {"2024-03-04": {"A": {"s1": 4, "s2": true}}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &w))
	assert.Equal(t, 4, w["false"]["2024-03-04"]["A"]["s1"].Quantity)
	assert.Equal(t, ShapeInvalid, w["false"]["2024-03-04"]["A"]["s2"].Shape)
}

func TestNGLeaf_MarshalWritesObject(t *testing.T) {
	raw, err := json.Marshal(NGLeaf{Quantity: 3, Shape: ShapeNumber})
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantity": 3, "reason": ""}`, string(raw))
}

func TestShiftList_ObjectAndArray(t *testing.T) {
	var one, many, indexed ShiftList
	require.NoError(t, json.Unmarshal([]byte(`{"status":"working","model":"M1","time":"08:00-17:00"}`), &one))
	require.NoError(t, json.Unmarshal([]byte(`[{"status":"working","model":"M1"},null,{"status":"leave"}]`), &many))
	require.NoError(t, json.Unmarshal([]byte(`{"1":{"status":"leave"},"0":{"status":"working","model":"M2"}}`), &indexed))

	require.Len(t, one, 1)
	assert.Equal(t, "M1", one[0].Model)
	assert.Equal(t, "08:00-17:00", one[0].Time)

	require.Len(t, many, 2)
	assert.Equal(t, StatusLeave, many[1].Status)

	require.Len(t, indexed, 2)
	assert.Equal(t, "M2", indexed[0].Model)
	assert.Equal(t, StatusLeave, indexed[1].Status)

	var empty ShiftList
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Nil(t, empty)
}

func TestSlots_DerivedTotal(t *testing.T) {
	var node map[string]Slots
	require.NoError(t, json.Unmarshal([]byte(`{"Monday": {"08:00-10:00": 5, "10:10-11:30": 3}}`), &node))

	assert.Equal(t, 8, node["Monday"].Sum())
	_, ok := node["Monday"].StoredTotal()
	assert.False(t, ok)
}

func TestSlots_IgnoresStoredTotal(t *testing.T) {
	var s Slots
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2, "b": "3", "total": 99, "junk": {"x": 1}}`), &s))
	assert.Equal(t, 5, s.Sum())
	total, ok := s.StoredTotal()
	assert.True(t, ok)
	assert.Equal(t, 99, total)
	assert.Equal(t, []string{"a", "b"}, s.SlotLabels())
}

func TestMoldFields(t *testing.T) {
	assert.Equal(t, "Shot Count", MoldDisplayName("shot_count"))
	assert.Equal(t, "unknown", MoldDisplayName("unknown"))

	key, ok := MoldFieldKey("Mold Code")
	assert.True(t, ok)
	assert.Equal(t, "mold_code", key)
	_, ok = MoldFieldKey("nope")
	assert.False(t, ok)

	assert.InDelta(t, 0.25, Mold{ShotCount: 250, ShotLimit: 1000}.ShotUsage(), 1e-9)
	assert.Zero(t, Mold{ShotCount: 250}.ShotUsage())
}
