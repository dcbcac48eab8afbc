package storage

import (
	"encoding/json"
	"fmt"

	"factory-dashboard/internal/tree"
)

// TotalKey хранится рядом со слотами модели и дублирует их сумму.
const TotalKey = "total"

// Slots is one model's node: slot label -> quantity, plus the redundant total.
type Slots map[string]int

// UnmarshalJSON accepts quantities stored as numbers or numeric strings.
func (s *Slots) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("storage.Slots: %w", err)
	}
	out := make(Slots, len(raw))
	for k, v := range raw {
		n, ok := tree.Number(v)
		if !ok {
			continue
		}
		out[k] = n
	}
	*s = out
	return nil
}

// Sum is the derived total: every slot except the stored total.
func (s Slots) Sum() int {
	sum := 0
	for k, v := range s {
		if k == TotalKey {
			continue
		}
		sum += v
	}
	return sum
}

// StoredTotal returns the denormalised total if one was written.
func (s Slots) StoredTotal() (int, bool) {
	v, ok := s[TotalKey]
	return v, ok
}

// SlotLabels returns slot labels in order, without the total.
func (s Slots) SlotLabels() []string {
	keys := tree.SortedKeys(s)
	out := keys[:0]
	for _, k := range keys {
		if k != TotalKey {
			out = append(out, k)
		}
	}
	return out
}

// DayProduction is actual/{area}/{date}: model -> slots.
type DayProduction map[string]Slots

// ProductionRow is one flattened non-zero slot value.
type ProductionRow struct {
	Area     string `json:"area"`
	Date     string `json:"date"`
	Model    string `json:"model"`
	Slot     string `json:"slot"`
	Quantity int    `json:"quantity"`
}

// ModelTotal compares the derived and the stored total of a model.
type ModelTotal struct {
	Area          string `json:"area"`
	Date          string `json:"date"`
	Model         string `json:"model"`
	Total         int    `json:"total"`
	StoredTotal   *int   `json:"stored_total"`
	TotalMismatch bool   `json:"total_mismatch"`
}

// DefaultSlots are the production time windows of a day shift.
var DefaultSlots = []string{
	"08:00 - 10:00",
	"10:10 - 11:30",
	"12:30 - 14:30",
	"14:40 - 16:30",
	"16:30 - 17:30",
	"17:30 - 19:30",
}
