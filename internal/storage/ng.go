package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"factory-dashboard/internal/tree"
)

// LeafShape помечает, в каком виде лист был записан.
type LeafShape int

const (
	ShapeNumber LeafShape = iota + 1
	ShapeObject
	// ShapeInvalid: лист не читается как количество, считается нулём
	ShapeInvalid
)

// NGLeaf is the canonical NG quantity. Older upload paths wrote a bare number,
// manual edits write {quantity, reason}; both decode into this type.
type NGLeaf struct {
	Quantity int
	Reason   string
	Shape    LeafShape
	// Raw хранит исходное значение нечитаемого листа
	Raw string
}

type ngLeafObject struct {
	Quantity any    `json:"quantity"`
	Reason   string `json:"reason"`
}

func (l *NGLeaf) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = NGLeaf{}
		return nil
	}

	if b[0] == '{' {
		var obj ngLeafObject
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("storage.NGLeaf: %w", err)
		}
		n, ok := tree.Number(obj.Quantity)
		if !ok && obj.Quantity != nil {
			*l = NGLeaf{Reason: obj.Reason, Shape: ShapeInvalid, Raw: string(b)}
			return nil
		}
		*l = NGLeaf{Quantity: n, Reason: obj.Reason, Shape: ShapeObject}
		return nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("storage.NGLeaf: %w", err)
	}
	n, ok := tree.Number(v)
	if !ok {
		*l = NGLeaf{Shape: ShapeInvalid, Raw: string(b)}
		return nil
	}
	*l = NGLeaf{Quantity: n, Shape: ShapeNumber}
	return nil
}

// MarshalJSON всегда пишет объектную форму.
func (l NGLeaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"quantity": l.Quantity,
		"reason":   l.Reason,
	})
}

// NGWeek is ng/{workplace}/{week}: rework flag -> date -> model -> slot -> leaf.
type NGWeek map[string]map[string]map[string]map[string]NGLeaf

// NGRow is one flattened defect record.
type NGRow struct {
	Workplace string `json:"workplace"`
	Week      string `json:"week"`
	Rework    bool   `json:"rework"`
	Date      string `json:"date"`
	Model     string `json:"model"`
	Slot      string `json:"slot"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

// NGEntry is one write of a defect quantity.
type NGEntry struct {
	Workplace string `json:"workplace" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Model     string `json:"model" validate:"required"`
	Slot      string `json:"slot" validate:"required"`
	Rework    bool   `json:"rework"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Reason    string `json:"reason"`
}
