package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	StatusWorking = "working"
	StatusLeave   = "leave"
)

type Shift struct {
	Status   string `json:"status" validate:"required,oneof=working leave"`
	Model    string `json:"model"`
	Time     string `json:"time"`
	JoinDate string `json:"joinDate"`
}

// ShiftList is the value of schedules/{YYYYMMDD}. Some write paths stored a
// single shift object, others an array; both decode into a list.
type ShiftList []Shift

func (s *ShiftList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}

	switch b[0] {
	case '[':
		var list []*Shift
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("storage.ShiftList: %w", err)
		}
		out := make(ShiftList, 0, len(list))
		for _, sh := range list {
			if sh != nil {
				out = append(out, *sh)
			}
		}
		*s = out
		return nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return fmt.Errorf("storage.ShiftList: %w", err)
		}
		if len(fields) == 0 {
			*s = nil
			return nil
		}
		if indexed, ok := indexedShifts(fields); ok {
			*s = indexed
			return nil
		}
		var one Shift
		if err := json.Unmarshal(b, &one); err != nil {
			return fmt.Errorf("storage.ShiftList: %w", err)
		}
		*s = ShiftList{one}
		return nil
	}
	return fmt.Errorf("storage.ShiftList: unsupported value %s", string(b))
}

// indexedShifts разбирает массив, сохранённый как объект {"0": {...}, "1": {...}}.
func indexedShifts(m map[string]json.RawMessage) (ShiftList, bool) {
	if len(m) == 0 {
		return nil, false
	}
	idx := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make(ShiftList, 0, len(idx))
	for _, i := range idx {
		var sh Shift
		if err := json.Unmarshal(m[strconv.Itoa(i)], &sh); err != nil {
			return nil, false
		}
		out = append(out, sh)
	}
	return out, true
}

// Employee is attendance/{area}/{employeeId}.
type Employee struct {
	ID        string               `json:"id"`
	Area      string               `json:"area"`
	Name      string               `json:"name"`
	ImageURL  string               `json:"imageUrl"`
	Schedules map[string]ShiftList `json:"schedules,omitempty"`
}

// AttendanceSummary считает смены подразделения за день.
type AttendanceSummary struct {
	Area       string         `json:"area"`
	Date       string         `json:"date"`
	Employees  int            `json:"employees"`
	Working    int            `json:"working"`
	Leave      int            `json:"leave"`
	Unassigned int            `json:"unassigned"`
	ByModel    map[string]int `json:"by_model"`
}
