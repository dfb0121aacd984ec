package core

import (
	"encoding/json"
	"fmt"
)

// ParseSnapshot decodes the JSON array embedded in the budgets page.
//
// Missing or null numeric fields become zero and quoted numbers are accepted,
// so a partially filled record still renders. Input that is not an array of
// objects is rejected.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// RemoveByID returns a copy of snap without the entry whose ID is id.
// An absent id leaves the contents unchanged.
func RemoveByID(snap Snapshot, id int64) Snapshot {
	out := make(Snapshot, 0, len(snap))
	for _, c := range snap {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Names lists category names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}
