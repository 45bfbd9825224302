package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Ticket type -> quantity breakdown of a booking, stored as jsonb
type TicketCounts map[string]int

// Total number of tickets in the breakdown
func (tc TicketCounts) Total() int {
	total := 0
	for _, n := range tc {
		total += n
	}
	return total
}

// Ticket type names in a stable order, so expanding a breakdown is deterministic
func (tc TicketCounts) Types() []string {
	types := make([]string, 0, len(tc))
	for name := range tc {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Copy of the breakdown
func (tc TicketCounts) Clone() TicketCounts {
	clone := make(TicketCounts, len(tc))
	for k, v := range tc {
		clone[k] = v
	}
	return clone
}

func (tc TicketCounts) Value() (driver.Value, error) {
	if tc == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]int(tc))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (tc *TicketCounts) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	counts := TicketCounts{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &counts); err != nil {
			return err
		}
	}
	*tc = counts
	return nil
}

// Permission set of a sharing assignment, stored as a jsonb array
type Permissions []Permission

// Whether the set contains the permission. `manage` implies every other permission
func (ps Permissions) Has(perm Permission) bool {
	return slices.Contains(ps, perm) || slices.Contains(ps, PermManage)
}

func (ps Permissions) Value() (driver.Value, error) {
	if ps == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]Permission(ps))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (ps *Permissions) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	perms := Permissions{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &perms); err != nil {
			return err
		}
	}
	*ps = perms
	return nil
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb value type %T", value)
	}
}
