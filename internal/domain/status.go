package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FrequencyKind is the arm of the CheckFrequency variant.
type FrequencyKind int

const (
	// FrequencyDefault covers empty and unrecognized policies. It is due every
	// day so a mistyped policy never silently stops an item being counted.
	FrequencyDefault FrequencyKind = iota
	FrequencyDaily
	FrequencyWeekly
	FrequencyEveryNDays
)

// CheckFrequency is the recount policy of an item.
type CheckFrequency struct {
	Kind FrequencyKind
	Days int // only meaningful for FrequencyEveryNDays
}

func Daily() CheckFrequency  { return CheckFrequency{Kind: FrequencyDaily} }
func Weekly() CheckFrequency { return CheckFrequency{Kind: FrequencyWeekly} }

func EveryNDays(n int) CheckFrequency {
	if n <= 0 {
		return CheckFrequency{Kind: FrequencyDefault}
	}
	return CheckFrequency{Kind: FrequencyEveryNDays, Days: n}
}

// ParseCheckFrequency accepts "daily", "weekly", "3day", "3days" and
// "every-3-days". Anything else maps to FrequencyDefault.
func ParseCheckFrequency(raw string) CheckFrequency {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "daily":
		return Daily()
	case "weekly":
		return Weekly()
	}

	if strings.HasPrefix(v, "every-") && strings.HasSuffix(v, "-days") {
		v = strings.TrimSuffix(strings.TrimPrefix(v, "every-"), "-days")
	} else {
		v = strings.TrimSuffix(strings.TrimSuffix(v, "days"), "day")
	}
	if n, err := strconv.Atoi(v); err == nil {
		return EveryNDays(n)
	}
	return CheckFrequency{Kind: FrequencyDefault}
}

func (f CheckFrequency) String() string {
	switch f.Kind {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyEveryNDays:
		return fmt.Sprintf("%dday", f.Days)
	default:
		return "default"
	}
}

func (f CheckFrequency) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *CheckFrequency) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("check frequency must be a string: %w", err)
	}
	*f = ParseCheckFrequency(raw)
	return nil
}

// Value implements driver.Valuer.
func (f CheckFrequency) Value() (driver.Value, error) {
	return f.String(), nil
}

// Scan implements sql.Scanner.
func (f *CheckFrequency) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = CheckFrequency{}
	case string:
		*f = ParseCheckFrequency(v)
	case []byte:
		*f = ParseCheckFrequency(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CheckFrequency", src)
	}
	return nil
}

type ItemStatus string

const (
	ItemActive   ItemStatus = "active"
	ItemInactive ItemStatus = "inactive"
)

// ParseItemStatus is case-insensitive; an empty value means active.
func ParseItemStatus(raw string) (ItemStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "active":
		return ItemActive, true
	case "inactive":
		return ItemInactive, true
	}
	return "", false
}

// POStatus is the purchase order lifecycle state.
type POStatus string

const (
	POPending  POStatus = "pending"
	POOrdered  POStatus = "ordered"
	POReceived POStatus = "received"
)

var poStatusRank = map[POStatus]int{
	POPending:  0,
	POOrdered:  1,
	POReceived: 2,
}

var poStatusLabels = map[POStatus]string{
	POPending:  "Pending",
	POOrdered:  "Ordered",
	POReceived: "Received",
}

// ParsePOStatus returns the status for a given label (case-insensitive).
func ParsePOStatus(label string) (POStatus, bool) {
	s := POStatus(strings.ToLower(strings.TrimSpace(label)))
	_, ok := poStatusRank[s]
	return s, ok
}

// POStatusLabel returns a human-readable label for a PO status.
func POStatusLabel(s POStatus) string {
	if label, ok := poStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// PredecessorsOf lists the states a transition into target may start from.
// Moves only go forward; a state never precedes itself.
func PredecessorsOf(target POStatus) []POStatus {
	rank, ok := poStatusRank[target]
	if !ok {
		return nil
	}
	var from []POStatus
	for _, s := range []POStatus{POPending, POOrdered, POReceived} {
		if poStatusRank[s] < rank {
			from = append(from, s)
		}
	}
	return from
}

// After reports whether s is strictly later in the lifecycle than other.
func (s POStatus) After(other POStatus) bool {
	return poStatusRank[s] > poStatusRank[other]
}

type AlertKind string

const (
	AlertLowStock         AlertKind = "low_stock"
	AlertHighStock        AlertKind = "high_stock"
	AlertAbnormalVariance AlertKind = "abnormal_variance"
)

type StockLogKind string

const (
	StockLogPOReceived   StockLogKind = "po_received"
	StockLogManualAdjust StockLogKind = "manual_adjust"
)

// Role is the caller's authority level.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleBoss    Role = "boss"
)

func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleStaff, RoleManager, RoleBoss:
		return r, true
	}
	return "", false
}

// CanManage reports whether the role may mutate items and orders.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleBoss
}
