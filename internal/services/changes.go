package services

import (
	"reflect"
	"time"
)

// FieldChange is the before and after value of one updated field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Changes maps column names to their change. It is used as the audit diff
// for updates.
type Changes map[string]FieldChange

// track records field when before and after differ and adds the column to updates.
func (c Changes) track(updates map[string]interface{}, field string, before, after interface{}) {
	if sameValue(before, after) {
		return
	}
	c[field] = FieldChange{Old: before, New: after}
	updates[field] = after
}

func sameValue(a, b interface{}) bool {
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
