package models

import "time"

// Base carries the columns shared by every table: a 64-bit id, structured
// create/update timestamps, a soft-delete tombstone marker (0 = live,
// nonzero = the actor id that deleted it) and a generic status flag.
type Base struct {
	ID         int64     `json:"id" db:"id"`
	CreateTime time.Time `json:"create_time" db:"create_time"`
	UpdateTime time.Time `json:"update_time" db:"update_time"`
	IsDeleted  int64     `json:"is_deleted" db:"is_deleted"`
	Status     int       `json:"status" db:"status"`
}

// Live reports whether the row is not tombstoned.
func (b Base) Live() bool { return b.IsDeleted == 0 }
