// Idempotency bookkeeping for unsafe HTTP endpoints. This is local state only:
// the workbook remains the system of record, the sqlite-backed table merely
// remembers which dashboard submissions were already applied to it.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (user_id, ro_id, key). It enables safe retries for POST/PUT
// operations against the workbook by short-circuiting duplicates before a
// second read-modify-write session is opened.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_ro_key,priority:1"`
	ROID      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_ro_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_ro_key,priority:3"`
	ResultID  string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
