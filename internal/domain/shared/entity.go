package shared

import "time"

// BaseEntity carries the identity and timestamps of a stored aggregate.
// ID is assigned by the store on first save; zero means not yet persisted.
type BaseEntity struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns an unsaved entity stamped with the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{CreatedAt: now, UpdatedAt: now}
}

// IsNew reports whether the entity has not been persisted yet
func (e *BaseEntity) IsNew() bool { return e.ID == 0 }

// Touch records a modification
func (e *BaseEntity) Touch() { e.UpdatedAt = time.Now() }
