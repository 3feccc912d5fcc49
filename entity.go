package taskq

import "time"

// Entity carries the creation and last-update timestamps shared by all
// taskq records. Embed it in persisted structs.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp to now (UTC).
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
