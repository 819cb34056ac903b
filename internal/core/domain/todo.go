package domain

import "time"

// MaxTodoTextLength bounds the text of a single todo item, in characters.
const MaxTodoTextLength = 500

// Todo is a single item on a user's list. OwnerID is always taken from the
// authenticated subject, never from client input.
type Todo struct {
	ID        string
	OwnerID   string
	Text      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoPatch carries a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Text      *string
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil
}
