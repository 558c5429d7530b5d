package model

// Actor is a performer that can be cast in many plays.
type Actor struct {
	ID        uint64 `json:"id"`         // actors.id
	FirstName string `json:"first_name"` // actors.first_name
	LastName  string `json:"last_name"`  // actors.last_name
	FullName  string `json:"full_name"`  // derived, never stored
}

// SetFullName fills the derived FullName field.
func (a *Actor) SetFullName() {
	a.FullName = a.FirstName + " " + a.LastName
}
