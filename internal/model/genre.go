package model

// Genre is a play category.  Names are unique across the catalog.
type Genre struct {
	ID   uint64 `json:"id"`   // genres.id
	Name string `json:"name"` // genres.name
}
