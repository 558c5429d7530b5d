package model

// Play is a catalog entry that performances are scheduled for.  Genres
// and Actors are many-to-many links; Image is the storage key of an
// uploaded poster, empty when none has been uploaded.
type Play struct {
	ID          uint64   `json:"id"`          // plays.id
	Title       string   `json:"title"`       // plays.title
	Description *string  `json:"description"` // plays.description (nullable)
	Image       *string  `json:"image"`       // plays.image (nullable storage key)
	GenreIDs    []uint64 `json:"genres"`      // play_genres.genre_id
	ActorIDs    []uint64 `json:"actors"`      // play_actors.actor_id
}

// PlayListItem is the flattened representation used by list endpoints:
// genre names and actor full names instead of ids.
type PlayListItem struct {
	ID     uint64   `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
	Actors []string `json:"actors"`
	Image  *string  `json:"image"`
}

// PlayDetail nests full genre and actor records.
type PlayDetail struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Genres      []Genre `json:"genres"`
	Actors      []Actor `json:"actors"`
	Image       *string `json:"image"`
}
