package model

import "time"

// Performance is a scheduled showing of a play in a hall.
type Performance struct {
	ID            uint64    `json:"id"`           // performances.id
	PlayID        uint64    `json:"play"`         // performances.play_id
	TheatreHallID uint64    `json:"theatre_hall"` // performances.theatre_hall_id
	ShowTime      time.Time `json:"show_time"`    // performances.show_time (UTC)
}

// PerformanceListItem is a list row with the derived availability count.
type PerformanceListItem struct {
	ID                  uint64    `json:"id"`
	ShowTime            time.Time `json:"show_time"`
	PlayTitle           string    `json:"play_title"`
	PlayImage           *string   `json:"play_image"`
	TheatreHallName     string    `json:"theatre_hall_name"`
	TheatreHallCapacity int       `json:"theatre_hall_capacity"`
	TicketsAvailable    int       `json:"tickets_available"`
}

// Seat identifies one taken place in a performance.
type Seat struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}

// PerformanceDetail nests the play and hall and lists every taken place.
type PerformanceDetail struct {
	ID               uint64      `json:"id"`
	ShowTime         time.Time   `json:"show_time"`
	Play             PlayDetail  `json:"play"`
	TheatreHall      TheatreHall `json:"theatre_hall"`
	TicketsAvailable int         `json:"tickets_available"`
	TakenPlaces      []Seat      `json:"taken_places"`
}
