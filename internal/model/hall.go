package model

// TheatreHall is a room with a rectangular seating grid.  Rows and seats
// are numbered from 1, so a valid ticket satisfies 1 <= row <= Rows and
// 1 <= seat <= SeatsInRow.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – display name of the hall.
//	Rows       – number of seating rows (> 0).
//	SeatsInRow – number of seats in every row (> 0).
//	Capacity   – Rows × SeatsInRow, derived on read.
type TheatreHall struct {
	ID         uint64 `json:"id"`           // theatre_halls.id
	Name       string `json:"name"`         // theatre_halls.name
	Rows       int    `json:"rows"`         // theatre_halls.num_rows
	SeatsInRow int    `json:"seats_in_row"` // theatre_halls.seats_in_row
	Capacity   int    `json:"capacity"`     // derived
}

// ComputeCapacity returns Rows × SeatsInRow and stores it on the hall.
func (h *TheatreHall) ComputeCapacity() int {
	h.Capacity = h.Rows * h.SeatsInRow
	return h.Capacity
}
