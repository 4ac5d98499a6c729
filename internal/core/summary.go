package core

// CategoryTotal is the expense total for one category.
type CategoryTotal struct {
	Category Category `json:"category"`
	Total    Money    `json:"total"`
}

// Occupancy is the front-desk headline for one day.
type Occupancy struct {
	Occupied       int `json:"occupied"`
	Available      int `json:"available"`
	TotalRooms     int `json:"totalRooms"`
	RatePercent    int `json:"occupancyRate"`
	CheckInsToday  int `json:"checkInsToday"`
	CheckOutsToday int `json:"checkOutsToday"`
}

// RoomSlot pairs a room with the stay occupying it, if any.
type RoomSlot struct {
	RoomNumber int   `json:"roomNumber"`
	Rate       Money `json:"rate"`
	Stay       *Stay `json:"stay,omitempty"`
}

// ExpensesByCategory totals expenses per category, in Categories order.
// Every category is present even when its total is zero.
func ExpensesByCategory(expenses []Expense) []CategoryTotal {
	sums := make(map[Category]Money)
	for _, e := range expenses {
		sums[e.Category] += e.Amount
	}
	out := make([]CategoryTotal, 0, len(Categories()))
	for _, c := range Categories() {
		out = append(out, CategoryTotal{Category: c, Total: sums[c]})
	}
	return out
}

// OccupancyFor counts open stays and today's arrivals and departures.
// A departure only counts while the stay is still open.
func OccupancyFor(stays []Stay, today Date) Occupancy {
	o := Occupancy{TotalRooms: TotalRooms}
	for _, s := range stays {
		if s.Active() {
			o.Occupied++
		}
		if s.CheckInDate.IsSame(today) {
			o.CheckInsToday++
		}
		if s.CheckOutDate.IsSame(today) && s.Active() {
			o.CheckOutsToday++
		}
	}
	o.Available = o.TotalRooms - o.Occupied
	if o.TotalRooms > 0 {
		o.RatePercent = (o.Occupied*200 + o.TotalRooms) / (o.TotalRooms * 2)
	}
	return o
}

// RoomBoard lists every room with its open stay.
func RoomBoard(stays []Stay) []RoomSlot {
	active := make(map[int]Stay)
	for _, s := range stays {
		if s.Active() {
			active[s.RoomNumber] = s
		}
	}
	rooms := Rooms()
	out := make([]RoomSlot, 0, len(rooms))
	for _, n := range rooms {
		rate, _ := RoomRate(n)
		slot := RoomSlot{RoomNumber: n, Rate: rate}
		if s, ok := active[n]; ok {
			s := s
			slot.Stay = &s
		}
		out = append(out, slot)
	}
	return out
}
