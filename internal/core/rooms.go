package core

import "sort"

// Daily rates, in rupiah.
const (
	StandardRate Money = 200000
	EconomyRate  Money = 180000
)

var roomRates = map[int]Money{
	105: StandardRate, 106: StandardRate, 107: StandardRate, 108: StandardRate,
	201: StandardRate, 202: StandardRate,
	203: EconomyRate, 204: EconomyRate, 205: EconomyRate, 206: EconomyRate, 207: EconomyRate, 208: EconomyRate,
	301: StandardRate, 302: StandardRate,
	303: EconomyRate, 304: EconomyRate, 305: EconomyRate, 306: EconomyRate, 307: EconomyRate, 308: EconomyRate,
	403: EconomyRate,
	404: StandardRate, 405: StandardRate, 406: StandardRate, 407: StandardRate,
	408: EconomyRate,
}

// TotalRooms is the size of the fixed room inventory.
var TotalRooms = len(roomRates)

// RoomRate returns the daily rate for room and whether the room exists.
func RoomRate(room int) (Money, bool) {
	rate, ok := roomRates[room]
	return rate, ok
}

func ValidRoom(room int) bool {
	_, ok := roomRates[room]
	return ok
}

// Rooms returns every room number in ascending order.
func Rooms() []int {
	rooms := make([]int, 0, len(roomRates))
	for n := range roomRates {
		rooms = append(rooms, n)
	}
	sort.Ints(rooms)
	return rooms
}
