package storage

// Row shapes as stored. Dates are YYYY-MM-DD text and timestamps are
// fixed-width UTC text so lexical and chronological order agree.

type Stay struct {
	ID           string
	RoomNumber   int64
	GuestName    string
	Status       string
	CheckInDate  string
	CheckOutDate string
	LastDayPaid  string
	TotalPayment int64
	CreatedAt    string
}

type DateFlow struct {
	ID        string
	Day       string
	Amount    int64
	NegAmount int64
	UpdatedAt string
}

type Expense struct {
	ID        string
	Title     string
	Amount    int64
	Day       string
	Category  string
	CreatedAt string
}

type FlowOutbox struct {
	ID        int64
	Day       string
	Income    int64
	Expense   int64
	Status    string
	Attempts  int64
	LastError string
	CreatedAt string
	UpdatedAt string
}
