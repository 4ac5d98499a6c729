package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Period is a reporting window for the cash-flow rollups.
type Period string

// Summary totals a set of flows.
type Summary struct {
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	Net          Money `json:"net"`
}

// ChartBucket is one bar of a period chart.
type ChartBucket struct {
	Label   string `json:"label"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Net     Money  `json:"net"`
}

// Rollup is everything a period view needs.
type Rollup struct {
	Period  Period        `json:"period"`
	Offset  int           `json:"offset"`
	Start   Date          `json:"start"`
	End     Date          `json:"end"`
	Flows   []DateFlow    `json:"flows"`
	Summary Summary       `json:"summary"`
	Chart   []ChartBucket `json:"chart"`
}

var (
	weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthLabels   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// weeksInMonthChart is the bucket count for a month chart. Day 29 and later
// fall into the fifth bucket.
const weeksInMonthChart = 5

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	case "":
		return PeriodWeek, nil
	default:
		return "", invalid(ErrInvalidPeriod, fmt.Sprintf("Unknown period %q", s))
	}
}

// ValidateFlowDelta rejects negative deltas and a delta that changes nothing.
func ValidateFlowDelta(income, expense Money) error {
	if income < 0 || expense < 0 {
		return invalid(ErrInvalidFlow, "Flow amounts cannot be negative")
	}
	if income == 0 && expense == 0 {
		return invalid(ErrInvalidFlow, "Flow must record income or expense")
	}
	return nil
}

// MergeFlow adds the deltas to f. Merging is commutative, so two merges of
// (a, b) and (c, d) equal one merge of (a+c, b+d).
func MergeFlow(f DateFlow, income, expense Money) DateFlow {
	f.Amount += income
	f.NegAmount += expense
	return f
}

// NetForDay is income minus expense for one day.
func NetForDay(f DateFlow) Money {
	return f.Amount - f.NegAmount
}

// Summarize totals flows. An empty input yields all zeros.
func Summarize(flows []DateFlow) Summary {
	var s Summary
	for _, f := range flows {
		s.TotalIncome += f.Amount
		s.TotalExpense += f.NegAmount
	}
	s.Net = s.TotalIncome - s.TotalExpense
	return s
}

// MaxPeriodOffset is how many periods back a rollup may reach.
const MaxPeriodOffset = 10000

// PeriodBounds returns the inclusive first and last day of the period that
// lies offset periods before the one containing today. Weeks start on
// Sunday.
func PeriodBounds(p Period, offset int, today Date) (Date, Date, error) {
	if offset < 0 {
		return Date{}, Date{}, invalid(ErrInvalidPeriod, "Offset cannot be negative")
	}
	if offset > MaxPeriodOffset {
		return Date{}, Date{}, invalid(ErrInvalidPeriod, fmt.Sprintf("Offset cannot exceed %d", MaxPeriodOffset))
	}
	switch p {
	case PeriodWeek:
		start := today.AddDays(-int(today.Weekday()) - 7*offset)
		return start, start.AddDays(6), nil
	case PeriodMonth:
		first := NewDate(today.Year(), int(today.Time.Month()), 1)
		first = Date{Time: first.AddDate(0, -offset, 0)}
		last := Date{Time: first.AddDate(0, 1, -1)}
		return first, last, nil
	case PeriodYear:
		y := today.Year() - offset
		return NewDate(y, 1, 1), NewDate(y, 12, 31), nil
	default:
		return Date{}, Date{}, invalid(ErrInvalidPeriod, fmt.Sprintf("Unknown period %q", p))
	}
}

// FilterByPeriod keeps the flows inside the selected period, inclusive.
func FilterByPeriod(flows []DateFlow, p Period, offset int, today Date) ([]DateFlow, error) {
	start, end, err := PeriodBounds(p, offset, today)
	if err != nil {
		return nil, err
	}
	out := make([]DateFlow, 0, len(flows))
	for _, f := range flows {
		if f.Date.IsBefore(start) || f.Date.IsAfter(end) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// BucketForChart groups flows into fixed, fully populated buckets: seven
// weekdays for a week, five week-of-month slots for a month and twelve
// months for a year.
func BucketForChart(flows []DateFlow, p Period) ([]ChartBucket, error) {
	var labels []string
	var index func(Date) int
	switch p {
	case PeriodWeek:
		labels = weekdayLabels
		index = func(d Date) int { return int(d.Weekday()) }
	case PeriodMonth:
		labels = make([]string, weeksInMonthChart)
		for i := range labels {
			labels[i] = fmt.Sprintf("Week %d", i+1)
		}
		index = func(d Date) int { return (d.Day() - 1) / 7 }
	case PeriodYear:
		labels = monthLabels
		index = func(d Date) int { return int(d.Time.Month()) - 1 }
	default:
		return nil, invalid(ErrInvalidPeriod, fmt.Sprintf("Unknown period %q", p))
	}

	buckets := make([]ChartBucket, len(labels))
	for i, l := range labels {
		buckets[i].Label = l
	}
	for _, f := range flows {
		i := index(f.Date)
		if i < 0 || i >= len(buckets) {
			continue
		}
		buckets[i].Income += f.Amount
		buckets[i].Expense += f.NegAmount
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income - buckets[i].Expense
	}
	return buckets, nil
}

// BuildRollup filters flows to the period and derives its summary and chart.
func BuildRollup(flows []DateFlow, p Period, offset int, today Date) (Rollup, error) {
	start, end, err := PeriodBounds(p, offset, today)
	if err != nil {
		return Rollup{}, err
	}
	in, err := FilterByPeriod(flows, p, offset, today)
	if err != nil {
		return Rollup{}, err
	}
	SortFlowsByDate(in)
	chart, err := BucketForChart(in, p)
	if err != nil {
		return Rollup{}, err
	}
	return Rollup{
		Period:  p,
		Offset:  offset,
		Start:   start,
		End:     end,
		Flows:   in,
		Summary: Summarize(in),
		Chart:   chart,
	}, nil
}

// SortFlowsByDate orders flows by date ascending.
func SortFlowsByDate(flows []DateFlow) {
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Date.IsBefore(flows[j].Date)
	})
}

// SortStaysByCreated orders stays newest first.
func SortStaysByCreated(stays []Stay) {
	sort.SliceStable(stays, func(i, j int) bool {
		return stays[i].CreatedAt.After(stays[j].CreatedAt)
	})
}

// SortExpensesByDate orders expenses newest first, breaking ties by
// creation time.
func SortExpensesByDate(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if !a.Date.IsSame(b.Date) {
			return a.Date.IsAfter(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Today is the current calendar day in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now(), loc)
}
