package shared

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerWeek = 7 * minutesPerDay
)

// ContractType represents the futures contract variant a timeframe tracks.
type ContractType int

const (
	Perpetual ContractType = iota
	CurrentQuarter
	NextQuarter
)

// String stringifies the provided contract type using the exchange's naming.
func (c ContractType) String() string {
	switch c {
	case Perpetual:
		return "PERPETUAL"
	case CurrentQuarter:
		return "CURRENT_QUARTER"
	case NextQuarter:
		return "NEXT_QUARTER"
	default:
		return "unknown"
	}
}

// ParseContractType parses a contract type from its string form.
func ParseContractType(str string) (ContractType, error) {
	switch str {
	case "PERPETUAL":
		return Perpetual, nil
	case "CURRENT_QUARTER":
		return CurrentQuarter, nil
	case "NEXT_QUARTER":
		return NextQuarter, nil
	default:
		return 0, fmt.Errorf("unknown contract type: %s", str)
	}
}

// TimeFrame represents the identity of a tracked (symbol, contract type, interval) triple.
type TimeFrame struct {
	ID              uuid.UUID
	Symbol          string
	ContractType    ContractType
	IntervalMinutes int
	CreatedAt       time.Time
}

// NewTimeFrame initializes a timeframe with a fresh identity.
func NewTimeFrame(symbol string, contract ContractType, intervalMinutes int) *TimeFrame {
	return &TimeFrame{
		ID:              uuid.New(),
		Symbol:          symbol,
		ContractType:    contract,
		IntervalMinutes: intervalMinutes,
		CreatedAt:       time.Now().UTC(),
	}
}

// Interval returns the timeframe's interval in its compact display form.
func (t *TimeFrame) Interval() string {
	return MinutesToInterval(t.IntervalMinutes)
}

// Duration returns the timeframe's interval as a duration.
func (t *TimeFrame) Duration() time.Duration {
	return time.Duration(t.IntervalMinutes) * time.Minute
}

// Key returns a compact display form of the timeframe, suitable for logs.
func (t *TimeFrame) Key() string {
	return fmt.Sprintf("%s/%s/%s", t.Symbol, t.ContractType.String(), t.Interval())
}

// MinutesToInterval converts an interval in minutes to its compact unit string.
func MinutesToInterval(minutes int) string {
	switch {
	case minutes < minutesPerHour:
		return fmt.Sprintf("%dm", minutes)
	case minutes%minutesPerWeek == 0:
		return fmt.Sprintf("%dw", minutes/minutesPerWeek)
	case minutes%minutesPerDay == 0:
		return fmt.Sprintf("%dd", minutes/minutesPerDay)
	case minutes%minutesPerHour == 0:
		return fmt.Sprintf("%dh", minutes/minutesPerHour)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// IntervalToMinutes converts a compact interval string to minutes. It reports
// false for malformed forms.
func IntervalToMinutes(interval string) (int, bool) {
	if len(interval) < 2 {
		return 0, false
	}

	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || value <= 0 {
		return 0, false
	}

	switch interval[len(interval)-1] {
	case 'm':
		return value, true
	case 'h':
		return value * minutesPerHour, true
	case 'd':
		return value * minutesPerDay, true
	case 'w':
		return value * minutesPerWeek, true
	default:
		return 0, false
	}
}
