package rental

import "time"

// Interval is a durable record of an equipment unit being occupied from a
// start date to an optional end date. A nil End means the unit has not been
// checked back in: the interval occupies every day from Start through the end
// of any query window.
type Interval struct {
	ID          int64      `json:"id"`
	RequestID   int64      `json:"requestId"`
	EquipmentID int64      `json:"equipmentId"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	// PriceAtTime is the daily rate in minor currency units captured at
	// booking time.
	PriceAtTime int64 `json:"priceAtTime"`
	// Worked is the total operated duration, recorded by operators after
	// checkout. It only feeds price computation, never availability.
	Worked    *time.Duration `json:"worked,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Blocks reports whether the interval occupies the given day. windowEnd
// bounds open-ended intervals: with a nil End every day up to windowEnd is
// occupied. An interval with Start == End blocks exactly one day.
func (i *Interval) Blocks(day, windowEnd time.Time) bool {
	end := windowEnd
	if i.End != nil {
		end = *i.End
	}
	return !day.Before(i.Start) && !day.After(end)
}
