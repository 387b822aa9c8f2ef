// Package availability computes the free/busy partition of calendar days for
// an equipment unit. The engine reasons in whole days; hour granularity is
// out of scope.
package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stroyrent/rentbot/internal/domain/equipment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/rental"
	"github.com/stroyrent/rentbot/internal/domain/session"
)

const dayFormat = "2006-01-02"

// Result is the availability partition of a date window.
type Result struct {
	EquipmentID int64
	Free        []time.Time
	Busy        []time.Time
}

// Service is the availability engine.
type Service struct {
	equipment equipment.Repository
	rentals   rental.Repository
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(equipmentRepo equipment.Repository, rentalRepo rental.Repository, logger zerolog.Logger) *Service {
	return &Service{
		equipment: equipmentRepo,
		rentals:   rentalRepo,
		logger:    logger.With().Str("service", "availability").Logger(),
		now:       time.Now,
	}
}

// Compute partitions [rangeStart, rangeEnd] into free and busy days for the
// equipment. Days strictly before today are never offered and appear in
// neither list. A day is busy iff some overlapping interval covers it; an
// interval without an end date covers every remaining day of the window.
func (s *Service) Compute(ctx context.Context, equipmentID int64, rangeStart, rangeEnd time.Time) (*Result, error) {
	eq, err := s.equipment.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load equipment", Err: err}
	}
	if eq == nil {
		return nil, &fault.NotFoundError{Kind: "equipment", Key: fmt.Sprintf("%d", equipmentID)}
	}

	start := Day(rangeStart)
	end := Day(rangeEnd)
	if today := Day(s.now()); start.Before(today) {
		start = today
	}
	if end.Before(start) {
		return &Result{EquipmentID: equipmentID}, nil
	}

	intervals, err := s.rentals.ListOverlapping(ctx, equipmentID, start, end)
	if err != nil {
		return nil, &fault.TransientError{Op: "load rental intervals", Err: err}
	}

	res := &Result{EquipmentID: equipmentID}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		busy := false
		for _, iv := range intervals {
			if iv.Blocks(d, end) {
				busy = true
				break
			}
		}
		if busy {
			res.Busy = append(res.Busy, d)
		} else {
			res.Free = append(res.Free, d)
		}
	}
	return res, nil
}

// MonthFree returns the free days of a month, caching the answer in the
// session's scoped data so paging between months does not repeat storage
// queries. The cache is keyed per (equipment, month) and dropped whenever a
// booking for the equipment is submitted.
func (s *Service) MonthFree(ctx context.Context, sess *session.Session, equipmentID int64, year int, month time.Month) ([]time.Time, error) {
	key := cacheKey(equipmentID, year, month)
	if cached, ok := sess.Data[key]; ok {
		return decodeDays(cached), nil
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	res, err := s.Compute(ctx, equipmentID, first, last)
	if err != nil {
		return nil, err
	}
	sess.Set(key, encodeDays(res.Free))
	return res.Free, nil
}

// InvalidateEquipment drops every cached month for the equipment. Called
// after a submission so the user's own view reflects the new booking.
func InvalidateEquipment(sess *session.Session, equipmentID int64) {
	prefix := fmt.Sprintf("avail:%d:", equipmentID)
	for k := range sess.Data {
		if strings.HasPrefix(k, prefix) {
			delete(sess.Data, k)
		}
	}
}

// Day truncates a timestamp to a UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cacheKey(equipmentID int64, year int, month time.Month) string {
	return fmt.Sprintf("avail:%d:%04d-%02d", equipmentID, year, int(month))
}

func encodeDays(days []time.Time) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, d.Format(dayFormat))
	}
	return strings.Join(parts, ",")
}

func decodeDays(s string) []time.Time {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		d, err := time.Parse(dayFormat, p)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
