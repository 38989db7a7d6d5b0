package services

import (
	"time"

	"mindping-core/internal/clock"
	"mindping-core/internal/i18n"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
)

const (
	dayMillis  = 24 * 60 * 60 * 1000
	hourMillis = 60 * 60 * 1000
)

// StatsService derives per-friend ping statistics from the local mirror.
// Day boundaries are computed in the device's local timezone and snapshot
// the clock at call time; a ping arriving afterwards shows up on the next
// call.
type StatsService struct {
	session *session.Session
	pings   *store.PingStore
	stats   *store.StatsStore
	clock   clock.Clock
}

// NewStatsService creates a stats service.
func NewStatsService(sess *session.Session, pingStore *store.PingStore, statsStore *store.StatsStore, clk clock.Clock) *StatsService {
	return &StatsService{session: sess, pings: pingStore, stats: statsStore, clock: clk}
}

// HourlyBucket holds the pings exchanged during one hour of the day.
type HourlyBucket struct {
	Hour     int `json:"hour"`
	Sent     int `json:"sent"`
	Received int `json:"received"`
}

// TodayStats is the hour-by-hour view for the current local day. Bucket
// counts always sum to the scalar totals.
type TodayStats struct {
	Sent     int              `json:"sent"`
	Received int              `json:"received"`
	Hourly   [24]HourlyBucket `json:"hourly"`
}

// Today aggregates pings exchanged with one friend within
// [local midnight, midnight+24h), partitioned by direction relative to the
// current user and bucketed by hour of day.
func (s *StatsService) Today(friendID string) (*TodayStats, error) {
	user, err := s.session.User()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dayStart := startOfDay(now).UnixMilli()
	dayEnd := dayStart + dayMillis

	pings, err := s.pings.Between(user.ID, friendID, dayStart)
	if err != nil {
		return nil, err
	}

	out := &TodayStats{}
	for h := range out.Hourly {
		out.Hourly[h].Hour = h
	}
	for _, p := range pings {
		if p.Timestamp >= dayEnd {
			continue
		}
		hour := int((p.Timestamp - dayStart) / hourMillis)
		if p.SenderID == user.ID {
			out.Sent++
			out.Hourly[hour].Sent++
		} else {
			out.Received++
			out.Hourly[hour].Received++
		}
	}
	return out, nil
}

// DayStats is one day of the week view, with display labels in the viewer's
// locale.
type DayStats struct {
	Day      string `json:"day"`
	Date     string `json:"date"`
	Sent     int    `json:"sent"`
	Received int    `json:"received"`
}

// Week aggregates the trailing 7 calendar days for one friend, oldest first
// with today last. lang selects the day/date label locale; counting is
// locale-independent.
func (s *StatsService) Week(friendID, lang string) ([]DayStats, error) {
	user, err := s.session.User()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	days := make([]DayStats, 0, 7)
	for i := 6; i >= 0; i-- {
		day := startOfDay(now.AddDate(0, 0, -i))
		dayStart := day.UnixMilli()
		dayEnd := dayStart + dayMillis

		pings, err := s.pings.Between(user.ID, friendID, dayStart)
		if err != nil {
			return nil, err
		}

		stats := DayStats{
			Day:  i18n.DayName(lang, day),
			Date: i18n.ShortDate(lang, day),
		}
		for _, p := range pings {
			if p.Timestamp >= dayEnd {
				continue
			}
			if p.SenderID == user.ID {
				stats.Sent++
			} else {
				stats.Received++
			}
		}
		days = append(days, stats)
	}
	return days, nil
}

// Totals returns the all-time sent/received counters from the daily
// records.
func (s *StatsService) Totals() (sent, received int, err error) {
	return s.stats.Totals()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
