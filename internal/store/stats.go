package store

import (
	"encoding/json"
	"fmt"

	"mindping-core/internal/models"
)

// StatsStore persists one sent/received counter record per local calendar
// date, keyed stats_<YYYY-MM-DD>. Increments are read-modify-write.
type StatsStore struct {
	kv KV
}

// NewStatsStore creates a stats store over kv.
func NewStatsStore(kv KV) *StatsStore {
	return &StatsStore{kv: kv}
}

// Get returns the counters for a date, zero-valued if none were recorded.
func (s *StatsStore) Get(date string) (models.DailyStats, error) {
	data, ok, err := s.kv.Get(StatsPrefix + date)
	if err != nil {
		return models.DailyStats{}, fmt.Errorf("failed to get stats for %s: %w", date, err)
	}
	if !ok {
		return models.DailyStats{Date: date}, nil
	}
	var stats models.DailyStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return models.DailyStats{}, fmt.Errorf("failed to decode stats for %s: %w", date, err)
	}
	return stats, nil
}

// IncrementSent bumps the sent counter for a date.
func (s *StatsStore) IncrementSent(date string) error {
	stats, err := s.Get(date)
	if err != nil {
		return err
	}
	stats.Sent++
	return s.save(stats)
}

// IncrementReceived bumps the received counter for a date.
func (s *StatsStore) IncrementReceived(date string) error {
	stats, err := s.Get(date)
	if err != nil {
		return err
	}
	stats.Received++
	return s.save(stats)
}

// Totals sums every daily record ever written.
func (s *StatsStore) Totals() (sent, received int, err error) {
	keys, err := s.kv.Keys(StatsPrefix)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list stats keys: %w", err)
	}
	for _, key := range keys {
		data, ok, err := s.kv.Get(key)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		var stats models.DailyStats
		if err := json.Unmarshal(data, &stats); err != nil {
			return 0, 0, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		sent += stats.Sent
		received += stats.Received
	}
	return sent, received, nil
}

func (s *StatsStore) save(stats models.DailyStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := s.kv.Set(StatsPrefix+stats.Date, data); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}
