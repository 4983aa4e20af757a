package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/transfer"
	"gorm.io/datatypes"
)

var ErrScheduleNotFound = errors.New("schedule for given account doesn't exist")

type ScheduleService interface {
	GetSchedule(ctx context.Context, ownerID int64) (*models.ScheduleConfig, error)
	UpdateSchedule(ctx context.Context, ownerID int64, update *transfer.ScheduleUpdate) (*models.ScheduleConfig, error)
}

type scheduleService struct {
	sr repository.ScheduleRepository
}

func NewScheduleService(sr repository.ScheduleRepository) ScheduleService {
	return &scheduleService{
		sr: sr,
	}
}

func (s *scheduleService) GetSchedule(ctx context.Context, ownerID int64) (*models.ScheduleConfig, error) {
	schedule, err := s.sr.GetByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		slog.Info(ErrScheduleNotFound.Error())
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *scheduleService) UpdateSchedule(ctx context.Context, ownerID int64, update *transfer.ScheduleUpdate) (*models.ScheduleConfig, error) {
	frequency := strings.ToUpper(strings.TrimSpace(update.Frequency))
	if frequency != models.FrequencyDaily && frequency != models.FrequencyWeekly {
		return nil, fmt.Errorf("invalid frequency %q", update.Frequency)
	}

	days, err := NormalizeDays(update.ActiveDays)
	if err != nil {
		return nil, err
	}
	if frequency == models.FrequencyWeekly && len(days) == 0 {
		return nil, errors.New("weekly schedule needs at least one active day")
	}

	times, err := NormalizeTimes(update.TargetTimes)
	if err != nil {
		return nil, err
	}

	schedule := &models.ScheduleConfig{
		OwnerID:     ownerID,
		IsActive:    update.IsActive,
		Frequency:   frequency,
		ActiveDays:  datatypes.JSONSlice[string](days),
		PostsPerDay: max(update.PostsPerDay, len(times)),
		TargetTimes: datatypes.JSONSlice[string](times),
	}
	if err := s.sr.Upsert(ctx, schedule); err != nil {
		return nil, err
	}

	return s.sr.GetByOwner(ctx, nil, ownerID)
}

// NormalizeDays upper-cases day tokens and drops duplicates.
func NormalizeDays(days []string) ([]string, error) {
	out := make([]string, 0, len(days))
	for _, day := range days {
		token := strings.ToUpper(strings.TrimSpace(day))
		if !slices.Contains(models.DayTokens, token) {
			return nil, fmt.Errorf("invalid day token %q", day)
		}
		if !slices.Contains(out, token) {
			out = append(out, token)
		}
	}
	return out, nil
}

// NormalizeTimes validates "HH:MM" strings, zero-pads them and returns them
// sorted without duplicates.
func NormalizeTimes(times []string) ([]string, error) {
	out := make([]string, 0, len(times))
	for _, raw := range times {
		parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid target time %q", raw)
		}
		hhmm := parsed.Format("15:04")
		if !slices.Contains(out, hhmm) {
			out = append(out, hhmm)
		}
	}
	slices.Sort(out)
	return out, nil
}
