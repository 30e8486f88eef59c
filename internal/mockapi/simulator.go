package mockapi

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
)

// outcomes is the weighted final status mix of generated calls.
var outcomes = []models.CallStatus{
	models.StatusCompleted, models.StatusCompleted, models.StatusCompleted,
	models.StatusCompleted, models.StatusCompleted,
	models.StatusMissed, models.StatusMissed,
	models.StatusRecovered,
	models.StatusNoAnswer,
	models.StatusIgnored,
}

func randomCaller(r *rand.Rand) string {
	return fmt.Sprintf("+1209555%04d", r.IntN(10000))
}

// Seed fills tenant's log with n calls spread over the business hours of
// the days before and including now.
func (s *Server) Seed(ctx context.Context, tenant string, n, days int, r *rand.Rand) error {
	if days < 1 {
		days = 1
	}
	now := s.Now()
	today := models.Midnight(now)

	for i := range n {
		day := today.Add(-time.Duration(r.IntN(days)) * models.Day)
		at := day.Add(time.Duration(models.BusinessHourStart)*time.Hour +
			time.Duration(r.IntN((models.BusinessHourEnd-models.BusinessHourStart+1)*60))*time.Minute)
		if at.After(now) {
			at = now.Add(-time.Duration(i+1) * time.Minute)
		}

		status := outcomes[r.IntN(len(outcomes))]
		call := &models.CallRecord{
			ID:           uuid.NewString(),
			TenantID:     tenant,
			CallerNumber: randomCaller(r),
			Status:       status,
		}
		if status == models.StatusCompleted || status == models.StatusRecovered {
			d := 30 + r.IntN(300)
			call.Duration = &d
			if r.IntN(2) == 0 {
				u := "https://recordings.fono.test/" + call.ID + ".mp3"
				call.RecordingURL = &u
			}
		}
		if err := s.Store.InsertCall(ctx, call, at); err != nil {
			return err
		}
		if call.Duration != nil {
			if err := s.Store.SetResponseTime(ctx, call.ID, 2+r.Float64()*10); err != nil {
				return err
			}
		}
	}
	logger.Info("seeded call log", "tenant", tenant, "calls", n, "days", days)
	return nil
}

// Simulate places a live call for a random tenant every interval until ctx
// is done. Each call rings, settles to an outcome and sometimes gets a
// recording, publishing every step.
func (s *Server) Simulate(ctx context.Context, tenants []string, interval time.Duration, r *rand.Rand) {
	if len(tenants) == 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tenant := tenants[r.IntN(len(tenants))]
			if err := s.simulateCall(ctx, tenant, interval/3, r); err != nil {
				logger.Warn("simulated call failed", "tenant", tenant, "error", err)
			}
		}
	}
}

func (s *Server) simulateCall(ctx context.Context, tenant string, settle time.Duration, r *rand.Rand) error {
	now := s.Now()
	call := &models.CallRecord{
		ID:           uuid.NewString(),
		TenantID:     tenant,
		CallerNumber: randomCaller(r),
		Status:       models.StatusInProgress,
	}
	if err := s.Store.InsertCall(ctx, call, now); err != nil {
		return err
	}
	s.Hub.PublishStatus(call, now)

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(settle):
	}

	final := outcomes[r.IntN(len(outcomes))]
	duration := 0
	if final == models.StatusCompleted {
		duration = 20 + r.IntN(200)
	}
	now = s.Now()
	if err := s.Store.UpdateCallStatus(ctx, call.ID, final, duration, now); err != nil {
		return err
	}
	call.Status = final
	s.Hub.PublishStatus(call, now)

	if final == models.StatusCompleted && r.IntN(2) == 0 {
		url := "https://recordings.fono.test/" + call.ID + ".mp3"
		if err := s.Store.SetRecording(ctx, call.ID, url, now); err != nil {
			return err
		}
		s.Hub.PublishRecording(tenant, call.ID, url, now)
	}
	return nil
}
