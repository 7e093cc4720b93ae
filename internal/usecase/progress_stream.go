package usecase

import (
	"context"
	"errors"
	"time"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/repository"
	"wildfire-dashboard/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// StreamEvent is one message pushed to a progress subscriber. Progress is nil
// for indeterminate sub-steps.
type StreamEvent struct {
	Progress *int   `json:"progress"`
	Phase    string `json:"phase"`
	Message  string `json:"message,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ProgressStreamer pushes progress events for one session until it ends.
type ProgressStreamer interface {
	// Subscribe calls emit for the current state and then for every change.
	// It returns when the session reaches a terminal state (after the grace
	// delay), goes stale, disappears, or ctx ends. An emit error stops it.
	Subscribe(ctx context.Context, sessionID string, emit func(StreamEvent) error) error
}

var _ ProgressStreamer = (*progressStream)(nil)

type progressStream struct {
	table repository.ProgressTable
	cfg   config.StreamConfig
	now   func() time.Time
	log   *zerolog.Logger
}

func NewProgressStream(table repository.ProgressTable, cfg config.StreamConfig, logger *zerolog.Logger) ProgressStreamer {
	return &progressStream{table: table, cfg: cfg, now: time.Now, log: logger}
}

type emitted struct {
	value          int
	phase, message string
}

func (s *progressStream) Subscribe(ctx context.Context, id string, emit func(StreamEvent) error) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	metrics.StreamOpened()
	reason := "client"
	defer func() { metrics.StreamClosed(reason) }()

	snap := s.table.Ensure(id)
	if err := emit(snapshotEvent(snap)); err != nil {
		return err
	}
	last := emitted{snap.Value, snap.Phase, snap.Message}
	after := snap.LastSeq

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	var grace <-chan time.Time

	for {
		events, changed, err := s.table.Events(id, after)
		if errors.Is(err, domain.ErrNotFound) {
			// another subscriber or the janitor reaped it: the session is over
			reason = "gone"
			return nil
		}
		if err != nil {
			return err
		}
		for _, ev := range events {
			after = ev.Seq
			cur := emitted{ev.Value, ev.Phase, ev.Message}
			if !ev.Indeterminate() && cur == last {
				continue
			}
			if err := emit(eventOf(ev)); err != nil {
				return err
			}
			if !ev.Indeterminate() {
				last = cur
			}
		}

		if grace == nil {
			p, err := s.table.Get(id)
			if errors.Is(err, domain.ErrNotFound) {
				reason = "gone"
				return nil
			}
			switch {
			case p.Status.Terminal():
				reason = string(p.Status)
				grace = time.After(s.cfg.Grace)
			case p.Stale(s.now(), s.cfg.StaleAfter):
				reason = "stale"
				s.log.Debug().Str("session_id", id).Msg("progress stream stale; discarding session")
				s.table.Remove(id)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if grace == nil {
				reason = "client"
			}
			return nil
		case <-changed:
		case <-ticker.C:
		case <-grace:
			s.table.Remove(id)
			return nil
		}
	}
}

func snapshotEvent(p model.Progress) StreamEvent {
	v := p.Value
	return StreamEvent{Progress: &v, Phase: p.Phase, Message: p.Message, Status: string(p.Status)}
}

func eventOf(ev model.ProgressEvent) StreamEvent {
	out := StreamEvent{Phase: ev.Phase, Message: ev.Message, Status: string(ev.Status)}
	if !ev.Indeterminate() {
		v := ev.Value
		out.Progress = &v
	}
	return out
}
