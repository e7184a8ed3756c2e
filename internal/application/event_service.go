package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jinho7/concert-hub/internal/domain/event"
)

// EventService はイベントの管理操作を提供する
type EventService struct {
	eventRepo event.Repository
	locks     *Locks
}

func NewEventService(eventRepo event.Repository, locks *Locks) *EventService {
	return &EventService{eventRepo: eventRepo, locks: locks}
}

type CreateEventInput struct {
	Title         string
	Description   string
	Venue         string
	EventDateTime time.Time
	TotalSeats    int
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	e := event.NewEvent(input.Title, input.Description, input.Venue, input.EventDateTime, input.TotalSeats)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, limit, offset)
}

type UpdateEventInput struct {
	ID            string
	Title         string
	Description   string
	Venue         string
	EventDateTime time.Time
	TotalSeats    int
}

// UpdateEvent はイベント情報を更新する
// 座席数の変更は確定済み座席数を下回らない範囲でのみ許可する
func (s *EventService) UpdateEvent(ctx context.Context, input UpdateEventInput) (*event.Event, error) {
	// 残席カウンターと同じ臨界区間で座席数を触る
	h := s.locks.AcquireEvent(input.ID)
	defer h.Release()

	e, err := s.eventRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	e.Title = input.Title
	e.Description = input.Description
	e.Venue = input.Venue
	e.EventDateTime = input.EventDateTime

	if input.TotalSeats != e.TotalSeats {
		if err := e.Resize(input.TotalSeats); err != nil {
			return nil, err
		}
	}

	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ResizeEvent は総座席数のみを変更する
func (s *EventService) ResizeEvent(ctx context.Context, id string, newTotal int) (*event.Event, error) {
	h := s.locks.AcquireEvent(id)
	defer h.Release()

	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.Resize(newTotal); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	return s.eventRepo.Delete(ctx, id)
}
