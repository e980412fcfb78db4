package farrier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrFarrierNotFound = errors.New("farrier not found")
	ErrHorseNotFound   = errors.New("horse not found")
	ErrWindowNotFound  = errors.New("weekly window not found")
	ErrAreaNotFound    = errors.New("work area not found")
)

// Store is the read side used by availability and admission.
type Store interface {
	GetFarrier(ctx context.Context, id uuid.UUID) (*Farrier, error)
	GetHorse(ctx context.Context, id uuid.UUID) (*Horse, error)
	ListWeeklyWindows(ctx context.Context, farrierID uuid.UUID) ([]WeeklyWindow, error)
	ListWorkAreas(ctx context.Context, farrierID uuid.UUID) ([]WorkArea, error)
}

// Repository adds the farrier's own schedule edits.
type Repository interface {
	Store

	InsertWeeklyWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error)
	DeleteWeeklyWindow(ctx context.Context, farrierID, id uuid.UUID) error

	InsertWorkArea(ctx context.Context, a WorkArea) (*WorkArea, error)
	DeleteWorkArea(ctx context.Context, farrierID, id uuid.UUID) error

	UpdateTravelRadius(ctx context.Context, farrierID uuid.UUID, km float64) (*Farrier, error)
}
