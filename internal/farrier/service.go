package farrier

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/actor"
	"github.com/hovportalen/farrier-booking/internal/apperr"
)

type NewWindow struct {
	DayOfWeek   int `validate:"min=0,max=6"`
	StartMinute int `validate:"min=0,max=1439"`
	EndMinute   int `validate:"min=1,max=1440,gtfield=StartMinute"`
}

type NewArea struct {
	City             string   `validate:"required,min=2,max=100"`
	PostalCodePrefix *string  `validate:"omitempty,numeric,min=1,max=10"`
	Latitude         *float64 `validate:"required_with=Longitude,omitempty,latitude"`
	Longitude        *float64 `validate:"required_with=Latitude,omitempty,longitude"`
	TravelFee        float64  `validate:"min=0"`
}

// Service lets a farrier maintain the weekly windows and work areas that
// availability is derived from. Edits only affect later reads; existing
// bookings are left untouched.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) authorize(ctx context.Context, who actor.Actor, farrierID uuid.UUID) error {
	if !who.IsFarrier(farrierID) && !who.IsAdmin() {
		return apperr.Forbidden("only the farrier may edit this schedule")
	}
	if _, err := s.repo.GetFarrier(ctx, farrierID); err != nil {
		return translate("load farrier", err)
	}
	return nil
}

func (s *Service) ListWindows(ctx context.Context, farrierID uuid.UUID) ([]WeeklyWindow, error) {
	windows, err := s.repo.ListWeeklyWindows(ctx, farrierID)
	if err != nil {
		return nil, translate("list weekly windows", err)
	}
	return windows, nil
}

func (s *Service) AddWindow(ctx context.Context, who actor.Actor, farrierID uuid.UUID, in NewWindow) (*WeeklyWindow, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, who, farrierID); err != nil {
		return nil, err
	}

	w, err := s.repo.InsertWeeklyWindow(ctx, WeeklyWindow{
		FarrierID:   farrierID,
		DayOfWeek:   in.DayOfWeek,
		StartMinute: in.StartMinute,
		EndMinute:   in.EndMinute,
	})
	if err != nil {
		return nil, translate("insert weekly window", err)
	}

	log.Printf("weekly window added farrier_id=%s window=%s", farrierID, w)
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, who actor.Actor, farrierID, windowID uuid.UUID) error {
	if err := s.authorize(ctx, who, farrierID); err != nil {
		return err
	}
	if err := s.repo.DeleteWeeklyWindow(ctx, farrierID, windowID); err != nil {
		return translate("delete weekly window", err)
	}
	log.Printf("weekly window deleted farrier_id=%s window_id=%s", farrierID, windowID)
	return nil
}

func (s *Service) ListAreas(ctx context.Context, farrierID uuid.UUID) ([]WorkArea, error) {
	areas, err := s.repo.ListWorkAreas(ctx, farrierID)
	if err != nil {
		return nil, translate("list work areas", err)
	}
	return areas, nil
}

func (s *Service) AddArea(ctx context.Context, who actor.Actor, farrierID uuid.UUID, in NewArea) (*WorkArea, error) {
	in.City = strings.TrimSpace(in.City)
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, who, farrierID); err != nil {
		return nil, err
	}

	a, err := s.repo.InsertWorkArea(ctx, WorkArea{
		FarrierID:        farrierID,
		City:             in.City,
		PostalCodePrefix: in.PostalCodePrefix,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		TravelFee:        in.TravelFee,
	})
	if err != nil {
		return nil, translate("insert work area", err)
	}

	log.Printf("work area added farrier_id=%s city=%q", farrierID, a.City)
	return a, nil
}

func (s *Service) DeleteArea(ctx context.Context, who actor.Actor, farrierID, areaID uuid.UUID) error {
	if err := s.authorize(ctx, who, farrierID); err != nil {
		return err
	}
	if err := s.repo.DeleteWorkArea(ctx, farrierID, areaID); err != nil {
		return translate("delete work area", err)
	}
	log.Printf("work area deleted farrier_id=%s area_id=%s", farrierID, areaID)
	return nil
}

func (s *Service) SetTravelRadius(ctx context.Context, who actor.Actor, farrierID uuid.UUID, km float64) (*Farrier, error) {
	if km <= 0 || km > 1000 {
		return nil, apperr.Validation("travel_radius_km must be in (0, 1000]")
	}
	if err := s.authorize(ctx, who, farrierID); err != nil {
		return nil, err
	}

	f, err := s.repo.UpdateTravelRadius(ctx, farrierID, km)
	if err != nil {
		return nil, translate("update travel radius", err)
	}
	return f, nil
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return apperr.FromValidator(err)
	}
	return nil
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, ErrFarrierNotFound):
		return apperr.NotFound("farrier not found")
	case errors.Is(err, ErrHorseNotFound):
		return apperr.NotFound("horse not found")
	case errors.Is(err, ErrWindowNotFound):
		return apperr.NotFound("weekly window not found")
	case errors.Is(err, ErrAreaNotFound):
		return apperr.NotFound("work area not found")
	}
	return apperr.Internal(op, err)
}
