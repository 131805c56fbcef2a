package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
)

type CreateLabInput struct {
	Code string
	Name string
}

type UpdateLabInput struct {
	Code *string
	Name *string
}

// LabService manages the laboratory catalog of the lab service.
type LabService struct {
	labs domain.LaboratoryRepository
	now  func() time.Time
	log  zerolog.Logger
}

func NewLabService(labs domain.LaboratoryRepository, log zerolog.Logger) *LabService {
	return &LabService{labs: labs, now: time.Now, log: log}
}

func (s *LabService) Create(ctx context.Context, in CreateLabInput) (*domain.Laboratory, error) {
	if in.Code == "" {
		return nil, fmt.Errorf("%w: lab code is required", domain.ErrInvalidArgument)
	}
	if taken, err := s.labs.ExistsByCode(ctx, in.Code); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: laboratory code %q already exists", domain.ErrConflict, in.Code)
	}
	lab := &domain.Laboratory{
		ID:        uuid.NewString(),
		Code:      in.Code,
		Name:      in.Name,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, err
	}
	s.log.Info().Str("code", lab.Code).Msg("laboratory created")
	return lab, nil
}

func (s *LabService) Update(ctx context.Context, id string, in UpdateLabInput) (*domain.Laboratory, error) {
	lab, err := s.labs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Code != nil && *in.Code != lab.Code {
		if taken, err := s.labs.ExistsByCode(ctx, *in.Code); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("%w: laboratory code %q already exists", domain.ErrConflict, *in.Code)
		}
		lab.Code = *in.Code
	}
	if in.Name != nil {
		lab.Name = *in.Name
	}
	if err := s.labs.Update(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

func (s *LabService) GetByID(ctx context.Context, id string) (*domain.Laboratory, error) {
	return s.labs.GetByID(ctx, id)
}

func (s *LabService) List(ctx context.Context) ([]domain.Laboratory, error) {
	return s.labs.List(ctx)
}

func (s *LabService) SetActive(ctx context.Context, id string, active bool) (*domain.Laboratory, error) {
	lab, err := s.labs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lab.Active = active
	if err := s.labs.Update(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}
