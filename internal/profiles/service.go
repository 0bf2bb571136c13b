package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/shared/telemetry"
)

// Service contains business logic for profiles.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// Create validates and stores a new profile.
func (s *Service) Create(ctx context.Context, label string, fields []fieldservice.Field) (Profile, error) {
	label, fields, err := normalizeInput(label, fields)
	if err != nil {
		return Profile{}, err
	}
	now := s.now()
	p := Profile{
		ID:        uuid.NewString(),
		Label:     label,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	telemetry.Info("profile.created", map[string]any{
		"profile_id":  p.ID,
		"label":       p.Label,
		"field_count": len(p.Fields),
	})
	return p, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns all profiles ordered by label.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.Repo.List(ctx)
}

// Update replaces the label and fields of an existing profile.
func (s *Service) Update(ctx context.Context, id string, label string, fields []fieldservice.Field) (Profile, error) {
	label, fields, err := normalizeInput(label, fields)
	if err != nil {
		return Profile{}, err
	}
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	existing.Label = label
	existing.Fields = fields
	existing.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, existing); err != nil {
		return Profile{}, err
	}
	telemetry.Info("profile.updated", map[string]any{
		"profile_id":  existing.ID,
		"label":       existing.Label,
		"field_count": len(existing.Fields),
	})
	return existing, nil
}

// Delete removes a profile. Documents extracted with it are unaffected.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("profile.deleted", map[string]any{"profile_id": id})
	return nil
}

func normalizeInput(label string, fields []fieldservice.Field) (string, []fieldservice.Field, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", nil, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	out := make([]fieldservice.Field, 0, len(fields))
	for i, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return "", nil, fmt.Errorf("%w: field %d key is required", ErrInvalidInput, i)
		}
		out = append(out, fieldservice.Field{Key: key, Description: strings.TrimSpace(f.Description)})
	}
	return label, out, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
