package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/repository"
)

// RecordService stores profiles and contact messages.
//
// Free text typed by visitors (names, messages) is stored as plain text:
// markup is stripped with a bluemonday strict policy on the way in, and the
// templates escape it again on the way out.
type RecordService struct {
	profiles repository.ProfileRepository
	contacts repository.ContactRepository
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

func NewRecordService(
	profiles repository.ProfileRepository,
	contacts repository.ContactRepository,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		profiles: profiles,
		contacts: contacts,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

// PlainText strips all markup from s. StrictPolicy escapes what is left, so
// the result is unescaped again to keep "&" as "&" in storage.
func (s *RecordService) PlainText(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *RecordService) CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	p.FullName = s.PlainText(p.FullName)
	p.Email = normalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)

	if err := s.profiles.CreateProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("service/records: creating profile %s: %w", p.ID, err)
	}
	return &p, nil
}

func (s *RecordService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/records: fetching profile %s: %w", id, err)
	}
	return p, nil
}

// UpdateProfile applies a partial update. An update that ends up empty after
// sanitizing (e.g. a name made only of tags) is rejected.
func (s *RecordService) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	if u.FullName != nil {
		name := s.PlainText(*u.FullName)
		if name == "" {
			return nil, apperror.ValidationFailed("full_name", "Full name is required")
		}
		u.FullName = &name
	}
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		u.Phone = &phone
	}

	p, err := s.profiles.UpdateProfile(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("service/records: updating profile %s: %w", id, err)
	}
	s.logger.Info("profile updated", slog.String("userID", id))
	return p, nil
}

func (s *RecordService) SubmitContact(ctx context.Context, c model.ContactSubmission) (*model.ContactSubmission, error) {
	c.Name = s.PlainText(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Message = s.PlainText(c.Message)
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return nil, apperror.ValidationFailed("", "Please fill in all fields")
	}

	if err := s.contacts.CreateContact(ctx, &c); err != nil {
		return nil, fmt.Errorf("service/records: storing contact query: %w", err)
	}
	s.logger.Info("contact query received", slog.String("id", c.ID))
	return &c, nil
}
