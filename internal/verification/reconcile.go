package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// ReconcileReport counts the failed steps a reconcile run retried.
type ReconcileReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Reconcile retries every failed cascade step of reviewed applications. All
// retried steps are idempotent.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	var steps []models.CascadeStep
	if err := s.DB.WithContext(ctx).Where("status = ?", models.StepFailed).Order("created_at").Find(&steps).Error; err != nil {
		return report, apperr.Internal("failed to load failed cascade steps", err)
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++
		detail, err := s.retry(ctx, step)
		s.recordStep(ctx, step.ApplicationID, step.Action, step.Step, detail, err)
		if errors.Is(err, errNoProfile) {
			report.Skipped++
			log.Info().Str("application_id", step.ApplicationID).Str("step", step.Step).Msg("cascade step skipped, profile is gone")
			continue
		}
		if err != nil {
			report.Failed++
			log.Warn().Err(err).Str("application_id", step.ApplicationID).Str("step", step.Step).Msg("cascade step still failing")
			continue
		}
		report.Succeeded++
		log.Info().Str("application_id", step.ApplicationID).Str("step", step.Step).Msg("cascade step reconciled")
	}
	return report, nil
}

func (s *Service) retry(ctx context.Context, step models.CascadeStep) (map[string]string, error) {
	app, err := s.load(ctx, step.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status == models.ApplicationPending {
		return nil, fmt.Errorf("application %s is still pending", app.ID)
	}

	switch step.Step {
	case StepVeterinarian:
		profile, err := s.findProfile(ctx, app.Email)
		if err != nil {
			return nil, err
		}
		return stepDetail(app, profile.ID), s.upsertVeterinarian(ctx, app, profile.ID)
	case StepProfile:
		if app.Status == models.ApplicationApproved {
			profile, err := s.findProfile(ctx, app.Email)
			if err != nil {
				return nil, err
			}
			return stepDetail(app, profile.ID), activateProfile(s.DB.WithContext(ctx), profile.ID)
		}
		profileID, err := s.rejectProfile(ctx, app.Email)
		return stepDetail(app, profileID), err
	case StepNotification:
		var profile models.Profile
		if err := s.DB.WithContext(ctx).Select("id").Where("email = ?", app.Email).Limit(1).Find(&profile).Error; err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		return stepDetail(app, profile.ID), s.notifyApplicant(ctx, app, profile.ID)
	default:
		return nil, fmt.Errorf("step %q cannot be retried", step.Step)
	}
}
