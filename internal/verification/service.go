// Package verification implements veterinarian self-registration and the
// admin review of veterinarian applications.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"

	StepApplication  = "application_update"
	StepProfile      = "profile_update"
	StepVeterinarian = "veterinarian_upsert"
	StepNotification = "notification"
)

// errNoProfile marks a rejection whose applicant profile is gone. The profile
// step is then skipped instead of failed.
var errNoProfile = errors.New("applicant profile no longer exists")

// InAppNotifier records in-app notifications.
type InAppNotifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Service reviews veterinarian applications. Approve and Reject run as a
// sequence of recorded steps; steps after the status change are best-effort
// and can be resumed by Reconcile.
type Service struct {
	DB               *gorm.DB
	Mailer           *notify.Mailer
	InApp            InAppNotifier
	MaxDocumentBytes int64
	Now              func() time.Time
}

// NewService creates a verification Service.
func NewService(db *gorm.DB, mailer *notify.Mailer, inApp InAppNotifier, maxDocumentBytes int64) *Service {
	return &Service{DB: db, Mailer: mailer, InApp: inApp, MaxDocumentBytes: maxDocumentBytes, Now: time.Now}
}

// Outcome summarizes a review. Failed lists the best-effort steps that did
// not complete.
type Outcome struct {
	Application *models.VeterinarianApplication `json:"application"`
	Failed      []string                        `json:"failedSteps,omitempty"`
}

func (s *Service) load(ctx context.Context, id string) (*models.VeterinarianApplication, error) {
	var app models.VeterinarianApplication
	if err := s.DB.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.Internal("failed to load application", err)
	}
	return &app, nil
}

func (s *Service) findProfile(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).First(&profile, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, apperr.CodeProfileNotFound,
				fmt.Sprintf("no profile exists for %s", email))
		}
		return nil, apperr.Internal("failed to load profile", err)
	}
	return &profile, nil
}

// markReviewed moves the application out of pending. Zero affected rows means
// another reviewer got there first.
func markReviewed(tx *gorm.DB, app *models.VeterinarianApplication, status models.ApplicationStatus, reviewerID, remarks string, at time.Time) error {
	res := tx.Model(&models.VeterinarianApplication{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
			"remarks":     remarks,
		})
	if res.Error != nil {
		return apperr.Internal("failed to update application", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrAlreadyReviewed
	}
	app.Status = status
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &at
	app.Remarks = remarks
	return nil
}

// Approve approves a pending application, activates the applicant's profile
// and creates their veterinarian record. The profile is resolved before
// anything is written, so a missing profile leaves the application pending.
func (s *Service) Approve(ctx context.Context, applicationID, reviewerID, remarks string) (*Outcome, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, apperr.ErrReviewerRequired
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, apperr.ErrAlreadyReviewed
	}
	profile, err := s.findProfile(ctx, app.Email)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markReviewed(tx, app, models.ApplicationApproved, reviewerID, strings.TrimSpace(remarks), s.now()); err != nil {
			return err
		}
		return activateProfile(tx, profile.ID)
	})
	if err != nil {
		return nil, err
	}
	detail := stepDetail(app, profile.ID)
	s.recordStep(ctx, app.ID, ActionApprove, StepApplication, detail, nil)
	s.recordStep(ctx, app.ID, ActionApprove, StepProfile, detail, nil)

	out := &Outcome{Application: app}
	err = s.upsertVeterinarian(ctx, app, profile.ID)
	if err != nil {
		log.Error().Err(err).Str("application_id", app.ID).Msg("failed to create veterinarian record")
		out.Failed = append(out.Failed, StepVeterinarian)
	}
	s.recordStep(ctx, app.ID, ActionApprove, StepVeterinarian, detail, err)

	err = s.notifyApplicant(ctx, app, profile.ID)
	if err != nil {
		out.Failed = append(out.Failed, StepNotification)
	}
	s.recordStep(ctx, app.ID, ActionApprove, StepNotification, detail, err)

	log.Info().Str("application_id", app.ID).Str("reviewer_id", reviewerID).Strs("failed_steps", out.Failed).Msg("veterinarian application approved")
	return out, nil
}

// Reject rejects a pending application. Remarks are required.
func (s *Service) Reject(ctx context.Context, applicationID, reviewerID, remarks string) (*Outcome, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return nil, apperr.ErrRemarksRequired
	}
	if strings.TrimSpace(reviewerID) == "" {
		return nil, apperr.ErrReviewerRequired
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, apperr.ErrAlreadyReviewed
	}
	if err := markReviewed(s.DB.WithContext(ctx), app, models.ApplicationRejected, reviewerID, remarks, s.now()); err != nil {
		return nil, err
	}
	s.recordStep(ctx, app.ID, ActionReject, StepApplication, stepDetail(app, ""), nil)

	out := &Outcome{Application: app}
	profileID, err := s.rejectProfile(ctx, app.Email)
	switch {
	case errors.Is(err, errNoProfile):
		log.Warn().Str("application_id", app.ID).Msg("no profile to mark rejected")
	case err != nil:
		log.Warn().Err(err).Str("application_id", app.ID).Msg("failed to mark profile rejected")
		out.Failed = append(out.Failed, StepProfile)
	}
	detail := stepDetail(app, profileID)
	s.recordStep(ctx, app.ID, ActionReject, StepProfile, detail, err)

	err = s.notifyApplicant(ctx, app, profileID)
	if err != nil {
		out.Failed = append(out.Failed, StepNotification)
	}
	s.recordStep(ctx, app.ID, ActionReject, StepNotification, detail, err)

	log.Info().Str("application_id", app.ID).Str("reviewer_id", reviewerID).Strs("failed_steps", out.Failed).Msg("veterinarian application rejected")
	return out, nil
}

func activateProfile(tx *gorm.DB, profileID string) error {
	err := tx.Model(&models.Profile{}).Where("id = ?", profileID).
		Updates(map[string]interface{}{"is_active": true, "verification_status": models.VerificationApproved}).Error
	if err != nil {
		return apperr.Internal("failed to activate profile", err)
	}
	return nil
}

func (s *Service) rejectProfile(ctx context.Context, email string) (string, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Select("id").First(&profile, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errNoProfile
		}
		return "", err
	}
	err := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profile.ID).
		Updates(map[string]interface{}{"is_active": false, "verification_status": models.VerificationRejected}).Error
	return profile.ID, err
}

// upsertVeterinarian creates the veterinarian record keyed by user id, or
// refreshes the copied fields when it already exists.
func (s *Service) upsertVeterinarian(ctx context.Context, app *models.VeterinarianApplication, userID string) error {
	vet := models.Veterinarian{
		UserID:          userID,
		FullName:        app.FullName,
		Specialization:  app.Specialization,
		LicenseNumber:   app.LicenseNumber,
		YearsExperience: app.YearsExperience,
		ConsultationFee: app.ConsultationFee,
		IsAvailable:     true,
		Rating:          0,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "specialization", "license_number", "years_experience", "consultation_fee", "updated_at",
		}),
	}).Create(&vet).Error
}

// notifyApplicant emails the review result and leaves an in-app note. Only a
// failed email counts as a failure; an unconfigured transport does not.
func (s *Service) notifyApplicant(ctx context.Context, app *models.VeterinarianApplication, userID string) error {
	id, title := notify.VetApproved, "Application approved"
	if app.Status == models.ApplicationRejected {
		id, title = notify.VetRejected, "Application rejected"
	}
	if s.InApp != nil && userID != "" {
		data, _ := models.JSONData(map[string]string{"applicationId": app.ID, "status": string(app.Status)})
		n := &models.Notification{UserID: userID, Type: models.NotificationApplicationResult, Title: title, Message: app.Remarks, Data: data}
		if err := s.InApp.Notify(ctx, n); err != nil {
			log.Warn().Err(err).Str("application_id", app.ID).Msg("failed to create in-app notification")
		}
	}
	res := s.Mailer.Dispatch(ctx, id, app.Email, notify.VetData{FullName: app.FullName, Email: app.Email, Remarks: app.Remarks})
	if res.Err != nil && !errors.Is(res.Err, notify.ErrNotConfigured) {
		return res.Err
	}
	return nil
}

func stepDetail(app *models.VeterinarianApplication, profileID string) map[string]string {
	detail := map[string]string{"email": app.Email}
	if profileID != "" {
		detail["profileId"] = profileID
	}
	return detail
}

// recordStep upserts the outcome of one cascade step. A nil detail keeps the
// stored one. Recording is itself best-effort.
func (s *Service) recordStep(ctx context.Context, applicationID, action, step string, detail map[string]string, stepErr error) {
	db := s.DB.WithContext(ctx)
	var row models.CascadeStep
	err := db.Where("application_id = ? AND step = ?", applicationID, step).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Str("application_id", applicationID).Str("step", step).Msg("failed to load cascade step")
		return
	}
	row.ApplicationID = applicationID
	row.Action = action
	row.Step = step
	row.Attempts++
	row.Status = models.StepSucceeded
	row.LastError = ""
	switch {
	case errors.Is(stepErr, errNoProfile):
		row.Status = models.StepSkipped
		row.LastError = stepErr.Error()
	case stepErr != nil:
		row.Status = models.StepFailed
		row.LastError = stepErr.Error()
	}
	if detail != nil {
		if data, err := models.JSONData(detail); err == nil {
			row.Detail = data
		}
	}
	if err := db.Save(&row).Error; err != nil {
		log.Error().Err(err).Str("application_id", applicationID).Str("step", step).Msg("failed to record cascade step")
	}
}

// Steps returns the recorded cascade steps of an application.
func (s *Service) Steps(ctx context.Context, applicationID string) ([]models.CascadeStep, error) {
	var steps []models.CascadeStep
	if err := s.DB.WithContext(ctx).Where("application_id = ?", applicationID).Order("created_at").Find(&steps).Error; err != nil {
		return nil, apperr.Internal("failed to load cascade steps", err)
	}
	return steps, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
