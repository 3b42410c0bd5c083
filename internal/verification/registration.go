package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
)

// DefaultMaxDocumentBytes bounds each uploaded document.
const DefaultMaxDocumentBytes = 5 << 20

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// Document is an uploaded registration file.
type Document struct {
	Kind     string
	FileName string
	Data     []byte
}

// RegistrationInput is a veterinarian self-registration.
type RegistrationInput struct {
	Email           string
	Password        string
	FullName        string
	Phone           string
	Specialization  string
	LicenseNumber   string
	YearsExperience int
	ConsultationFee float64
	BusinessPermit  *Document
	GovernmentID    *Document
}

// ValidateDocument checks the sniffed content type and size of d and returns
// the detected MIME type.
func ValidateDocument(d *Document, maxBytes int64) (*mimetype.MIME, error) {
	if d == nil || len(d.Data) == 0 {
		return nil, apperr.Validation("both businessPermit and governmentId files are required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	if int64(len(d.Data)) > maxBytes {
		return nil, apperr.Validation(fmt.Sprintf("%s must be %dMB or smaller", d.FileName, maxBytes>>20))
	}
	mt := mimetype.Detect(d.Data)
	if !mimetype.EqualsAny(mt.String(), allowedDocumentTypes...) {
		return nil, apperr.Validation(fmt.Sprintf("%s must be a JPEG, PNG or PDF file, got %s", d.FileName, mt.String()))
	}
	return mt, nil
}

// Register creates the identity, an inactive profile and a pending application
// with its documents. If anything after the identity fails the identity is
// deleted again.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*models.VeterinarianApplication, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.FullName == "" || len(in.Password) < 8 {
		return nil, apperr.Validation("email, fullName and a password of at least 8 characters are required")
	}
	if in.YearsExperience < 0 || in.ConsultationFee < 0 {
		return nil, apperr.Validation("yearsExperience and consultationFee cannot be negative")
	}
	if in.BusinessPermit != nil {
		in.BusinessPermit.Kind = models.DocumentBusinessPermit
	}
	if in.GovernmentID != nil {
		in.GovernmentID.Kind = models.DocumentGovernmentID
	}
	docs := []*Document{in.BusinessPermit, in.GovernmentID}
	types := make([]*mimetype.MIME, len(docs))
	for i, d := range docs {
		mt, err := ValidateDocument(d, s.MaxDocumentBytes)
		if err != nil {
			return nil, err
		}
		types[i] = mt
	}

	db := s.DB.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, apperr.Internal("failed to check email", err)
	}
	if existing > 0 {
		return nil, apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "user with this email already exists")
	}

	user := models.User{Email: in.Email, Role: models.RoleVeterinarian}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "user with this email already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	app := &models.VeterinarianApplication{
		UserID:          user.ID,
		Email:           in.Email,
		FullName:        in.FullName,
		Phone:           in.Phone,
		Specialization:  in.Specialization,
		LicenseNumber:   in.LicenseNumber,
		YearsExperience: in.YearsExperience,
		ConsultationFee: in.ConsultationFee,
		Status:          models.ApplicationPending,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		profile := models.Profile{
			ID:                 user.ID,
			Email:              in.Email,
			FullName:           in.FullName,
			Phone:              in.Phone,
			Role:               models.RoleVeterinarian,
			IsActive:           false,
			VerificationStatus: models.VerificationPending,
			Theme:              models.ThemeLight,
			Locale:             "en",
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		for i, d := range docs {
			doc := models.ApplicationDocument{
				ApplicationID: app.ID,
				Kind:          d.Kind,
				FileName:      d.FileName,
				ContentType:   types[i].String(),
				Size:          int64(len(d.Data)),
				ObjectKey:     fmt.Sprintf("vet-applications/%s/%s-%s%s", user.ID, d.Kind, uuid.NewString(), types[i].Extension()),
				Data:          d.Data,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("store %s: %w", d.Kind, err)
			}
			app.Documents = append(app.Documents, doc)
		}
		return nil
	})
	if err != nil {
		if delErr := s.DB.Delete(&models.User{}, "id = ?", user.ID).Error; delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to remove identity after registration failure")
		}
		return nil, apperr.Internal("failed to register veterinarian", err)
	}

	s.Mailer.Dispatch(ctx, notify.VetRegistrationPending, in.Email, notify.VetData{FullName: in.FullName, Email: in.Email})
	s.Mailer.NotifyAdmin(ctx, notify.AdminNewVetRegistration, notify.AdminRegistrationData{
		FullName:       in.FullName,
		Email:          in.Email,
		Specialization: in.Specialization,
		LicenseNumber:  in.LicenseNumber,
		ApplicationID:  app.ID,
	})
	log.Info().Str("application_id", app.ID).Str("email", in.Email).Msg("veterinarian registration received")
	return app, nil
}
