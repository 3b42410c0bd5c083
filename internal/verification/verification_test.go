package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
	"vetcare-server/internal/testutil"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type failSwitch struct {
	table string
	on    bool
}

// failQueries makes reads from table fail while the returned switch is on.
func failQueries(t *testing.T, db *gorm.DB, table string) *failSwitch {
	t.Helper()
	f := &failSwitch{table: table, on: true}
	name := "test:fail_query_" + table
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if f.on && tx.Statement.Table == f.table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}))
	return f
}

// failUpdates makes updates of table fail while the returned switch is on.
func failUpdates(t *testing.T, db *gorm.DB, table string) *failSwitch {
	t.Helper()
	f := &failSwitch{table: table, on: true}
	name := "test:fail_update_" + table
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if f.on && tx.Statement.Table == f.table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}))
	return f
}

// failCreates makes inserts into table fail while the returned switch is on.
func failCreates(t *testing.T, db *gorm.DB, table string) *failSwitch {
	t.Helper()
	f := &failSwitch{table: table, on: true}
	name := "test:fail_" + table
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if f.on && tx.Statement.Table == f.table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}))
	return f
}

func newService(t *testing.T, sender notify.Sender) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewService(db, notify.NewMailer(sender, "admin@vetcare.test"), notify.NewInApp(db), DefaultMaxDocumentBytes)
	svc.Now = testutil.FixedClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return svc, db
}

func registration(email string) RegistrationInput {
	return RegistrationInput{
		Email:           email,
		Password:        "password123",
		FullName:        "Dana Vet",
		Phone:           "555-0100",
		Specialization:  "Dermatology",
		LicenseNumber:   "LIC-42",
		YearsExperience: 7,
		ConsultationFee: 40,
		BusinessPermit:  &Document{FileName: "permit.pdf", Data: pdfBytes},
		GovernmentID:    &Document{FileName: "id.png", Data: pngBytes},
	}
}

func register(t *testing.T, svc *Service, email string) *models.VeterinarianApplication {
	t.Helper()
	app, err := svc.Register(context.Background(), registration(email))
	require.NoError(t, err)
	return app
}

func TestValidateDocument(t *testing.T) {
	mt, err := ValidateDocument(&Document{FileName: "a.pdf", Data: pdfBytes}, 0)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mt.String())

	_, err = ValidateDocument(&Document{FileName: "a.jpg", Data: []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")}, 0)
	assert.NoError(t, err)

	_, err = ValidateDocument(&Document{FileName: "notes.txt", Data: []byte("just some text")}, 0)
	assert.ErrorIs(t, err, apperr.Validation(""))

	_, err = ValidateDocument(&Document{FileName: "big.png", Data: pngBytes}, 16)
	assert.ErrorIs(t, err, apperr.Validation(""))

	_, err = ValidateDocument(nil, 0)
	assert.ErrorIs(t, err, apperr.Validation(""))
}

func TestRegisterCreatesPendingApplication(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool { return m.To == "dana@vetcare.test" })).Return(nil).Once()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool { return m.To == "admin@vetcare.test" })).Return(nil).Once()
	svc, db := newService(t, sender)

	app := register(t, svc, "Dana@VetCare.test")
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "dana@vetcare.test", app.Email)
	require.Len(t, app.Documents, 2)
	assert.True(t, strings.HasPrefix(app.Documents[0].ObjectKey, "vet-applications/"+app.UserID+"/business_permit-"))
	assert.True(t, strings.HasSuffix(app.Documents[0].ObjectKey, ".pdf"))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", app.UserID).Error)
	assert.False(t, profile.IsActive)
	assert.Equal(t, models.VerificationPending, profile.VerificationStatus)
	sender.AssertExpectations(t)

	got, err := svc.Get(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, got.Documents, 2)
	assert.Empty(t, got.Documents[0].Data)

	doc, err := svc.Document(context.Background(), app.ID, got.Documents[1].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)

	_, err = svc.Register(context.Background(), registration("dana@vetcare.test"))
	assert.ErrorIs(t, err, apperr.New(apperr.KindConflict, apperr.CodeDuplicate, ""))
}

func TestRegisterRemovesIdentityOnFailure(t *testing.T) {
	svc, db := newService(t, nil)
	failCreates(t, db, "veterinarian_applications")

	_, err := svc.Register(context.Background(), registration("dana@vetcare.test"))
	require.Error(t, err)

	var users, profiles int64
	db.Model(&models.User{}).Where("email = ?", "dana@vetcare.test").Count(&users)
	db.Model(&models.Profile{}).Where("email = ?", "dana@vetcare.test").Count(&profiles)
	assert.Zero(t, users)
	assert.Zero(t, profiles)
}

func TestApproveCascade(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	out, err := svc.Approve(context.Background(), app.ID, "admin-1", "welcome")
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Equal(t, models.ApplicationApproved, out.Application.Status)

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", app.UserID).Error)
	assert.True(t, profile.IsActive)
	assert.Equal(t, models.VerificationApproved, profile.VerificationStatus)

	var vet models.Veterinarian
	require.NoError(t, db.First(&vet, "user_id = ?", app.UserID).Error)
	assert.Equal(t, "Dermatology", vet.Specialization)
	assert.True(t, vet.IsAvailable)
	assert.Zero(t, vet.Rating)

	var inApp int64
	db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", app.UserID, models.NotificationApplicationResult).Count(&inApp)
	assert.EqualValues(t, 1, inApp)

	steps, err := svc.Steps(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 4)
	for _, s := range steps {
		assert.Equal(t, models.StepSucceeded, s.Status, s.Step)
		var detail map[string]string
		require.NoError(t, json.Unmarshal(s.Detail, &detail), s.Step)
		assert.Equal(t, map[string]string{"email": "dana@vetcare.test", "profileId": app.UserID}, detail, s.Step)
	}
}

func TestApproveTwice(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	_, err := svc.Approve(context.Background(), app.ID, "admin-1", "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), app.ID, "admin-1", "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)
	_, err = svc.Reject(context.Background(), app.ID, "admin-1", "too late")
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)

	var vets int64
	db.Model(&models.Veterinarian{}).Where("user_id = ?", app.UserID).Count(&vets)
	assert.EqualValues(t, 1, vets)

	require.NoError(t, svc.upsertVeterinarian(context.Background(), app, app.UserID))
	db.Model(&models.Veterinarian{}).Where("user_id = ?", app.UserID).Count(&vets)
	assert.EqualValues(t, 1, vets)
}

func TestApproveRequiresReviewer(t *testing.T) {
	svc, _ := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")
	_, err := svc.Approve(context.Background(), app.ID, " ", "")
	assert.ErrorIs(t, err, apperr.ErrReviewerRequired)
}

func TestApproveWithoutProfileLeavesApplicationPending(t *testing.T) {
	svc, db := newService(t, nil)
	app := models.VeterinarianApplication{Email: "ghost@vetcare.test", FullName: "Ghost", Status: models.ApplicationPending}
	require.NoError(t, db.Create(&app).Error)

	_, err := svc.Approve(context.Background(), app.ID, "admin-1", "")
	require.ErrorIs(t, err, apperr.ErrProfileNotFound)

	var stored models.VeterinarianApplication
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationPending, stored.Status)
	assert.Nil(t, stored.ReviewedBy)

	var vets int64
	db.Model(&models.Veterinarian{}).Count(&vets)
	assert.Zero(t, vets)
}

func TestRejectRequiresRemarks(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	for _, remarks := range []string{"", "   ", "\n\t"} {
		_, err := svc.Reject(context.Background(), app.ID, "admin-1", remarks)
		assert.ErrorIs(t, err, apperr.ErrRemarksRequired)
	}

	var stored models.VeterinarianApplication
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationPending, stored.Status)
	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", app.UserID).Error)
	assert.Equal(t, models.VerificationPending, profile.VerificationStatus)
	steps, _ := svc.Steps(context.Background(), app.ID)
	assert.Empty(t, steps)
}

func TestRejectScenario(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool { return m.To == "admin@vetcare.test" })).Return(nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.To == "dana@vetcare.test" && strings.Contains(m.HTML, "missing license photo")
	})).Return(nil).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, db := newService(t, sender)
	app := register(t, svc, "dana@vetcare.test")

	out, err := svc.Reject(context.Background(), app.ID, "admin-1", "missing license photo")
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Equal(t, models.ApplicationRejected, out.Application.Status)
	assert.Equal(t, "missing license photo", out.Application.Remarks)

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", app.UserID).Error)
	assert.Equal(t, models.VerificationRejected, profile.VerificationStatus)
	assert.False(t, profile.IsActive)

	var vets int64
	db.Model(&models.Veterinarian{}).Count(&vets)
	assert.Zero(t, vets)
	sender.AssertExpectations(t)
}

func TestReconcileResumesFailedSteps(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	svc.Mailer = notify.NewMailer(sender, "")
	fail := failCreates(t, db, "veterinarians")

	out, err := svc.Approve(context.Background(), app.ID, "admin-1", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{StepVeterinarian, StepNotification}, out.Failed)

	var stored models.VeterinarianApplication
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationApproved, stored.Status)

	fail.on = false
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Attempted: 2, Succeeded: 2}, report)

	var vets int64
	db.Model(&models.Veterinarian{}).Where("user_id = ?", app.UserID).Count(&vets)
	assert.EqualValues(t, 1, vets)

	steps, err := svc.Steps(context.Background(), app.ID)
	require.NoError(t, err)
	for _, s := range steps {
		assert.Equal(t, models.StepSucceeded, s.Status, s.Step)
		if s.Step == StepVeterinarian {
			assert.Equal(t, 2, s.Attempts)
		}
	}

	report, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestListApplications(t *testing.T) {
	svc, _ := newService(t, nil)
	first := register(t, svc, "a@vetcare.test")
	register(t, svc, "b@vetcare.test")
	_, err := svc.Reject(context.Background(), first.ID, "admin-1", "incomplete")
	require.NoError(t, err)

	pending, total, err := svc.List(context.Background(), models.ApplicationPending, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "b@vetcare.test", pending[0].Email)

	_, total, err = svc.List(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestRejectWithoutProfileIsSkipped(t *testing.T) {
	svc, db := newService(t, nil)
	app := models.VeterinarianApplication{Email: "ghost@vetcare.test", FullName: "Ghost", Status: models.ApplicationPending}
	require.NoError(t, db.Create(&app).Error)

	out, err := svc.Reject(context.Background(), app.ID, "admin-1", "license expired")
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Equal(t, models.ApplicationRejected, out.Application.Status)

	var step models.CascadeStep
	require.NoError(t, db.First(&step, "application_id = ? AND step = ?", app.ID, StepProfile).Error)
	assert.Equal(t, models.StepSkipped, step.Status)
	assert.NotEmpty(t, step.LastError)

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, report)
}

func TestReconcileSkipsProfileRemovedAfterFailure(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	fail := failUpdates(t, db, "profiles")
	out, err := svc.Reject(context.Background(), app.ID, "admin-1", "license expired")
	require.NoError(t, err)
	assert.Equal(t, []string{StepProfile}, out.Failed)
	fail.on = false

	require.NoError(t, db.Where("id = ?", app.UserID).Delete(&models.Profile{}).Error)

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Attempted: 1, Skipped: 1}, report)

	report, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestReconcileKeepsNotificationFailedWhenProfileLookupFails(t *testing.T) {
	svc, db := newService(t, nil)
	app := register(t, svc, "dana@vetcare.test")

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	svc.Mailer = notify.NewMailer(sender, "")

	out, err := svc.Approve(context.Background(), app.ID, "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{StepNotification}, out.Failed)

	failQueries(t, db, "profiles")
	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Attempted: 1, Failed: 1}, report)

	var step models.CascadeStep
	require.NoError(t, db.First(&step, "application_id = ? AND step = ?", app.ID, StepNotification).Error)
	assert.Equal(t, models.StepFailed, step.Status)
	assert.Contains(t, step.LastError, "injected failure")
	sender.AssertExpectations(t)
}
