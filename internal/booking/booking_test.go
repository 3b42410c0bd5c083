package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/models"
	"vetcare-server/internal/testutil"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

var today = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *gorm.DB, testutil.Fixture) {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	svc := NewService(db, nil, DefaultDailyLimit, time.UTC)
	svc.Now = testutil.FixedClock(today)
	return svc, db, f
}

func ownerPrincipal(f testutil.Fixture) *identity.Principal {
	return &identity.Principal{UserID: f.OwnerUser.ID, RoleData: identity.PetOwnerProfile{PetOwner: &f.Owner}}
}

func vetPrincipal(f testutil.Fixture) *identity.Principal {
	return &identity.Principal{UserID: f.VetUser.ID, RoleData: identity.VeterinarianProfile{Veterinarian: &f.Veterinarian}}
}

func input(f testutil.Fixture, vetID, date, clock string) CreateInput {
	return CreateInput{
		PatientID:      f.Patient.ID,
		VeterinarianID: vetID,
		Date:           date,
		Time:           clock,
		ReasonForVisit: "checkup",
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10:00", "10:00:00", false},
		{"09:30:15", "09:30:15", false},
		{" 14:05 ", "14:05:00", false},
		{"25:00", "", true},
		{"10am", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.Validation(""))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDate("2025-13-01")
	assert.Error(t, err)
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", d)
}

func TestClampsAndFloors(t *testing.T) {
	ptr := func(v int) *int { return &v }
	assert.Equal(t, 30, ClampDuration(nil))
	assert.Equal(t, 15, ClampDuration(ptr(5)))
	assert.Equal(t, 180, ClampDuration(ptr(500)))
	assert.Equal(t, 45, ClampDuration(ptr(45)))

	amount := -20.0
	assert.Equal(t, 0.0, FloorAmount(nil))
	assert.Equal(t, 0.0, FloorAmount(&amount))
	amount = 75.5
	assert.Equal(t, 75.5, FloorAmount(&amount))
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	svc, _, f := newService(t)
	duration, amount := 45, 80.25
	in := input(f, f.Veterinarian.ID, "2025-03-10", "10:00")
	in.EstimatedDuration = &duration
	in.TotalAmount = &amount

	created, err := svc.Create(context.Background(), &f.Owner, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, f.Clinic.ID, created.ClinicID)

	got, err := svc.Get(context.Background(), ownerPrincipal(f), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got.AppointmentDate)
	assert.Equal(t, "10:00:00", got.AppointmentTime)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 80.25, got.TotalAmount)
	assert.Equal(t, 45, got.EstimatedDuration)
	require.NotNil(t, got.Patient)
	assert.Equal(t, "Rex", got.Patient.Name)
}

func TestCreateSlotTaken(t *testing.T) {
	svc, _, f := newService(t)
	in := input(f, f.Veterinarian.ID, "2025-03-10", "10:00")

	_, err := svc.Create(context.Background(), &f.Owner, in)
	require.NoError(t, err)

	in.Time = "10:00:00"
	_, err = svc.Create(context.Background(), &f.Owner, in)
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)
}

func TestActiveSlotKeyIsUnique(t *testing.T) {
	_, db, f := newService(t)
	key := models.SlotKey(f.Veterinarian.ID, "2025-03-10", "10:00:00")
	first := models.Appointment{PetOwnerID: f.Owner.ID, PatientID: f.Patient.ID, VeterinarianID: f.Veterinarian.ID,
		AppointmentDate: "2025-03-10", AppointmentTime: "10:00:00", Status: models.StatusPending, ActiveSlotKey: &key}
	require.NoError(t, db.Create(&first).Error)

	second := first
	second.ID = ""
	err := db.Create(&second).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestCreateDailyLimit(t *testing.T) {
	svc, db, f := newService(t)
	for _, clock := range []string{"09:00", "09:30", "10:00", "10:30", "11:00"} {
		_, err := svc.Create(context.Background(), &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", clock))
		require.NoError(t, err)
	}

	other := testutil.AddVeterinarian(t, db, "other@vetcare.test", f.Clinic.ID)
	_, err := svc.Create(context.Background(), &f.Owner, input(f, other.ID, "2025-03-10", "15:00"))
	require.ErrorIs(t, err, apperr.ErrDailyLimitExceeded)
	e, _ := apperr.As(err)
	assert.Contains(t, e.Message, "another date")

	_, err = svc.Create(context.Background(), &f.Owner, input(f, other.ID, "2025-03-11", "15:00"))
	assert.NoError(t, err)
}

func TestCreateChecksOrder(t *testing.T) {
	svc, db, f := newService(t)

	stranger := testutil.CreateUser(t, db, "stranger@vetcare.test", models.RolePetOwner, true, models.VerificationNotRequired)
	strangerOwner := models.PetOwner{UserID: stranger.ID}
	require.NoError(t, db.Create(&strangerOwner).Error)

	_, err := svc.Create(context.Background(), &strangerOwner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, db.Model(&f.Veterinarian).Update("is_available", false).Error)
	_, err = svc.Create(context.Background(), &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	assert.ErrorIs(t, err, apperr.ErrVeterinarianUnavailable)

	_, err = svc.Create(context.Background(), &f.Owner, input(f, f.Veterinarian.ID, "2025-02-10", "10:00"))
	assert.ErrorIs(t, err, apperr.Validation(""))

	var count int64
	db.Model(&models.Appointment{}).Count(&count)
	assert.Zero(t, count)
}

func TestNotificationFailureKeepsAppointment(t *testing.T) {
	svc, db, f := newService(t)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(x *models.Notification) bool {
		return x.UserID == f.VetUser.ID && x.Type == models.NotificationAppointmentBooked
	})).Return(errors.New("smtp down")).Once()
	svc.Notifier = n

	created, err := svc.Create(context.Background(), &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	require.NoError(t, err)

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	n.AssertExpectations(t)
}

func TestCancelPastAppointment(t *testing.T) {
	svc, db, f := newService(t)
	for _, status := range []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed} {
		past := models.Appointment{PetOwnerID: f.Owner.ID, PatientID: f.Patient.ID, VeterinarianID: f.Veterinarian.ID,
			AppointmentDate: "2025-02-20", AppointmentTime: "10:00:00", Status: status}
		require.NoError(t, db.Create(&past).Error)

		_, err := svc.Cancel(context.Background(), ownerPrincipal(f), past.ID, "changed plans")
		assert.ErrorIs(t, err, apperr.ErrCannotCancel)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _, f := newService(t)
	in := input(f, f.Veterinarian.ID, "2025-03-01", "10:00")
	created, err := svc.Create(context.Background(), &f.Owner, in)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), ownerPrincipal(f), created.ID, "sick")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ActiveSlotKey)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = svc.Cancel(context.Background(), ownerPrincipal(f), created.ID, "again")
	assert.ErrorIs(t, err, apperr.ErrCannotCancel)

	_, err = svc.Create(context.Background(), &f.Owner, in)
	assert.NoError(t, err)
}

func TestTransitions(t *testing.T) {
	svc, _, f := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, ownerPrincipal(f), created.ID, models.StatusConfirmed, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	a, err := svc.Transition(ctx, vetPrincipal(f), created.ID, models.StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, a.Status)

	a, err = svc.Transition(ctx, vetPrincipal(f), created.ID, models.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, a.Status)
	assert.NotNil(t, a.ActiveSlotKey)

	_, err = svc.Cancel(ctx, ownerPrincipal(f), created.ID, "")
	assert.ErrorIs(t, err, apperr.ErrCannotCancel)

	a, err = svc.Transition(ctx, vetPrincipal(f), created.ID, models.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, a.Status)
	assert.Nil(t, a.ActiveSlotKey)

	_, err = svc.Transition(ctx, vetPrincipal(f), created.ID, models.StatusNoShow, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestGetRequiresParty(t *testing.T) {
	svc, db, f := newService(t)
	created, err := svc.Create(context.Background(), &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	require.NoError(t, err)

	other := testutil.AddVeterinarian(t, db, "other@vetcare.test", f.Clinic.ID)
	p := &identity.Principal{RoleData: identity.VeterinarianProfile{Veterinarian: &other}}
	_, err = svc.Get(context.Background(), p, created.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	admin := &identity.Principal{RoleData: identity.AdminProfile{}}
	_, err = svc.Get(context.Background(), admin, created.ID)
	assert.NoError(t, err)
}

func TestCanTransitionNoShow(t *testing.T) {
	for _, from := range models.ActiveStatuses {
		assert.True(t, CanTransition(from, models.StatusNoShow, ActorVeterinarian), from)
		assert.False(t, CanTransition(from, models.StatusNoShow, ActorPetOwner), from)
	}
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusNoShow, ActorVeterinarian))
}

func TestListAndAvailability(t *testing.T) {
	svc, _, f := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, &f.Owner, input(f, f.Veterinarian.ID, "2025-03-10", "10:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, &f.Owner, input(f, f.Veterinarian.ID, "2025-03-11", "11:30"))
	require.NoError(t, err)

	list, total, err := svc.List(ctx, ListFilter{PetOwnerID: f.Owner.ID, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-03-11", list[0].AppointmentDate)

	_, total, err = svc.List(ctx, ListFilter{PetOwnerID: f.Owner.ID, Status: models.StatusConfirmed})
	require.NoError(t, err)
	assert.Zero(t, total)

	slots, err := svc.Availability(ctx, f.Veterinarian.ID, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "16:30", slots[15].Time)
	for _, s := range slots {
		assert.Equal(t, s.Time != "10:00", s.Available, s.Time)
	}
}

func TestAvailabilityFollowsClinicHours(t *testing.T) {
	svc, db, f := newService(t)
	hours, err := models.JSONData(map[string]models.OpeningHours{
		"monday": {Open: "08:00", Close: "10:00"},
		"sunday": {},
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&f.Clinic).Update("opening_hours", hours).Error)

	slots, err := svc.Availability(context.Background(), f.Veterinarian.ID, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, slots, 4)

	slots, err = svc.Availability(context.Background(), f.Veterinarian.ID, "2025-03-09")
	require.NoError(t, err)
	assert.Empty(t, slots)
}
