// Package testutil holds helpers shared by package tests. It is imported only
// from _test.go files.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vetcare-server/internal/models"
)

// NewDB returns a migrated, isolated in-memory sqlite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := models.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Fixture bundles commonly needed rows.
type Fixture struct {
	OwnerUser    models.User
	Owner        models.PetOwner
	Patient      models.Patient
	VetUser      models.User
	Veterinarian models.Veterinarian
	Clinic       models.Clinic
	AdminUser    models.User
}

// Seed creates an admin, a clinic, an available veterinarian, and a pet owner
// with one patient.
func Seed(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()
	var f Fixture

	f.AdminUser = CreateUser(t, db, "admin@vetcare.test", models.RoleAdmin, true, models.VerificationNotRequired)

	f.Clinic = models.Clinic{Name: "Paws Clinic", City: "Springfield", IsActive: true}
	require.NoError(t, db.Create(&f.Clinic).Error)

	f.VetUser = CreateUser(t, db, "vet@vetcare.test", models.RoleVeterinarian, true, models.VerificationApproved)
	f.Veterinarian = models.Veterinarian{
		UserID:          f.VetUser.ID,
		ClinicID:        &f.Clinic.ID,
		FullName:        "Dr. Vet",
		Specialization:  "Surgery",
		ConsultationFee: 50,
		IsAvailable:     true,
	}
	require.NoError(t, db.Create(&f.Veterinarian).Error)

	f.OwnerUser = CreateUser(t, db, "owner@vetcare.test", models.RolePetOwner, true, models.VerificationNotRequired)
	f.Owner = models.PetOwner{UserID: f.OwnerUser.ID}
	require.NoError(t, db.Create(&f.Owner).Error)

	f.Patient = models.Patient{OwnerID: f.Owner.ID, Name: "Rex", Species: "dog"}
	require.NoError(t, db.Create(&f.Patient).Error)
	return f
}

// CreateUser inserts a user and its profile.
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role, active bool, status models.VerificationStatus) models.User {
	t.Helper()
	user := models.User{Email: email, Role: role}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(&user).Error)
	profile := models.Profile{
		ID:                 user.ID,
		Email:              email,
		FullName:           email,
		Role:               role,
		IsActive:           active,
		VerificationStatus: status,
		Theme:              models.ThemeLight,
		Locale:             "en",
	}
	require.NoError(t, db.Create(&profile).Error)
	return user
}

// AddVeterinarian creates another available veterinarian at the given clinic.
func AddVeterinarian(t *testing.T, db *gorm.DB, email, clinicID string) models.Veterinarian {
	t.Helper()
	user := CreateUser(t, db, email, models.RoleVeterinarian, true, models.VerificationApproved)
	vet := models.Veterinarian{UserID: user.ID, ClinicID: &clinicID, FullName: email, IsAvailable: true}
	require.NoError(t, db.Create(&vet).Error)
	return vet
}
