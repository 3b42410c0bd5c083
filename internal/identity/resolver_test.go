package identity

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/config"
	"vetcare-server/internal/models"
	"vetcare-server/internal/testutil"
	"vetcare-server/internal/utils"
)

const testSecret = "test-secret"

func TestResolveRoles(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	r := NewResolver(db, testSecret, &SessionRevoker{DB: db})

	owner, err := r.Resolve(context.Background(), f.OwnerUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RolePetOwner, owner.Role())
	require.NotNil(t, owner.PetOwner())
	assert.Equal(t, f.Owner.ID, owner.PetOwner().ID)
	assert.Nil(t, owner.Veterinarian())

	vet, err := r.Resolve(context.Background(), f.VetUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVeterinarian, vet.Role())
	assert.Equal(t, f.Veterinarian.ID, vet.Veterinarian().ID)

	admin, err := r.Resolve(context.Background(), f.AdminUser.ID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	label := Match(vet,
		func(*models.PetOwner) string { return "owner" },
		func(v *models.Veterinarian) string { return v.FullName },
		func() string { return "admin" },
	)
	assert.Equal(t, "Dr. Vet", label)
}

func TestResolveMissingProfile(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, testSecret, nil)

	_, err := r.Resolve(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}

func TestResolveVeterinarianWithoutRecord(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "orphan@vetcare.test", models.RoleVeterinarian, true, models.VerificationApproved)
	r := NewResolver(db, testSecret, nil)

	_, err := r.Resolve(context.Background(), user.ID)
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}

func TestResolveInactiveVeterinarianRevokesSessions(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "pending@vetcare.test", models.RoleVeterinarian, false, models.VerificationPending)
	token := models.RefreshToken{UserID: user.ID, Token: "refresh", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&token).Error)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client, mock := redismock.NewClientMock()
	mock.ExpectSet(revokedKey(user.ID), now.Unix(), time.Hour).SetVal("OK")

	r := NewResolver(db, testSecret, &SessionRevoker{DB: db, Redis: client, TTL: time.Hour, Now: testutil.FixedClock(now)})
	_, err := r.Resolve(context.Background(), user.ID)

	require.ErrorIs(t, err, apperr.ErrAccountInactive)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Message, "under review")

	var stored models.RefreshToken
	require.NoError(t, db.First(&stored, "id = ?", token.ID).Error)
	assert.True(t, stored.IsRevoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInactiveReason(t *testing.T) {
	assert.Contains(t, InactiveReason(models.VerificationPending), "under review")
	assert.Contains(t, InactiveReason(models.VerificationRejected), "rejected")
	assert.Contains(t, InactiveReason(models.VerificationNotRequired), "not been activated")
}

func TestAuthenticate(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	cfg := &config.Config{JWTSecret: testSecret, JWTRefreshSecret: "refresh", JWTExpirationMinutes: 15, JWTRefreshExpirationHours: 1}

	access, _, err := utils.GenerateTokens(&f.OwnerUser, cfg)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectGet(revokedKey(f.OwnerUser.ID)).RedisNil()
	r := NewResolver(db, testSecret, &SessionRevoker{DB: db, Redis: client})

	p, err := r.Authenticate(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, f.OwnerUser.ID, p.UserID)

	_, err = r.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = r.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	mock.ExpectGet(revokedKey(f.OwnerUser.ID)).SetVal(strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	_, err = r.Authenticate(context.Background(), access)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRevokedCutoff(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := &SessionRevoker{Redis: client}
	revokedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cutoff := strconv.FormatInt(revokedAt.Unix(), 10)

	mock.ExpectGet(revokedKey("u1")).SetVal(cutoff)
	assert.True(t, s.IsRevoked(context.Background(), "u1", revokedAt.Add(-time.Second)))

	// a login right after re-activation lands in the same second
	mock.ExpectGet(revokedKey("u1")).SetVal(cutoff)
	assert.False(t, s.IsRevoked(context.Background(), "u1", revokedAt))

	mock.ExpectGet(revokedKey("u1")).SetVal(cutoff)
	assert.False(t, s.IsRevoked(context.Background(), "u1", revokedAt.Add(time.Second)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
