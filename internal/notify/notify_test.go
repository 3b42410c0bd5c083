package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vetcare-server/internal/config"
	"vetcare-server/internal/models"
	"vetcare-server/internal/testutil"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestRenderTemplates(t *testing.T) {
	subject, body, err := Render(VetRejected, VetData{FullName: "Dana <Vet>", Remarks: "missing license photo"})
	require.NoError(t, err)
	assert.Contains(t, subject, "application")
	assert.Contains(t, body, "missing license photo")
	assert.Contains(t, body, "Dana &lt;Vet&gt;")

	for _, id := range []TemplateID{VetRegistrationPending, VetApproved} {
		_, _, err := Render(id, VetData{FullName: "Dana"})
		assert.NoError(t, err, id)
	}
	_, body, err = Render(AdminNewVetRegistration, AdminRegistrationData{FullName: "Dana", Email: "dana@vetcare.test"})
	require.NoError(t, err)
	assert.Contains(t, body, "dana@vetcare.test")

	_, _, err = Render("NOPE", nil)
	assert.Error(t, err)
}

func TestDispatchSends(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.To == "vet@vetcare.test" && m.Subject != "" && m.HTML != ""
	})).Return(nil).Once()

	res := NewMailer(sender, "").Dispatch(context.Background(), VetApproved, "vet@vetcare.test", VetData{FullName: "Dana"})
	assert.True(t, res.Sent)
	assert.NoError(t, res.Err)
	sender.AssertExpectations(t)
}

func TestDispatchFailureIsReported(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	res := NewMailer(sender, "").Dispatch(context.Background(), VetApproved, "vet@vetcare.test", VetData{})
	assert.False(t, res.Sent)
	assert.EqualError(t, res.Err, "connection refused")
}

func TestDispatchWithoutTransportSkips(t *testing.T) {
	m := NewMailerFromConfig(config.MailerConfig{})
	res := m.Dispatch(context.Background(), VetApproved, "vet@vetcare.test", VetData{})
	assert.True(t, res.Skipped)
	assert.ErrorIs(t, res.Err, ErrNotConfigured)

	res = m.NotifyAdmin(context.Background(), AdminNewVetRegistration, AdminRegistrationData{})
	assert.True(t, res.Skipped)
}

func TestInAppNotifications(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewInApp(db)
	ctx := context.Background()

	for _, title := range []string{"one", "two"} {
		require.NoError(t, store.Notify(ctx, &models.Notification{UserID: "u1", Type: models.NotificationAppointmentBooked, Title: title}))
	}
	require.NoError(t, store.Notify(ctx, &models.Notification{UserID: "u2", Type: models.NotificationAppointmentBooked, Title: "other"}))

	items, unread, err := store.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, store.MarkRead(ctx, "u1", items[0].ID))
	assert.Error(t, store.MarkRead(ctx, "u2", items[1].ID))

	n, err := store.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, unread, err = store.List(ctx, "u1", true, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
