package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/servimatch/servimatch/internal/database/testutil"
	"github.com/servimatch/servimatch/internal/models"
	apperrors "github.com/servimatch/servimatch/pkg/errors"
)

func newRequestService(t *testing.T) *RequestService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewRequestService(db, nil)
	require.NoError(t, err)
	return svc
}

func validCreateInput() CreateRequestInput {
	return CreateRequestInput{
		ExplorerID: uuid.NewString(),
		CategoryID: uuid.NewString(),
		Title:      "Fix the kitchen sink",
		Urgency:    models.UrgencyMedium,
		BudgetMin:  40,
		BudgetMax:  90,
	}
}

func TestCreateRequestDerivesExpiryFromUrgency(t *testing.T) {
	svc := newRequestService(t)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	cases := map[string]time.Duration{
		models.UrgencyEmergency: time.Hour,
		models.UrgencyHigh:      4 * time.Hour,
		models.UrgencyMedium:    24 * time.Hour,
		models.UrgencyLow:       48 * time.Hour,
	}

	for urgency, offset := range cases {
		input := validCreateInput()
		input.Urgency = urgency

		request, err := svc.Create(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, models.RequestStatusOpen, request.Status)
		require.True(t, request.ExpiresAt.Equal(now.Add(offset)), "urgency %s", urgency)
	}
}

func TestCreateRequestDefaultsUrgencyToMedium(t *testing.T) {
	svc := newRequestService(t)

	input := validCreateInput()
	input.Urgency = ""

	request, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, models.UrgencyMedium, request.Urgency)
}

func TestCreateRequestValidation(t *testing.T) {
	svc := newRequestService(t)
	lat := 40.4

	mutations := map[string]func(*CreateRequestInput){
		"missing explorer":   func(in *CreateRequestInput) { in.ExplorerID = " " },
		"missing category":   func(in *CreateRequestInput) { in.CategoryID = "" },
		"missing title":      func(in *CreateRequestInput) { in.Title = "  " },
		"unknown urgency":    func(in *CreateRequestInput) { in.Urgency = "yesterday" },
		"inverted budget":    func(in *CreateRequestInput) { in.BudgetMin = 100; in.BudgetMax = 50 },
		"lone latitude":      func(in *CreateRequestInput) { in.Latitude = &lat },
		"lone longitude":     func(in *CreateRequestInput) { in.Longitude = &lat },
	}

	for name, mutate := range mutations {
		input := validCreateInput()
		mutate(&input)

		_, err := svc.Create(context.Background(), input)
		require.Error(t, err, name)
	}
}

func TestAcceptFirstProfessionalWins(t *testing.T) {
	svc := newRequestService(t)

	request, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	winner := uuid.NewString()
	loser := uuid.NewString()

	accepted, err := svc.Accept(context.Background(), request.ID, winner)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedProfessionalID)
	require.Equal(t, winner, *accepted.AcceptedProfessionalID)

	_, err = svc.Accept(context.Background(), request.ID, loser)
	require.ErrorIs(t, err, apperrors.ErrRequestClosed)

	// The losing attempt never overwrote the assignment.
	stored, err := svc.Get(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, winner, *stored.AcceptedProfessionalID)
}

func TestAcceptMissingRequest(t *testing.T) {
	svc := newRequestService(t)

	_, err := svc.Accept(context.Background(), uuid.NewString(), uuid.NewString())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAcceptRequiresProfessional(t *testing.T) {
	svc := newRequestService(t)

	request, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), request.ID, "  ")
	require.Error(t, err)
}
