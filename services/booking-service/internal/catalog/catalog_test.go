package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/storage/memory"
)

type invalidations []string

func (i *invalidations) InvalidateService(_ context.Context, serviceID string) error {
	*i = append(*i, serviceID)
	return nil
}

func TestCreateServiceValidation(t *testing.T) {
	m := catalog.NewManager(memory.New(), nil, nil)
	ctx := context.Background()

	cases := []catalog.CreateServiceRequest{
		{Name: "", DurationMinutes: 30},
		{Name: "Nails", DurationMinutes: 0},
		{Name: "Nails", DurationMinutes: 24 * 60},
		{Name: "Nails", DurationMinutes: 30, Price: decimal.NewFromInt(-1)},
	}
	for _, c := range cases {
		_, err := m.CreateService(ctx, c)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "%+v", c)
	}

	svc, err := m.CreateService(ctx, catalog.CreateServiceRequest{Name: " Nails ", DurationMinutes: 45, Price: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.NotEmpty(t, svc.ID)
	assert.Equal(t, "Nails", svc.Name)
	assert.True(t, svc.Active)

	list, err := m.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, svc.ID, list[0].ID)
}

func TestCreateRule(t *testing.T) {
	inv := &invalidations{}
	m := catalog.NewManager(memory.New(), inv, nil)
	ctx := context.Background()
	svc, err := m.CreateService(ctx, catalog.CreateServiceRequest{Name: "Haircut", DurationMinutes: 30})
	require.NoError(t, err)

	_, err = m.CreateRule(ctx, catalog.CreateRuleRequest{ServiceID: svc.ID, Weekday: 7, Start: 540, End: 600})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = m.CreateRule(ctx, catalog.CreateRuleRequest{ServiceID: svc.ID, Weekday: 1, Start: 600, End: 600})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = m.CreateRule(ctx, catalog.CreateRuleRequest{ServiceID: "missing", Weekday: 1, Start: 540, End: 600})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	rule, err := m.CreateRule(ctx, catalog.CreateRuleRequest{ServiceID: svc.ID, Weekday: 1, Start: 540, End: 600})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, invalidations{svc.ID}, *inv)

	rules, err := m.ListRules(ctx, svc.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = m.ListRules(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
