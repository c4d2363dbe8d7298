package service

import (
	"context"
	"testing"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientService_CreateNormalizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, err := env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{
		Name:  "  maría   josé  pérez ",
		Phone: "(300) 555-1234",
		Email: "  Maria@Example.COM ",
	})
	require.NoError(t, err)
	assert.Equal(t, "María José Pérez", client.Name)
	assert.Equal(t, "3005551234", client.Phone)
	assert.Equal(t, "maria@example.com", client.EmailValue())
	assert.Equal(t, model.ClientCategoryIndividual, client.Category)
	assert.True(t, client.Active)
	assert.False(t, client.RegisteredAt.IsZero())
}

func TestClientService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateClientRequest
	}{
		{"short name", CreateClientRequest{Name: "A", Phone: "3001234567"}},
		{"letters in phone", CreateClientRequest{Name: "Ana", Phone: "300-ABC-4567"}},
		{"short phone", CreateClientRequest{Name: "Ana", Phone: "12345"}},
		{"discount above 100", CreateClientRequest{Name: "Ana", Phone: "3001234567", SpecialDiscount: dec("100.5")}},
		{"negative discount", CreateClientRequest{Name: "Ana", Phone: "3001234567", SpecialDiscount: dec("-1")}},
		{"unknown category", CreateClientRequest{Name: "Ana", Phone: "3001234567", Category: "vip"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.clients.CreateClient(ctx, SystemActor, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestClientService_Uniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Ana Gomez", Phone: "3001112233", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Other", Phone: "300-111-2233"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "Ana Gomez")

	_, err = env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Other", Phone: "3009998877", Email: "ANA@example.com"})
	require.ErrorIs(t, err, ErrConflict)

	// clients without email never collide on it
	_, err = env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Luis", Phone: "3004445566"})
	require.NoError(t, err)
	second, err := env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Marta", Phone: "3007778899"})
	require.NoError(t, err)

	phone := "3001112233"
	_, err = env.clients.UpdateClient(ctx, SystemActor, second.ID, UpdateClientRequest{Phone: &phone})
	require.ErrorIs(t, err, ErrConflict)

	// a client may keep its own phone
	same := "3001112233"
	name := "ana maría gomez"
	updated, err := env.clients.UpdateClient(ctx, SystemActor, first.ID, UpdateClientRequest{Phone: &same, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana María Gomez", updated.Name)
}

func TestClientService_ListStatisticsAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ana := env.createClient(t, "Ana Gomez", "3001112233")
	_, err := env.clients.CreateClient(ctx, SystemActor, CreateClientRequest{Name: "Colegio Andino", Phone: "6017654321", Category: model.ClientCategoryBusiness})
	require.NoError(t, err)
	luis := env.createClient(t, "Luis Perez", "3004445566")
	require.NoError(t, env.clients.DeactivateClient(ctx, SystemActor, luis.ID))

	clients, total, err := env.clients.ListClients(ctx, repository.ClientFilter{Search: "gomez"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, clients, 1)
	assert.Equal(t, ana.ID, clients[0].ID)

	active := true
	_, total, err = env.clients.ListClients(ctx, repository.ClientFilter{Active: &active})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	summaries, err := env.clients.ListActiveSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	stats, err := env.clients.GetStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Active)
	assert.EqualValues(t, 3, stats.NewLast30Days)
	assert.EqualValues(t, 2, stats.ByCategory[model.ClientCategoryIndividual])
	assert.EqualValues(t, 1, stats.ByCategory[model.ClientCategoryBusiness])

	env.placeOrder(t, ana.ID, "100000", "40000")
	cancelled := env.placeOrder(t, ana.ID, "50000", "0")
	_, err = env.orders.ChangeStatus(ctx, SystemActor, cancelled.ID, ChangeStatusRequest{Status: model.OrderStatusCancelled})
	require.NoError(t, err)

	history, err := env.clients.GetHistory(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, history.OrderCount)
	assert.True(t, history.TotalBilled.Equal(dec("100000")))
	assert.True(t, history.TotalPending.Equal(dec("60000")))
	assert.Equal(t, 1, history.PendingOrders)
}
