package provenance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (d *recordingDispatcher) Dispatch(e Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

const (
	alice identity.Principal = "alice"
	bob   identity.Principal = "bob"
)

func as(p identity.Principal) context.Context {
	return identity.WithCaller(context.Background(), p)
}

func setup(t *testing.T, opts ...Option) (Service, Repository, *recordingDispatcher) {
	t.Helper()
	repo := NewMemoryRepository()
	dispatcher := &recordingDispatcher{}
	return NewService(repo, dispatcher, opts...), repo, dispatcher
}

func TestCreateProduct(t *testing.T) {
	svc, _, dispatcher := setup(t)

	input := Product{
		Name:           "Organic Coffee",
		Description:    "Single origin beans",
		EthicalScore:   92,
		Materials:      []Material{{Name: "Arabica", Source: "Colombia", Percentage: 100}},
		Certifications: []string{"Fairtrade", "Organic", "Organic"},
	}

	id, err := svc.CreateProduct(as(alice), input)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, alice, got.Manufacturer)
	assert.Equal(t, input.Name, got.Name)
	assert.Equal(t, input.Description, got.Description)
	assert.Equal(t, input.EthicalScore, got.EthicalScore)
	assert.Equal(t, input.Materials, got.Materials)
	assert.Equal(t, input.Certifications, got.Certifications)
	assert.Equal(t, StatusActive, got.Status)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, EventCreated, got.Timeline[0].Event)

	require.Len(t, dispatcher.events, 1)
	created, ok := dispatcher.events[0].(ProductCreated)
	require.True(t, ok)
	assert.Equal(t, id, created.ProductID)
}

func TestCreateProductKeepsSuppliedIDAndTimeline(t *testing.T) {
	svc, _, _ := setup(t)

	seed := DemoProduct()
	seed.ID = "1"
	id, err := svc.CreateProduct(as(alice), seed)
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	got, err := svc.GetProduct(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "In Production", got.Status)
	require.Len(t, got.Timeline, 2)
	assert.Equal(t, "Production Started", got.Timeline[0].Event)
	assert.Equal(t, EventCreated, got.Timeline[1].Event)
}

func TestCreateProductRejections(t *testing.T) {
	svc, _, dispatcher := setup(t)

	t.Run("anonymous caller", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), Product{Name: "x"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := svc.CreateProduct(as(alice), Product{Name: "   "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := svc.CreateProduct(as(alice), Product{ID: "dup", Name: "first"})
		require.NoError(t, err)
		dispatcher.Reset()

		_, err = svc.CreateProduct(as(bob), Product{ID: "dup", Name: "second"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, ErrDuplicateID)
		assert.Empty(t, dispatcher.events)

		got, err := svc.GetProduct(context.Background(), "dup")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
		assert.Equal(t, alice, got.Manufacturer)
	})
}

func TestCreateProductIDsAreUnique(t *testing.T) {
	svc, _, _ := setup(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := svc.AddProduct(as(alice), "item", "")
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s returned twice", id)
		seen[id] = true
	}
	products, err := svc.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 50)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProductsCreationOrder(t *testing.T) {
	svc, _, _ := setup(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateProduct(as(alice), Product{ID: name, Name: name})
		require.NoError(t, err)
	}
	products, err := svc.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, products[i].ID)
	}
}

func TestAddStage(t *testing.T) {
	svc, _, dispatcher := setup(t)
	id, err := svc.AddProduct(as(alice), "Organic Coffee", "")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		dispatcher.Reset()
		stage, err := svc.AddStage(as(alice), AddStageRequest{
			ProductID:      id,
			Location:       "Farm",
			Description:    "Harvested",
			Certifications: []string{"Organic"},
			Handler:        "Juan",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stage.StageID)
		assert.Equal(t, "Juan", stage.Handler)

		history, err := svc.GetProductHistory(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, *stage, history[0])

		p, err := svc.GetProduct(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, p.Timeline, 2)
		assert.Equal(t, "Stage: Harvested", p.Timeline[1].Event)
		assert.Equal(t, "Farm", p.Timeline[1].Location)

		require.Len(t, dispatcher.events, 1)
		_, ok := dispatcher.events[0].(StageAdded)
		assert.True(t, ok)
	})

	t.Run("Fail on missing product", func(t *testing.T) {
		_, err := svc.AddStage(as(alice), AddStageRequest{ProductID: "missing"})
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("Fail on non-owner", func(t *testing.T) {
		_, err := svc.AddStage(as(bob), AddStageRequest{ProductID: id, Location: "Elsewhere"})
		assert.ErrorIs(t, err, ErrUnauthorized)

		history, err := svc.GetProductHistory(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("Fail on empty product id", func(t *testing.T) {
		_, err := svc.AddStage(as(alice), AddStageRequest{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestAddStageTimestampsNeverDecrease(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setup(t, WithClock(func() time.Time { return now }))
	id, err := svc.AddProduct(as(alice), "Coffee", "")
	require.NoError(t, err)

	_, err = svc.AddStage(as(alice), AddStageRequest{ProductID: id, Description: "first"})
	require.NoError(t, err)

	now = now.Add(-time.Hour)
	second, err := svc.AddStage(as(alice), AddStageRequest{ProductID: id, Description: "second"})
	require.NoError(t, err)

	history, err := svc.GetProductHistory(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, history[0].Timestamp, second.Timestamp)
	assert.GreaterOrEqual(t, history[1].Timestamp, history[0].Timestamp)
}

func TestGetProductHistory(t *testing.T) {
	svc, _, _ := setup(t)
	id, err := svc.AddProduct(as(alice), "Coffee", "")
	require.NoError(t, err)

	history, err := svc.GetProductHistory(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = svc.GetProductHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestTransferProduct(t *testing.T) {
	svc, _, dispatcher := setup(t)
	id, err := svc.AddProduct(as(alice), "Coffee", "")
	require.NoError(t, err)

	t.Run("Fail on non-owner", func(t *testing.T) {
		dispatcher.Reset()
		_, err := svc.TransferProduct(as(bob), TransferRequest{ProductID: id, Recipient: bob, Location: "Port"})
		assert.ErrorIs(t, err, ErrUnauthorized)

		p, err := svc.GetProduct(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, alice, p.Manufacturer)
		assert.Len(t, p.Timeline, 1)
		assert.Empty(t, dispatcher.events)
	})

	t.Run("Fail on missing product", func(t *testing.T) {
		_, err := svc.TransferProduct(as(alice), TransferRequest{ProductID: "missing", Recipient: bob})
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("Fail on missing recipient", func(t *testing.T) {
		_, err := svc.TransferProduct(as(alice), TransferRequest{ProductID: id})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		dispatcher.Reset()
		got, err := svc.TransferProduct(as(alice), TransferRequest{ProductID: id, Recipient: bob, Location: "Port", Notes: "export"})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		p, err := svc.GetProduct(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, bob, p.Manufacturer)
		assert.Equal(t, "Transferred to Port", p.Status)
		require.Len(t, p.Timeline, 2)
		assert.Equal(t, EventTransfer, p.Timeline[1].Event)
		assert.Equal(t, "Port", p.Timeline[1].Location)

		require.Len(t, dispatcher.events, 1)
		moved, ok := dispatcher.events[0].(ProductTransferred)
		require.True(t, ok)
		assert.Equal(t, alice, moved.From)
		assert.Equal(t, bob, moved.To)
	})

	t.Run("Previous owner loses rights", func(t *testing.T) {
		_, err := svc.TransferProduct(as(alice), TransferRequest{ProductID: id, Recipient: alice, Location: "Port"})
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = svc.AddStage(as(alice), AddStageRequest{ProductID: id})
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = svc.AddStage(as(bob), AddStageRequest{ProductID: id, Location: "Warehouse"})
		assert.NoError(t, err)
	})
}

func TestGetProductsByOwner(t *testing.T) {
	svc, _, _ := setup(t)
	a1, _ := svc.AddProduct(as(alice), "a1", "")
	_, _ = svc.AddProduct(as(bob), "b1", "")
	a2, _ := svc.AddProduct(as(alice), "a2", "")

	mine, err := svc.GetProductsByOwner(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a1, mine[0].ID)
	assert.Equal(t, a2, mine[1].ID)
}

// The walkthrough from the registry's contract: create, stage, transfer,
// then a repeated transfer by the old owner is refused.
func TestOrganicCoffeeScenario(t *testing.T) {
	svc, _, _ := setup(t)
	canister := NewCanister(svc)

	p1, err := svc.CreateProduct(as(alice), Product{Name: "Organic Coffee", Description: "..."})
	require.NoError(t, err)

	ok, err := canister.AddStage(as(alice), p1, "Farm", "Harvested", []string{"Organic"}, "Juan")
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := canister.GetProductHistory(context.Background(), p1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	req := TransferRequest{ProductID: p1, Recipient: bob, Location: "Port", Notes: "export"}
	res, err := canister.TransferProduct(as(alice), req)
	require.NoError(t, err)
	assert.Equal(t, Result{Ok: p1}, res)

	p, err := svc.GetProduct(context.Background(), p1)
	require.NoError(t, err)
	assert.Equal(t, bob, p.Manufacturer)

	res, err = canister.TransferProduct(as(alice), req)
	require.NoError(t, err)
	assert.Equal(t, Result{Err: "Unauthorized"}, res)
}

func TestConcurrentStagesAreSerialized(t *testing.T) {
	svc, _, _ := setup(t)
	id, err := svc.AddProduct(as(alice), "Coffee", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.AddStage(as(alice), AddStageRequest{ProductID: id, Location: "Farm"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			p, err := svc.GetProduct(context.Background(), id)
			assert.NoError(t, err)
			// stages and stage timeline entries are written together
			assert.Equal(t, len(p.Stages)+1, len(p.Timeline))
		}()
	}
	wg.Wait()

	history, err := svc.GetProductHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

func TestSeed(t *testing.T) {
	svc, repo, _ := setup(t)

	id, err := Seed(context.Background(), repo, svc, alice)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	p, err := svc.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Organic Cotton T-Shirt", p.Name)
	assert.Equal(t, alice, p.Manufacturer)

	again, err := Seed(context.Background(), repo, svc, alice)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "InvalidInput", Kind(ErrDuplicateID))
	assert.Equal(t, "ProductNotFound", Kind(ErrProductNotFound))
	assert.Equal(t, "Unauthorized", Kind(ErrUnauthorized))
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "", Kind(assert.AnError))
}
