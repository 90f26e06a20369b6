package orderstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

func record(id string) Record {
	return Record{
		Order: domain.Order{
			OrderID:     id,
			CustomerID:  "CUST-1",
			OrderDate:   time.Now().UTC(),
			Items:       []domain.OrderItem{{ItemID: "ITEM-1", Quantity: 1, Price: 100}},
			TotalAmount: 100,
			Currency:    domain.CurrencyUSD,
			Status:      domain.StatusNew,
		},
		ShippingCost: 2,
	}
}

func TestStore_PutGetExists(t *testing.T) {
	s := New()

	_, ok := s.Get("ORD-1")
	assert.False(t, ok)
	assert.False(t, s.Exists("ORD-1"))

	s.Put("ORD-1", record("ORD-1"))
	assert.True(t, s.Exists("ORD-1"))

	rec, ok := s.Get("ORD-1")
	require.True(t, ok)
	assert.Equal(t, "ORD-1", rec.Order.OrderID)
	assert.Equal(t, 2.0, rec.ShippingCost)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	s.Put("ORD-1", record("ORD-1"))

	rec, _ := s.Get("ORD-1")
	rec.Order.Items[0].Quantity = 50
	rec.Order.Status = domain.StatusCancelled

	again, _ := s.Get("ORD-1")
	assert.Equal(t, 1, again.Order.Items[0].Quantity)
	assert.Equal(t, domain.StatusNew, again.Order.Status)
}

func TestStore_SetStatus(t *testing.T) {
	s := New()
	assert.False(t, s.SetStatus("ORD-1", domain.StatusShipped))

	s.Put("ORD-1", record("ORD-1"))
	assert.True(t, s.SetStatus("ORD-1", domain.StatusShipped))

	rec, _ := s.Get("ORD-1")
	assert.Equal(t, domain.StatusShipped, rec.Order.Status)
}

func TestStore_PendingLastWriteWins(t *testing.T) {
	s := New()

	_, ok := s.TakePending("ORD-1")
	assert.False(t, ok)

	s.SetPending("ORD-1", domain.StatusConfirmed)
	s.SetPending("ORD-1", domain.StatusShipped)
	assert.Equal(t, 1, s.PendingCount())

	status, ok := s.TakePending("ORD-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusShipped, status)

	_, ok = s.TakePending("ORD-1")
	assert.False(t, ok)
	assert.Zero(t, s.PendingCount())
}

func TestStore_Arrivals(t *testing.T) {
	s := New()

	unseen := s.ArrivalsFor("orders.events")
	assert.NotNil(t, unseen)
	assert.Empty(t, unseen)

	s.TrackArrival("orders.events", "ORD-1")
	s.TrackArrival("orders.events", "ORD-1")
	s.TrackArrival("orders.events", "ORD-2")
	s.TrackArrival("other", "ORD-3")

	assert.Equal(t, []string{"ORD-1", "ORD-1", "ORD-2"}, s.ArrivalsFor("orders.events"))
	assert.Equal(t, []string{"ORD-3"}, s.ArrivalsFor("other"))

	ids := s.ArrivalsFor("orders.events")
	ids[0] = "changed"
	assert.Equal(t, "ORD-1", s.ArrivalsFor("orders.events")[0])
}

func TestStore_ConcurrentReadsDuringWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("ORD-%d", i)
			s.TrackArrival("orders.events", id)
			s.Put(id, record(id))
			s.SetStatus(id, domain.StatusConfirmed)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Get(fmt.Sprintf("ORD-%d", i))
				s.ArrivalsFor("orders.events")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.ArrivalsFor("orders.events"), 200)
}
