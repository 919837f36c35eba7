package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/models"
)

// In-memory fakes exercising the same contracts as the Mongo-backed
// collections, including the conditional-update semantics the engine
// depends on.

type fakeVehicles struct {
	vehicles map[primitive.ObjectID]*models.Vehicle
}

func newFakeVehicles(vehicles ...*models.Vehicle) *fakeVehicles {
	f := &fakeVehicles{vehicles: make(map[primitive.ObjectID]*models.Vehicle)}
	for _, v := range vehicles {
		f.vehicles[v.ID] = v
	}
	return f
}

func (f *fakeVehicles) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	vehicle.ID = primitive.NewObjectID()
	f.vehicles[vehicle.ID] = &vehicle
	return &vehicle, nil
}

func (f *fakeVehicles) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	v, ok := f.vehicles[objectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVehicles) FindVehicles(ctx context.Context, filter bson.M) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, v := range f.vehicles {
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeVehicles) UpdateVehicle(ctx context.Context, id string, update bson.M) (*models.Vehicle, error) {
	return nil, db.ErrNotFound
}

func (f *fakeVehicles) DeleteVehicle(ctx context.Context, id string) error {
	return db.ErrNotFound
}

func (f *fakeVehicles) ClaimVehicle(ctx context.Context, id primitive.ObjectID) error {
	v, ok := f.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if !v.Available {
		return db.ErrUnavailable
	}
	v.Available = false
	return nil
}

func (f *fakeVehicles) ReleaseVehicle(ctx context.Context, id primitive.ObjectID) error {
	v, ok := f.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	v.Available = true
	return nil
}

type fakeBookings struct {
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookings(bookings ...*models.Booking) *fakeBookings {
	f := &fakeBookings{bookings: make(map[primitive.ObjectID]*models.Booking)}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookings) InsertBooking(ctx context.Context, booking models.Booking) (*models.Booking, error) {
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()
	f.bookings[booking.ID] = &booking
	copied := booking
	return &copied, nil
}

func (f *fakeBookings) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	b, ok := f.bookings[objectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookings) FindBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBookings) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	b.Status = status
	copied := *b
	return &copied, nil
}

func (f *fakeBookings) SetPaymentOrder(ctx context.Context, id primitive.ObjectID, orderID string) error {
	b, ok := f.bookings[id]
	if !ok {
		return db.ErrNotFound
	}
	b.OrderID = orderID
	return nil
}

func (f *fakeBookings) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentID, signature string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	b.PaymentStatus = models.PaymentPaid
	b.PaymentID = paymentID
	b.Signature = signature
	copied := *b
	return &copied, nil
}

func (f *fakeBookings) UpdateLocation(ctx context.Context, id string, location models.BookingLocation) (*models.BookingLocation, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	b, ok := f.bookings[objectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	b.CurrentLocation = &location
	return b.CurrentLocation, nil
}

type fakeChats struct {
	chats map[primitive.ObjectID]*models.Chat
}

func newFakeChats(chats ...*models.Chat) *fakeChats {
	f := &fakeChats{chats: make(map[primitive.ObjectID]*models.Chat)}
	for _, c := range chats {
		f.chats[c.ID] = c
	}
	return f
}

func (f *fakeChats) GetOrCreateChat(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Chat, error) {
	for _, c := range f.chats {
		if c.CustomerID == customerID && c.VendorID == vendorID && c.VehicleID == vehicleID {
			copied := *c
			return &copied, nil
		}
	}
	chat := &models.Chat{
		ID:          primitive.NewObjectID(),
		CustomerID:  customerID,
		VendorID:    vendorID,
		VehicleID:   vehicleID,
		Negotiation: models.Negotiation{Status: models.NegotiationNone},
	}
	f.chats[chat.ID] = chat
	copied := *chat
	return &copied, nil
}

func (f *fakeChats) FindChatByID(ctx context.Context, id string) (*models.Chat, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	c, ok := f.chats[objectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeChats) FindChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range f.chats {
		if c.CustomerID == userID || c.VendorID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChats) SetNegotiation(ctx context.Context, chatID, vendorID primitive.ObjectID, price float64) (*models.Chat, error) {
	c, ok := f.chats[chatID]
	if !ok || c.VendorID != vendorID {
		return nil, db.ErrNotFound
	}
	c.Negotiation = models.Negotiation{Price: price, Status: models.NegotiationActive, LastUpdated: time.Now()}
	copied := *c
	return &copied, nil
}

func (f *fakeChats) ConsumeNegotiation(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Negotiation, error) {
	for _, c := range f.chats {
		if c.CustomerID == customerID && c.VendorID == vendorID && c.VehicleID == vehicleID &&
			c.Negotiation.Status == models.NegotiationActive {
			consumed := c.Negotiation
			c.Negotiation.Status = models.NegotiationCompleted
			return &consumed, nil
		}
	}
	return nil, nil
}

func (f *fakeChats) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, last models.LastMessage) error {
	c, ok := f.chats[chatID]
	if !ok {
		return db.ErrNotFound
	}
	c.LastMessage = &last
	return nil
}

// fakeTxn runs the function directly; atomicity is the real runner's job.
type fakeTxn struct{}

func (fakeTxn) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestEngine(vehicles *fakeVehicles, bookings *fakeBookings, chats *fakeChats) *Engine {
	return NewEngine(vehicles, bookings, chats, fakeTxn{})
}

func TestDayCount(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		days    int
		wantErr bool
	}{
		{"two full days", jan1, jan1.AddDate(0, 0, 2), 2, false},
		{"partial day rounds up", jan1, jan1.Add(25 * time.Hour), 2, false},
		{"one hour counts as a day", jan1, jan1.Add(time.Hour), 1, false},
		{"equal dates", jan1, jan1, 0, true},
		{"end before start", jan1.AddDate(0, 0, 2), jan1, 0, true},
		{"zero start", time.Time{}, jan1, 0, true},
		{"zero end", jan1, time.Time{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := DayCount(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDates)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.days, days)
		})
	}
}

func TestEngine_CreateBooking(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan3 := jan1.AddDate(0, 0, 2)

	customerID := primitive.NewObjectID()
	vendorID := primitive.NewObjectID()

	newVehicle := func(available bool) *models.Vehicle {
		return &models.Vehicle{
			ID:         primitive.NewObjectID(),
			Type:       "car",
			VendorID:   vendorID,
			RentPerDay: 500,
			Available:  available,
		}
	}

	t.Run("listed rate without negotiation", func(t *testing.T) {
		vehicle := newVehicle(true)
		engine := newTestEngine(newFakeVehicles(vehicle), newFakeBookings(), newFakeChats())

		created, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})

		assert.NoError(t, err)
		assert.Equal(t, 1000.0, created.TotalCost)
		assert.Equal(t, models.BookingPending, created.Status)
		assert.Equal(t, models.PaymentUnpaid, created.PaymentStatus)
		assert.Equal(t, vendorID, created.VendorID)
	})

	t.Run("negotiated rate overrides listed rate", func(t *testing.T) {
		vehicle := newVehicle(true)
		chats := newFakeChats(&models.Chat{
			ID:          primitive.NewObjectID(),
			CustomerID:  customerID,
			VendorID:    vendorID,
			VehicleID:   vehicle.ID,
			Negotiation: models.Negotiation{Price: 400, Status: models.NegotiationActive},
		})
		engine := newTestEngine(newFakeVehicles(vehicle), newFakeBookings(), chats)

		created, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})

		assert.NoError(t, err)
		assert.Equal(t, 800.0, created.TotalCost)

		// The offer is spent; a second booking pays the listed rate.
		second, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1000.0, second.TotalCost)
	})

	t.Run("availability untouched on create", func(t *testing.T) {
		vehicle := newVehicle(true)
		vehicles := newFakeVehicles(vehicle)
		engine := newTestEngine(vehicles, newFakeBookings(), newFakeChats())

		_, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})

		assert.NoError(t, err)
		assert.True(t, vehicles.vehicles[vehicle.ID].Available)
	})

	t.Run("unavailable vehicle", func(t *testing.T) {
		vehicle := newVehicle(false)
		engine := newTestEngine(newFakeVehicles(vehicle), newFakeBookings(), newFakeChats())

		_, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})

		assert.ErrorIs(t, err, ErrVehicleUnavailable)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		engine := newTestEngine(newFakeVehicles(), newFakeBookings(), newFakeChats())

		_, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: primitive.NewObjectID().Hex(),
			StartDate: jan1,
			EndDate:   jan3,
		})

		assert.ErrorIs(t, err, ErrVehicleNotFound)
	})

	t.Run("invalid dates leave negotiation unconsumed", func(t *testing.T) {
		vehicle := newVehicle(true)
		chat := &models.Chat{
			ID:          primitive.NewObjectID(),
			CustomerID:  customerID,
			VendorID:    vendorID,
			VehicleID:   vehicle.ID,
			Negotiation: models.Negotiation{Price: 400, Status: models.NegotiationActive},
		}
		chats := newFakeChats(chat)
		engine := newTestEngine(newFakeVehicles(vehicle), newFakeBookings(), chats)

		_, err := engine.CreateBooking(context.Background(), customerID, CreateRequest{
			VehicleID: vehicle.ID.Hex(),
			StartDate: jan3,
			EndDate:   jan1,
		})

		assert.ErrorIs(t, err, ErrInvalidDates)
		assert.Equal(t, models.NegotiationActive, chats.chats[chat.ID].Negotiation.Status)
	})
}

func TestEngine_UpdateStatus(t *testing.T) {
	customerID := primitive.NewObjectID()
	vendorID := primitive.NewObjectID()

	vendorClaims := &models.Claims{UserID: vendorID.Hex(), Role: models.RoleVendor}
	customerClaims := &models.Claims{UserID: customerID.Hex(), Role: models.RoleCustomer}
	adminClaims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}

	setup := func(available bool, status models.BookingStatus) (*Engine, *fakeVehicles, *models.Booking) {
		vehicle := &models.Vehicle{
			ID:         primitive.NewObjectID(),
			VendorID:   vendorID,
			RentPerDay: 500,
			Available:  available,
		}
		b := &models.Booking{
			ID:         primitive.NewObjectID(),
			CustomerID: customerID,
			VendorID:   vendorID,
			VehicleID:  vehicle.ID,
			Status:     status,
		}
		vehicles := newFakeVehicles(vehicle)
		engine := newTestEngine(vehicles, newFakeBookings(b), newFakeChats())
		return engine, vehicles, b
	}

	t.Run("vendor approves and claims the vehicle", func(t *testing.T) {
		engine, vehicles, b := setup(true, models.BookingPending)

		updated, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), vendorClaims, models.BookingApproved)

		assert.NoError(t, err)
		assert.Equal(t, models.BookingApproved, updated.Status)
		assert.False(t, vehicles.vehicles[b.VehicleID].Available)
	})

	t.Run("approving a claimed vehicle fails", func(t *testing.T) {
		engine, _, b := setup(false, models.BookingPending)

		_, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), vendorClaims, models.BookingApproved)

		assert.ErrorIs(t, err, ErrVehicleAlreadyRented)
	})

	t.Run("completion releases the vehicle", func(t *testing.T) {
		engine, vehicles, b := setup(false, models.BookingApproved)

		updated, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), vendorClaims, models.BookingCompleted)

		assert.NoError(t, err)
		assert.Equal(t, models.BookingCompleted, updated.Status)
		assert.True(t, vehicles.vehicles[b.VehicleID].Available)
	})

	t.Run("customer cancels own booking", func(t *testing.T) {
		engine, vehicles, b := setup(false, models.BookingApproved)

		updated, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), customerClaims, models.BookingCancelled)

		assert.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, updated.Status)
		assert.True(t, vehicles.vehicles[b.VehicleID].Available)
	})

	t.Run("customer cannot approve", func(t *testing.T) {
		engine, _, b := setup(true, models.BookingPending)

		_, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), customerClaims, models.BookingApproved)

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("foreign vendor cannot touch the booking", func(t *testing.T) {
		engine, _, b := setup(true, models.BookingPending)
		stranger := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleVendor}

		_, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), stranger, models.BookingApproved)

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("admin may reject any booking", func(t *testing.T) {
		engine, vehicles, b := setup(false, models.BookingApproved)

		updated, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), adminClaims, models.BookingRejected)

		assert.NoError(t, err)
		assert.Equal(t, models.BookingRejected, updated.Status)
		assert.True(t, vehicles.vehicles[b.VehicleID].Available)
	})

	t.Run("invalid status", func(t *testing.T) {
		engine, _, b := setup(true, models.BookingPending)

		_, err := engine.UpdateStatus(context.Background(), b.ID.Hex(), vendorClaims, "shipped")

		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown booking", func(t *testing.T) {
		engine, _, _ := setup(true, models.BookingPending)

		_, err := engine.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), vendorClaims, models.BookingApproved)

		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestEngine_UpdateLocation(t *testing.T) {
	b := &models.Booking{
		ID:         primitive.NewObjectID(),
		CustomerID: primitive.NewObjectID(),
		VendorID:   primitive.NewObjectID(),
		VehicleID:  primitive.NewObjectID(),
		Status:     models.BookingApproved,
	}
	engine := newTestEngine(newFakeVehicles(), newFakeBookings(b), newFakeChats())

	lat := 19.0760
	lon := 72.8777

	t.Run("records both coordinates", func(t *testing.T) {
		location, err := engine.UpdateLocation(context.Background(), b.ID.Hex(), &lat, &lon)

		assert.NoError(t, err)
		assert.Equal(t, lat, location.Latitude)
		assert.Equal(t, lon, location.Longitude)
		assert.False(t, location.LastUpdated.IsZero())
	})

	t.Run("missing latitude", func(t *testing.T) {
		_, err := engine.UpdateLocation(context.Background(), b.ID.Hex(), nil, &lon)
		assert.ErrorIs(t, err, ErrMissingCoordinates)
	})

	t.Run("missing longitude", func(t *testing.T) {
		_, err := engine.UpdateLocation(context.Background(), b.ID.Hex(), &lat, nil)
		assert.ErrorIs(t, err, ErrMissingCoordinates)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := engine.UpdateLocation(context.Background(), primitive.NewObjectID().Hex(), &lat, &lon)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}
