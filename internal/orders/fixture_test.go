package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/internal/checkout/metadata"
	"github.com/angelmondragon/localdrop-backend/internal/profiles"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

var (
	paris       = types.GeographyPoint{Lat: 48.8566, Lng: 2.3522}
	bastille    = types.GeographyPoint{Lat: 48.8532, Lng: 2.3692}
	laDefense   = types.GeographyPoint{Lat: 48.8918, Lng: 2.2362}
	tuesdayNoon = time.Date(2026, time.October, 13, 10, 0, 0, 0, time.UTC)
)

type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*pkgstripe.Authorization
	canceled  []string
	captured  []string
	cancelErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*pkgstripe.Authorization{}}
}

func (f *fakeGateway) CreateAuthorization(_ context.Context, req pkgstripe.AuthorizationRequest) (*pkgstripe.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "pi_" + req.Metadata[metadata.KeyStorefrontID]
	auth := &pkgstripe.Authorization{
		ID:            id,
		ClientSecret:  id + "_secret",
		Status:        pkgstripe.StatusRequiresCapture,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		TransferGroup: req.TransferGroup,
		Metadata:      req.Metadata,
	}
	f.intents[id] = auth
	return auth, nil
}

func (f *fakeGateway) GetAuthorization(_ context.Context, id string) (*pkgstripe.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	auth, ok := f.intents[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	copied := *auth
	return &copied, nil
}

func (f *fakeGateway) CancelAuthorization(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, id)
	if auth, ok := f.intents[id]; ok {
		auth.Status = pkgstripe.StatusCanceled
	}
	return nil
}

func (f *fakeGateway) CaptureAuthorization(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, id)
	if auth, ok := f.intents[id]; ok {
		auth.Status = pkgstripe.StatusSucceeded
	}
	return nil
}

type fixture struct {
	conn         *gorm.DB
	gateway      *fakeGateway
	service      *Service
	materializer *Materializer
	checkout     *checkout.Service
	buyerID      uuid.UUID
	courierID    uuid.UUID
	storefrontID uuid.UUID
	productID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	now := func() time.Time { return tuesdayNoon }

	f := &fixture{
		conn:         conn,
		gateway:      newFakeGateway(),
		buyerID:      uuid.New(),
		courierID:    uuid.New(),
		storefrontID: uuid.New(),
	}

	address := "10 rue de la Paix"
	courierPayout := "acct_courier"
	require.NoError(t, conn.Create(&models.Profile{
		ID: f.buyerID, Role: enums.RoleBuyer, DisplayName: "Camille",
		DeliveryAddress: &address, Location: &paris,
	}).Error)
	require.NoError(t, conn.Create(&models.Profile{
		ID: f.courierID, Role: enums.RoleCourier, DisplayName: "Yanis",
		Location: &paris, PayoutAccountID: &courierPayout,
	}).Error)

	vendorPayout := "acct_vendor"
	require.NoError(t, conn.Create(&models.Storefront{
		ID: f.storefrontID, OwnerID: uuid.New(), Name: "Fromagerie", Address: "Rue Cler",
		Location: paris, OwnerPayoutAccountID: &vendorPayout,
	}).Error)
	product := models.Product{ID: uuid.New(), StorefrontID: f.storefrontID, Name: "Comte", PriceCents: 1000, WeightKg: 1}
	require.NoError(t, conn.Create(&product).Error)
	f.productID = product.ID

	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	repo := NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	authorizations := checkout.NewAuthorizationRepository(conn)

	var err error
	f.checkout, err = checkout.NewService(checkout.ServiceParams{
		DB:             client,
		Catalog:        catalogRepo,
		Profiles:       profiles.NewRepository(conn),
		Payments:       f.gateway,
		Authorizations: authorizations,
		Outbox:         emitter,
		Marketplace: config.MarketplaceConfig{
			Timezone:       "Europe/Paris",
			PlatformFeeBPS: 800,
			StaleOrderTTL:  20 * time.Minute,
		},
		Currency: "eur",
		Now:      now,
	})
	require.NoError(t, err)

	f.service, err = NewService(ServiceParams{
		DB:       client,
		Repo:     repo,
		Profiles: profiles.NewRepository(conn),
		Payments: f.gateway,
		Outbox:   emitter,
		Now:      now,
	})
	require.NoError(t, err)

	f.materializer, err = NewMaterializer(MaterializerParams{
		DB:             client,
		Repo:           repo,
		Payments:       f.gateway,
		Catalog:        catalogRepo,
		Authorizations: authorizations,
		Outbox:         emitter,
		Now:            now,
	})
	require.NoError(t, err)
	return f
}

// seedOrder inserts a pending order for the fixture storefront and buyer.
func (f *fixture) seedOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()
	vendorPayout := "acct_vendor"
	order := &models.Order{
		ID:                       uuid.New(),
		OrderNumber:              "LD-" + uuid.NewString()[:8],
		ClientID:                 f.buyerID,
		StorefrontID:             f.storefrontID,
		LineItems:                []types.OrderLineItem{{ProductID: f.productID.String(), Name: "Comte", Quantity: 1, UnitPriceCents: 1000}},
		Currency:                 "eur",
		ProductTotalCents:        1000,
		DeliveryFeeCents:         450,
		TotalDeliveryChargeCents: 450,
		TotalPriceCents:          1450,
		PlatformFeeCents:         80,
		DeliveryAddress:          "10 rue de la Paix",
		DeliveryLocation:         paris,
		StorefrontName:           "Fromagerie",
		StorefrontAddress:        "Rue Cler",
		StorefrontLocation:       paris,
		PaymentAuthorizationID:   "pi_" + uuid.NewString(),
		TransferGroup:            "tg_1_" + f.storefrontID.String(),
		VendorPayoutID:           &vendorPayout,
		CaptureState:             enums.CaptureAuthorized,
		DeliveryState:            enums.DeliveryPending,
		CaptureHistory:           types.StateHistory{{State: "authorized", At: tuesdayNoon, Source: SourceCheckout}},
		DeliveryHistory:          types.StateHistory{{State: "pending", At: tuesdayNoon, Source: SourceCheckout}},
		VerificationCode:         "123456",
		CreatedAt:                tuesdayNoon,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.conn.Create(order).Error)
	return order
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	order, err := NewRepository(f.conn).FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *fixture) events(t *testing.T, orderID uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	rows, err := outbox.NewRepository(f.conn).ListForAggregate(nil, enums.AggregateOrder, orderID.String())
	require.NoError(t, err)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func (f *fixture) vendor() Actor {
	storefrontID := f.storefrontID
	return Actor{UserID: uuid.New(), Role: enums.RoleVendor, StorefrontID: &storefrontID}
}

func (f *fixture) courier() Actor {
	return Actor{UserID: f.courierID, Role: enums.RoleCourier}
}

func (f *fixture) buyer() Actor {
	return Actor{UserID: f.buyerID, Role: enums.RoleBuyer}
}
