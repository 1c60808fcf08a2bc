// Package metadata encodes everything needed to rebuild an order into the
// string map attached to a payment authorization.
package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/internal/logistics"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// Provider limits on metadata.
const (
	MaxValueLength = 500
	MaxKeys        = 50
)

const (
	KeyClientID            = "client_id"
	KeyCheckoutSessionID   = "checkout_session_id"
	KeyStorefrontID        = "storefront_id"
	KeyLineItems           = "line_items"
	KeyLineItemChunks      = "line_items_chunks"
	KeyDeliveryLat         = "delivery_lat"
	KeyDeliveryLng         = "delivery_lng"
	KeyDeliveryAddress     = "delivery_address"
	KeyTimeSlots           = "time_slots"
	KeyWeightKg            = "weight_kg"
	KeyVolumeM3            = "volume_m3"
	KeyBillableWeightKg    = "billable_weight_kg"
	KeyDistanceKm          = "distance_km"
	KeyVehicle             = "vehicle"
	KeyDelayMinutes        = "delay_minutes"
	KeyDelayLabel          = "delay_label"
	KeyProductTotal        = "product_total"
	KeyDeliveryFee         = "delivery_fee"
	KeyVendorParticipation = "vendor_participation"
	KeyPlatformFeeBPS      = "platform_fee_bps"
	KeyTransferGroup       = "transfer_group"
)

// LineItemRef deliberately omits price so confirmation re-reads it from the catalog.
type LineItemRef struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Authorization is the decoded form. Money fields are integer cents.
type Authorization struct {
	ClientID                 uuid.UUID
	CheckoutSessionID        uuid.UUID
	StorefrontID             uuid.UUID
	LineItems                []LineItemRef
	DeliveryLocation         types.GeographyPoint
	DeliveryAddress          string
	TimeSlots                logistics.SlotSet
	WeightKg                 float64
	VolumeM3                 float64
	BillableWeightKg         float64
	DistanceKm               float64
	Vehicle                  enums.Vehicle
	DelayMinutes             int
	DelayLabel               string
	ProductTotalCents        int64
	DeliveryFeeCents         int64
	VendorParticipationCents int64
	PlatformFeeBPS           int64
	TransferGroup            string
}

// Encode flattens a into provider metadata, chunking line items when they overflow one value.
func Encode(a Authorization) (map[string]string, error) {
	items, err := json.Marshal(a.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}

	out := map[string]string{
		KeyClientID:            a.ClientID.String(),
		KeyCheckoutSessionID:   a.CheckoutSessionID.String(),
		KeyStorefrontID:        a.StorefrontID.String(),
		KeyDeliveryLat:         formatFloat(a.DeliveryLocation.Lat),
		KeyDeliveryLng:         formatFloat(a.DeliveryLocation.Lng),
		KeyDeliveryAddress:     truncate(a.DeliveryAddress),
		KeyTimeSlots:           a.TimeSlots.String(),
		KeyWeightKg:            formatFloat(a.WeightKg),
		KeyVolumeM3:            formatFloat(a.VolumeM3),
		KeyBillableWeightKg:    formatFloat(a.BillableWeightKg),
		KeyDistanceKm:          formatFloat(a.DistanceKm),
		KeyVehicle:             string(a.Vehicle),
		KeyDelayMinutes:        strconv.Itoa(a.DelayMinutes),
		KeyDelayLabel:          a.DelayLabel,
		KeyProductTotal:        strconv.FormatInt(a.ProductTotalCents, 10),
		KeyDeliveryFee:         strconv.FormatInt(a.DeliveryFeeCents, 10),
		KeyVendorParticipation: strconv.FormatInt(a.VendorParticipationCents, 10),
		KeyPlatformFeeBPS:      strconv.FormatInt(a.PlatformFeeBPS, 10),
		KeyTransferGroup:       a.TransferGroup,
	}

	if len(items) <= MaxValueLength {
		out[KeyLineItems] = string(items)
	} else {
		chunks := chunk(string(items), MaxValueLength)
		for i, part := range chunks {
			out[chunkKey(i)] = part
		}
		out[KeyLineItemChunks] = strconv.Itoa(len(chunks))
	}

	if len(out) > MaxKeys {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has too many distinct products for one storefront")
	}
	return out, nil
}

var requiredKeys = []string{
	KeyClientID,
	KeyCheckoutSessionID,
	KeyStorefrontID,
	KeyDeliveryLat,
	KeyDeliveryLng,
	KeyTimeSlots,
	KeyProductTotal,
	KeyDeliveryFee,
	KeyTransferGroup,
}

// Decode rebuilds the authorization snapshot. Missing required keys are a validation error.
func Decode(md map[string]string) (*Authorization, error) {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := md[key]; !ok {
			missing = append(missing, key)
		}
	}
	rawItems, ok := lineItemsJSON(md)
	if !ok {
		missing = append(missing, KeyLineItems)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization metadata incomplete").
			WithDetails(map[string]any{"missing": missing})
	}

	p := parser{md: md}
	a := &Authorization{
		ClientID:          p.uuid(KeyClientID),
		CheckoutSessionID: p.uuid(KeyCheckoutSessionID),
		StorefrontID:      p.uuid(KeyStorefrontID),
		DeliveryLocation: types.GeographyPoint{
			Lat: p.float(KeyDeliveryLat),
			Lng: p.float(KeyDeliveryLng),
		},
		DeliveryAddress:          md[KeyDeliveryAddress],
		WeightKg:                 p.optionalFloat(KeyWeightKg),
		VolumeM3:                 p.optionalFloat(KeyVolumeM3),
		BillableWeightKg:         p.optionalFloat(KeyBillableWeightKg),
		DistanceKm:               p.optionalFloat(KeyDistanceKm),
		Vehicle:                  enums.Vehicle(md[KeyVehicle]),
		DelayMinutes:             int(p.optionalInt(KeyDelayMinutes)),
		DelayLabel:               md[KeyDelayLabel],
		ProductTotalCents:        p.int(KeyProductTotal),
		DeliveryFeeCents:         p.int(KeyDeliveryFee),
		VendorParticipationCents: p.optionalInt(KeyVendorParticipation),
		PlatformFeeBPS:           p.optionalInt(KeyPlatformFeeBPS),
		TransferGroup:            md[KeyTransferGroup],
	}
	slots, err := logistics.ParseSlotSet(md[KeyTimeSlots])
	if err != nil {
		p.fail(KeyTimeSlots, err)
	}
	a.TimeSlots = slots

	if err := json.Unmarshal([]byte(rawItems), &a.LineItems); err != nil {
		p.fail(KeyLineItems, err)
	}
	if len(p.errs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization metadata malformed").
			WithDetails(map[string]any{"invalid": p.errs})
	}
	if len(a.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization has no line items")
	}
	return a, nil
}

func lineItemsJSON(md map[string]string) (string, bool) {
	if raw, ok := md[KeyLineItems]; ok {
		return raw, true
	}
	count, err := strconv.Atoi(md[KeyLineItemChunks])
	if err != nil || count <= 0 {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		part, ok := md[chunkKey(i)]
		if !ok {
			return "", false
		}
		b.WriteString(part)
	}
	return b.String(), true
}

func chunkKey(i int) string {
	return KeyLineItems + "_" + strconv.Itoa(i)
}

func chunk(s string, size int) []string {
	var parts []string
	for len(s) > size {
		parts = append(parts, s[:size])
		s = s[size:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// truncate caps s at MaxValueLength characters. Stripe counts characters,
// and a cut inside a multi-byte rune would store an unreadable address.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	runes := 0
	for i := range s {
		if runes == MaxValueLength {
			return s[:i]
		}
		runes++
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	md   map[string]string
	errs map[string]string
}

func (p *parser) fail(key string, err error) {
	if p.errs == nil {
		p.errs = map[string]string{}
	}
	p.errs[key] = err.Error()
}

func (p *parser) uuid(key string) uuid.UUID {
	id, err := uuid.Parse(p.md[key])
	if err != nil {
		p.fail(key, err)
	}
	return id
}

func (p *parser) float(key string) float64 {
	v, err := strconv.ParseFloat(p.md[key], 64)
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func (p *parser) optionalFloat(key string) float64 {
	if _, ok := p.md[key]; !ok {
		return 0
	}
	return p.float(key)
}

func (p *parser) int(key string) int64 {
	v, err := strconv.ParseInt(p.md[key], 10, 64)
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func (p *parser) optionalInt(key string) int64 {
	if _, ok := p.md[key]; !ok {
		return 0
	}
	return p.int(key)
}
