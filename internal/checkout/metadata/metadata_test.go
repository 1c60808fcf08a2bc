package metadata

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/internal/logistics"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

func sampleAuthorization(items int) Authorization {
	refs := make([]LineItemRef, items)
	for i := range refs {
		refs[i] = LineItemRef{ProductID: uuid.New(), Quantity: i + 1}
	}
	return Authorization{
		ClientID:                 uuid.New(),
		CheckoutSessionID:        uuid.New(),
		StorefrontID:             uuid.New(),
		LineItems:                refs,
		DeliveryLocation:         types.GeographyPoint{Lat: 48.856614, Lng: 2.3522219},
		DeliveryAddress:          "10 rue de la Paix",
		TimeSlots:                logistics.SlotSet{logistics.SlotPeak, logistics.SlotWeekend},
		WeightKg:                 2.5,
		VolumeM3:                 0.003,
		BillableWeightKg:         2.5,
		DistanceKm:               3.1415926,
		Vehicle:                  enums.VehicleScooter,
		DelayMinutes:             22,
		DelayLabel:               "22 min",
		ProductTotalCents:        2599,
		DeliveryFeeCents:         850,
		VendorParticipationCents: 200,
		PlatformFeeBPS:           800,
		TransferGroup:            "tg_1700000000000_abc",
	}
}

func TestEncodeDecodeKeepsOrderInputs(t *testing.T) {
	in := sampleAuthorization(2)
	md, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for key, value := range md {
		if len(value) > MaxValueLength {
			t.Fatalf("value for %s exceeds provider limit", key)
		}
	}
	if strings.Contains(md[KeyLineItems], "price") {
		t.Fatalf("line items must not carry prices: %s", md[KeyLineItems])
	}

	out, err := Decode(md)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ClientID != in.ClientID || out.StorefrontID != in.StorefrontID || out.CheckoutSessionID != in.CheckoutSessionID {
		t.Fatalf("identity mismatch: %+v", out)
	}
	if out.DeliveryLocation != in.DeliveryLocation {
		t.Fatalf("location must round-trip exactly: %+v vs %+v", out.DeliveryLocation, in.DeliveryLocation)
	}
	if out.TimeSlots.String() != "peak,weekend" {
		t.Fatalf("unexpected slots %q", out.TimeSlots.String())
	}
	if len(out.LineItems) != 2 || out.LineItems[1] != in.LineItems[1] {
		t.Fatalf("line items mismatch: %+v", out.LineItems)
	}
	if out.ProductTotalCents != 2599 || out.DeliveryFeeCents != 850 || out.VendorParticipationCents != 200 {
		t.Fatalf("amount mismatch: %+v", out)
	}
	if out.DistanceKm != in.DistanceKm || out.Vehicle != enums.VehicleScooter || out.PlatformFeeBPS != 800 {
		t.Fatalf("logistics mismatch: %+v", out)
	}
}

func TestEncodeChunksLargeCarts(t *testing.T) {
	in := sampleAuthorization(12)
	md, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := md[KeyLineItems]; ok {
		t.Fatal("expected line items to be chunked")
	}
	if md[KeyLineItemChunks] == "" || md[KeyLineItems+"_0"] == "" {
		t.Fatalf("missing chunk keys: %v", md)
	}
	for key, value := range md {
		if len(value) > MaxValueLength {
			t.Fatalf("value for %s exceeds provider limit", key)
		}
	}

	out, err := Decode(md)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.LineItems) != 12 || out.LineItems[11] != in.LineItems[11] {
		t.Fatalf("chunked line items mismatch: %+v", out.LineItems)
	}
}

func TestEncodeRejectsOversizedCarts(t *testing.T) {
	_, err := Encode(sampleAuthorization(400))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeReportsMissingKeys(t *testing.T) {
	md, err := Encode(sampleAuthorization(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	delete(md, KeyClientID)
	delete(md, KeyLineItems)

	_, err = Decode(md)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	missing, _ := details["missing"].([]string)
	if len(missing) != 2 {
		t.Fatalf("expected two missing keys, got %v", details)
	}
}

func TestDecodeRejectsMalformedValues(t *testing.T) {
	md, err := Encode(sampleAuthorization(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	md[KeyProductTotal] = "twelve"
	md[KeyTimeSlots] = "brunch"

	_, err = Decode(md)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEncodeTruncatesAddressOnCharacterBoundary(t *testing.T) {
	in := sampleAuthorization(1)
	in.DeliveryAddress = "a" + strings.Repeat("é", MaxValueLength)

	md, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := md[KeyDeliveryAddress]
	if !utf8.ValidString(got) {
		t.Fatalf("address is not valid utf-8 after truncation")
	}
	if n := utf8.RuneCountInString(got); n != MaxValueLength {
		t.Fatalf("expected %d characters, got %d", MaxValueLength, n)
	}
	if !strings.HasPrefix(in.DeliveryAddress, got) {
		t.Fatalf("truncated address is not a prefix of the original")
	}

	out, err := Decode(md)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.DeliveryAddress != got {
		t.Fatalf("decoded address differs from stored value")
	}
}
