package labels

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
)

func TestPayload(t *testing.T) {
	sh := warehouse.Shipment{
		CustomerName:   "Acme Shipping",
		ArrivalDate:    warehouse.DatePtr(2025, time.March, 4),
		RelatedInbound: "WH/IN/0001",
		SupplierPO:     "PO-9",
		WaybillNumber:  "WB-12",
		FinancialCode:  "F-0005",
	}
	line := warehouse.LineItem{
		ProductName:    "Gate valve",
		UoM:            "Units",
		Critical:       true,
		Dangerous:      true,
		DangerousClass: "class_3",
	}

	got := strings.Split(Payload(sh, line), "\n")
	assert.Equal(t, []string{
		"Item Description: Gate valve",
		"Critical Level: Yes",
		"Temperature Sensitive: No",
		"Dangerous?: Yes (class_3)",
		"Unit: Units",
		"Related Inbound Shipment: WH/IN/0001",
		"Arrival Time: 2025-03-04",
		"Customer: Acme Shipping",
		"Supplier PO Number: PO-9",
		"Customer PO Number: WB-12",
		"Our File Number: F-0005",
	}, got)
}

func TestPayloadBlankFields(t *testing.T) {
	got := Payload(warehouse.Shipment{}, warehouse.LineItem{})
	assert.Contains(t, got, "Dangerous?: No")
	assert.Contains(t, got, "Arrival Time: \n")
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG("Item Description: Gate valve", 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())

	_, err = EncodePNG("   ", 128)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
