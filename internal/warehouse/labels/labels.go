// Package labels renders the QR labels printed for received line items.
package labels

import (
	"errors"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
)

// DefaultSize is the edge length of rendered labels in pixels.
const DefaultSize = 256

// ErrEmptyPayload is returned when there is nothing to encode.
var ErrEmptyPayload = errors.New("labels: empty payload")

// Payload builds the newline-separated label text for line within shipment.
func Payload(sh warehouse.Shipment, line warehouse.LineItem) string {
	arrival := ""
	if sh.ArrivalDate != nil {
		arrival = sh.ArrivalDate.Format(time.DateOnly)
	}
	dangerous := "No"
	if line.Dangerous {
		dangerous = fmt.Sprintf("Yes (%s)", line.DangerousClass)
	}

	rows := []string{
		"Item Description: " + line.ProductName,
		"Critical Level: " + yesNo(line.Critical),
		"Temperature Sensitive: " + yesNo(line.TemperatureSensitive),
		"Dangerous?: " + dangerous,
		"Unit: " + line.UoM,
		"Related Inbound Shipment: " + sh.RelatedInbound,
		"Arrival Time: " + arrival,
		"Customer: " + sh.CustomerName,
		"Supplier PO Number: " + sh.SupplierPO,
		"Customer PO Number: " + sh.WaybillNumber,
		"Our File Number: " + sh.FinancialCode,
	}
	return strings.Join(rows, "\n")
}

// EncodePNG renders payload as a QR code PNG. Sizes below 64 fall back to DefaultSize.
func EncodePNG(payload string, size int) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, ErrEmptyPayload
	}
	if size < 64 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("labels: encode qr: %w", err)
	}
	return png, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
