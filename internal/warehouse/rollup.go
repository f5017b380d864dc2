package warehouse

import (
	"math"
	"time"
)

// Area returns the footprint of one unit of the line in square metres.
func (l LineItem) Area() float64 {
	return l.LengthM * l.WidthM
}

// Volume returns the cubic size of one unit of the line.
func (l LineItem) Volume() float64 {
	return l.LengthM * l.WidthM * l.HeightM
}

// ChargeableArea lays the lines side by side at the widest line's width.
func ChargeableArea(lines []LineItem) float64 {
	var maxWidth float64
	for _, line := range lines {
		maxWidth = math.Max(maxWidth, line.WidthM)
	}
	var total float64
	for _, line := range lines {
		total += line.LengthM * maxWidth
	}
	return total
}

// RemainingQty is what a customer still holds: received less dispatched,
// never below zero.
func RemainingQty(received, dispatched float64) float64 {
	return math.Max(0, received-dispatched)
}

// BalanceQty is what stays in stock once the requested quantity goes out.
// It is negative when a request exceeds the stock.
func BalanceQty(remaining, requested float64) float64 {
	return remaining - requested
}

// CustomerStock returns the remaining quantity of product a customer holds
// at location: stored receipts into it less stored dispatches out of it.
func CustomerStock(shipments []Shipment, customerID int64, product string, locationID int64) float64 {
	var received, dispatched float64
	for _, sh := range shipments {
		if sh.Status != StatusDone || sh.CustomerID == nil || *sh.CustomerID != customerID {
			continue
		}
		for _, line := range sh.Lines {
			if line.Archived || line.ProductName != product {
				continue
			}
			switch sh.PickingType {
			case PickingIncoming:
				if line.DestLocationID != nil && *line.DestLocationID == locationID {
					received += line.Quantity
				}
			case PickingOutgoing:
				if line.SourceLocationID != nil && *line.SourceLocationID == locationID {
					dispatched += line.Quantity
				}
			}
		}
	}
	return RemainingQty(received, dispatched)
}

// LineStock is the stock position of one line.
type LineStock struct {
	LineID    int64   `json:"line_id"`
	InStock   float64 `json:"in_stock"`
	Requested float64 `json:"requested"`
	Balance   float64 `json:"balance"`
}

// Rollup holds the denormalised shipment measures maintained by the host.
type Rollup struct {
	AreaChargeable    float64     `json:"area_chargeable"`
	TotalArea         float64     `json:"total_area"`
	NewChargeableArea float64     `json:"new_chargeable_area"`
	VolumeM3          float64     `json:"volume_m3"`
	WeightKg          float64     `json:"weight_kg"`
	TotalItems        int         `json:"total_items"`
	DaysInStorage     int         `json:"days_in_storage"`
	DaysMulti         float64     `json:"days_multi"`
	Lines             []LineStock `json:"lines,omitempty"`
}

// Summarize recomputes the shipment measures as of today. A non-nil period
// date replaces the arrival date when charging storage days.
func Summarize(s Shipment, today time.Time, period *time.Time) Rollup {
	r := Rollup{AreaChargeable: ChargeableArea(s.Lines)}
	items := 0
	for _, line := range s.Lines {
		r.TotalArea += line.Area() * line.Quantity
		r.NewChargeableArea += line.Area()
		r.VolumeM3 += line.Volume()
		r.WeightKg += line.WeightKg
		items += line.NoOfItems
		r.Lines = append(r.Lines, LineStock{
			LineID:    line.ID,
			InStock:   line.InStockQty,
			Requested: line.Quantity,
			Balance:   BalanceQty(line.InStockQty, line.Quantity),
		})
	}
	if items > 1 {
		r.TotalItems = items
	} else {
		r.TotalItems = len(s.Lines)
	}
	r.DaysInStorage = DaysBetween(s.ArrivalDate, today)

	switch {
	case period != nil && r.AreaChargeable != 0:
		r.DaysMulti = float64(DaysBetween(period, today)) * r.AreaChargeable
	case r.DaysInStorage != 0 && r.AreaChargeable != 0:
		r.DaysMulti = float64(r.DaysInStorage) * r.AreaChargeable
	}
	return r
}

// DaysBetween counts whole calendar days from since to today. Unset dates count as zero.
func DaysBetween(since *time.Time, today time.Time) int {
	if since == nil {
		return 0
	}
	return int(Date(today).Sub(Date(*since)).Hours() / 24)
}
