// Package export serialises dashboard listings.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
)

// WriteDetailCSV emits a card listing as CSV with the listing's column labels as header.
func WriteDetailCSV(w io.Writer, detail dashboard.Detail) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(detail.Headers))
	for i, col := range detail.Headers {
		header[i] = col.Label
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range detail.Records {
		if err := writer.Write(row.Cells()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV prints card values in catalogue order.
func WriteSummaryCSV(w io.Writer, summary dashboard.Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Card", "Title", "Value"}); err != nil {
		return err
	}
	for _, m := range summary.Metrics {
		value := m.Area.StringFixed(2)
		if m.Kind == dashboard.MetricCount {
			value = strconv.Itoa(m.Count)
		}
		if err := writer.Write([]string{string(m.Card), m.Card.Title(), value}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
