package purchases

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// exportHeader is the fixed CSV header consumed by the downstream
// spreadsheet workflow. Column names and order must not change.
var exportHeader = []string{
	"Reference", "Company", "Date", "High", "Low", "Quarter", "Amount", "Gross Value", "currency",
}

// WriteCSV writes purchase records as CSV with CRLF line endings, newest
// record first. Prices are emitted with six decimal places in the raw stored
// units; the currency column carries the code, not a symbol.
func WriteCSV(w io.Writer, records []domain.PurchaseRecord) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.Reference,
			record.Company.Name,
			record.TradeDate.Format("2006-01-02"),
			record.High.StringFixed(6),
			record.Low.StringFixed(6),
			record.Quarter.StringFixed(6),
			strconv.FormatInt(record.Quantity, 10),
			record.GrossValue.StringFixed(6),
			record.Company.Currency.Code,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
