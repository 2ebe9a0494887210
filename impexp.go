package cryptofolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// This file handles the exchange CSV export formats. Each exchange ships its
// own column layout; the importer sniffs the format from the header row and
// produces Transaction records ready for Merge.

// ImportCSV parses an exchange CSV export into transactions. The format is
// detected from the header row. fileName is recorded on every transaction so
// an imported file can be listed and removed later.
func ImportCSV(r io.Reader, fileName string) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // formats differ, rows are validated per format

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse CSV %q: %w", fileName, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV %q has no data rows", fileName)
	}

	header := records[0]
	switch {
	case len(header) > 0 && strings.TrimSpace(header[0]) == "約定日時":
		return importBitflyer(records[1:], fileName)
	case len(header) > 0 && strings.TrimSpace(strings.ToLower(header[0])) == "time":
		return importCoincheck(header, records[1:], fileName)
	default:
		return nil, fmt.Errorf("CSV %q: unrecognized export format (header %q)", fileName, strings.Join(header, ","))
	}
}

// importBitflyer parses the bitFlyer trade report.
// Columns: 約定日時, 通貨ペア, 売/買, 約定数量, 約定価格, 手数料, 約定金額.
func importBitflyer(rows [][]string, fileName string) ([]Transaction, error) {
	var txs []Transaction
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("%s row %d: want 7 columns, got %d", fileName, i+2, len(row))
		}

		pair := strings.TrimSpace(row[1])
		coin, ok := strings.CutSuffix(pair, "/JPY")
		if !ok {
			continue // only JPY-quoted trades feed the portfolio
		}
		side, err := ParseSide(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", fileName, i+2, err)
		}

		at, err := time.Parse("2006/01/02 15:04:05", strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid timestamp: %w", fileName, i+2, err)
		}
		quantity, err := parseDecimalField(row[3], "quantity", fileName, i+2)
		if err != nil {
			return nil, err
		}
		rate, err := parseDecimalField(row[4], "rate", fileName, i+2)
		if err != nil {
			return nil, err
		}
		fee, err := parseDecimalField(row[5], "fee", fileName, i+2)
		if err != nil {
			return nil, err
		}
		amount, err := parseDecimalField(row[6], "amount", fileName, i+2)
		if err != nil {
			return nil, err
		}

		txs = append(txs, Transaction{
			Time:     at,
			Coin:     NormalizeCoin(coin),
			Exchange: Bitflyer,
			Side:     side,
			Quantity: quantity.Abs(),
			Amount:   amount.Abs(),
			Fee:      fee.Abs(),
			Rate:     rate,
			FileName: fileName,
		})
	}
	return txs, nil
}

// importCoincheck parses the Coincheck trade history.
// Columns: time, operation, amount, trading_currency, price, original_currency, fee, rate.
func importCoincheck(header []string, rows [][]string, fileName string) ([]Transaction, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, want := range []string{"time", "operation", "amount", "trading_currency", "price", "fee", "rate"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", fileName, want)
		}
	}

	var txs []Transaction
	for i, row := range rows {
		if len(row) < len(header) {
			return nil, fmt.Errorf("%s row %d: want %d columns, got %d", fileName, i+2, len(header), len(row))
		}

		side, err := ParseSide(row[col["operation"]])
		if err != nil {
			continue // deposits, withdrawals and the like
		}

		at, err := time.Parse(time.RFC3339, strings.TrimSpace(row[col["time"]]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid timestamp: %w", fileName, i+2, err)
		}
		quantity, err := parseDecimalField(row[col["amount"]], "amount", fileName, i+2)
		if err != nil {
			return nil, err
		}
		price, err := parseDecimalField(row[col["price"]], "price", fileName, i+2)
		if err != nil {
			return nil, err
		}
		fee, err := parseDecimalField(row[col["fee"]], "fee", fileName, i+2)
		if err != nil {
			return nil, err
		}
		rate, err := parseDecimalField(row[col["rate"]], "rate", fileName, i+2)
		if err != nil {
			return nil, err
		}

		txs = append(txs, Transaction{
			Time:     at,
			Coin:     NormalizeCoin(row[col["trading_currency"]]),
			Exchange: Coincheck,
			Side:     side,
			Quantity: quantity.Abs(),
			Amount:   price.Abs(),
			Fee:      fee.Abs(),
			Rate:     rate,
			FileName: fileName,
		})
	}
	return txs, nil
}

func parseDecimalField(s, name, fileName string, line int) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s row %d: invalid %s %q: %w", fileName, line, name, s, err)
	}
	return d, nil
}
