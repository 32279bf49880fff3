package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"book-comps/internal/bookmeta"
)

// Export renders an ISBN's sold price history as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if err := bookmeta.RequireISBN(opts.ISBN); err != nil {
		return err
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	now := time.Now().UTC()
	to := now
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -a.Config.Stats.LookbackDays)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	platform := opts.Platform
	if platform == "" {
		platform = bookmeta.PlatformAll
	}

	listings, err := store.ListSoldListings(ctx, opts.ISBN, platform, from)
	if err != nil {
		return err
	}

	sales := make([]bookmeta.Listing, 0, len(listings))
	for _, listing := range listings {
		if listing.Price == nil || listing.SoldDate == nil || listing.SoldDate.After(to) {
			continue
		}
		sales = append(sales, listing)
	}
	if len(sales) == 0 {
		a.Logger.Info().Str("isbn", opts.ISBN).Msg("no priced sales found for export window")
		return nil
	}

	sortBySoldDate(sales)

	downsampled := downsampleSales(sales, opts.MaxPoints)
	a.Logger.Info().Int("total", len(sales)).Int("exported", len(downsampled)).Msg("exporting sold listings")

	if opts.CSVPath != "" {
		if err := writeSalesCSV(opts.CSVPath, downsampled, now); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSalesPNG(opts.PNGPath, opts.ISBN, downsampled); err != nil {
			return err
		}
	}

	return nil
}

// sortBySoldDate orders sales oldest first. The store returns newest-first
// for display; exports and charts read chronologically.
func sortBySoldDate(sales []bookmeta.Listing) {
	sort.Slice(sales, func(i, j int) bool {
		return sales[i].SoldDate.Before(*sales[j].SoldDate)
	})
}

func downsampleSales(sales []bookmeta.Listing, max int) []bookmeta.Listing {
	if max <= 0 || len(sales) <= max {
		return sales
	}

	result := make([]bookmeta.Listing, 0, max)
	step := float64(len(sales)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(sales) {
			idx = len(sales) - 1
		}
		result = append(result, sales[idx])
	}
	return result
}

func writeSalesCSV(path string, sales []bookmeta.Listing, now time.Time) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"sold_date", "days_since_sale", "platform", "listing_id", "price", "currency", "condition", "is_lot", "url"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sale := range sales {
		isLot := "false"
		if sale.IsLot {
			isLot = "true"
		}
		record := []string{
			sale.SoldDate.Format(time.RFC3339),
			strconv.Itoa(sale.DaysSinceSale(now)),
			sale.Platform,
			sale.ListingID,
			sale.Price.String(),
			sale.Currency,
			formatNullString(sale.Condition),
			isLot,
			sale.URL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSalesPNG(path, isbn string, sales []bookmeta.Listing) error {
	if len(sales) < 2 {
		return errors.New("at least two data points are required for a chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(sales))
	prices := make([]float64, len(sales))
	for i, sale := range sales {
		x[i] = *sale.SoldDate
		prices[i] = sale.Price.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  "Sold prices " + isbn,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Sold",
				XValues: x,
				YValues: prices,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
