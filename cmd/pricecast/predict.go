package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"PriceCast/internal/di"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/repository"
	"PriceCast/internal/usecase"
)

func newPredictCmd(root *rootOptions) *cobra.Command {
	var (
		input  string
		symbol string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast a local price file with the in-process fitter",
		Long: `Reads daily records from a JSON or CSV file and prints the forecast as JSON.

JSON input is either an array of {"date","close"} records or an object with a
"data" array. CSV input needs a header with at least date and close columns;
open, high, low and volume are used when present.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := root.load()
			if err != nil {
				return err
			}
			records, err := readRecordsFile(input)
			if err != nil {
				return err
			}

			cfg.Fitter.Type = "local"
			uc := di.ProvideForecastUseCase(nil, di.ProvideFitter(cfg, l),
				repository.NopForecastPublisher{}, nil, cfg, l)
			res, err := uc.ForecastRecords(cmd.Context(), symbol, days, records)
			if err != nil {
				return fmt.Errorf("%s: %w", usecase.ErrorKind(err), err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON or CSV file with daily records")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol reported in the result")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "business days to forecast (config default when 0)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readRecordsFile(path string) ([]models.PriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSVRecords(f)
	}
	return readJSONRecords(f)
}

func readJSONRecords(r io.Reader) ([]models.PriceRecord, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var records []models.PriceRecord
	if err := json.Unmarshal(b, &records); err == nil {
		return records, nil
	}
	var hist models.HistoricalData
	if err := json.Unmarshal(b, &hist); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return hist.Records, nil
}

func readCSVRecords(r io.Reader) ([]models.PriceRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["date"]; !ok {
		return nil, errors.New("csv header needs a date column")
	}
	if _, ok := col["close"]; !ok {
		return nil, errors.New("csv header needs a close column")
	}

	var records []models.PriceRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		rec := models.PriceRecord{Date: row[col["date"]]}
		for name, dst := range map[string]*float64{
			"close": &rec.Close, "open": &rec.Open, "high": &rec.High, "low": &rec.Low, "volume": &rec.Volume,
		} {
			i, ok := col[name]
			if !ok || row[i] == "" {
				continue
			}
			if *dst, err = strconv.ParseFloat(row[i], 64); err != nil {
				return nil, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
		}
		records = append(records, rec)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
