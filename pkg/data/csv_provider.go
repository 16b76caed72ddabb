package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var header = []string{
	"open_time", "open", "high", "low", "close", "volume",
	"close_time", "quote_volume", "count", "taker_buy_volume", "taker_buy_quote_volume", "ignore",
}

// CSVProvider reads Binance kline CSV dumps: twelve columns, millisecond
// timestamps, with or without a header row.
type CSVProvider struct{}

// NewCSVProvider creates a new CSV data provider
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData parses every row. A malformed row rejects the whole file.
func (p *CSVProvider) LoadData(source string) ([]types.Candle, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return p.Read(file)
}

// Read parses klines from r.
func (p *CSVProvider) Read(r io.Reader) ([]types.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var data []types.Candle
	lineNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		if lineNum == 1 && isHeader(record) {
			continue
		}
		if len(record) < types.KlineFields {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d: %w", lineNum, types.KlineFields, len(record), types.ErrMalformedKline)
		}

		raw := make(types.RawKline, types.KlineFields)
		for i := 0; i < types.KlineFields; i++ {
			raw[i] = record[i]
		}
		candle, err := types.ParseKline(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		data = append(data, candle)
	}
	return data, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseInt(record[0], 10, 64)
	return err != nil
}

// ValidateData rejects empty data and close times that do not strictly increase.
func (p *CSVProvider) ValidateData(data []types.Candle) error {
	if len(data) == 0 {
		return series.ErrEmptyFeed
	}
	for i, candle := range data {
		if err := candle.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
	}
	return NewDefaultDataFilter().ValidateTimeSequence(data)
}

// WriteCSV writes candles as a Binance kline dump with a header row.
func WriteCSV(path string, candles []types.Candle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range candles {
		raw := c.ToRaw()
		record := make([]string, len(raw))
		for i, v := range raw {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
