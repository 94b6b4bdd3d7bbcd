package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"go.uber.org/zap"
)

// PickupPointCreator is the part of the pickup service the importer needs.
type PickupPointCreator interface {
	Create(ctx context.Context, req models.CreatePickupPointRequest) (*models.PickupPoint, error)
}

// RedeemCodeCreator is the part of the redemption service the importer needs.
type RedeemCodeCreator interface {
	CreateCode(ctx context.Context, req models.CreateRedeemCodeRequest, createdBy string) (*models.RedeemCode, error)
}

// Result counts what happened to each data row of an import.
type Result struct {
	TotalRows int      `json:"totalRows"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *Result) fail(row int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %v", row, err))
}

// CSVImporter loads pickup points and redeem codes from CSV files
type CSVImporter struct {
	pickup PickupPointCreator
	codes  RedeemCodeCreator
	log    *zap.Logger
}

// NewCSVImporter creates a new CSVImporter
func NewCSVImporter(pickup PickupPointCreator, codes RedeemCodeCreator, log *zap.Logger) *CSVImporter {
	return &CSVImporter{pickup: pickup, codes: codes, log: log}
}

// ImportPickupPoints reads name, address, latitude and longitude columns.
func (i *CSVImporter) ImportPickupPoints(ctx context.Context, r io.Reader) (*Result, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	nameIdx := findColumnIndex(header, []string{"name", "pickup point", "location"})
	addrIdx := findColumnIndex(header, []string{"address", "street"})
	latIdx := findColumnIndex(header, []string{"latitude", "lat"})
	lonIdx := findColumnIndex(header, []string{"longitude", "lon", "lng"})
	if nameIdx == -1 || latIdx == -1 || lonIdx == -1 {
		return nil, errors.New("required columns not found: name, latitude, longitude")
	}

	result := &Result{}
	for n, record := range rows {
		row := n + 2
		result.TotalRows++
		if err := ctx.Err(); err != nil {
			return result, err
		}

		lat, err := parseFloat(field(record, latIdx))
		if err != nil {
			result.fail(row, fmt.Errorf("latitude: %w", err))
			continue
		}
		lon, err := parseFloat(field(record, lonIdx))
		if err != nil {
			result.fail(row, fmt.Errorf("longitude: %w", err))
			continue
		}

		_, err = i.pickup.Create(ctx, models.CreatePickupPointRequest{
			Name:      field(record, nameIdx),
			Address:   field(record, addrIdx),
			Latitude:  &lat,
			Longitude: &lon,
		})
		if err != nil {
			if errutil.Is(err, errutil.StatusStoreUnavailable) {
				return result, err
			}
			result.fail(row, err)
			continue
		}
		result.Created++
	}

	i.log.Info("pickup points imported",
		zap.Int("rows", result.TotalRows), zap.Int("created", result.Created), zap.Int("failed", result.Failed))
	return result, nil
}

// ImportRedeemCodes reads code, type, value, title, description, usage limit and expiry columns.
// Codes that already exist are skipped so an import can be re-run.
func (i *CSVImporter) ImportRedeemCodes(ctx context.Context, r io.Reader, createdBy string) (*Result, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	codeIdx := findColumnIndex(header, []string{"code", "redeem code"})
	typeIdx := findColumnIndex(header, []string{"type", "code type"})
	valueIdx := findColumnIndex(header, []string{"value", "amount", "coins"})
	titleIdx := findColumnIndex(header, []string{"title", "name"})
	descIdx := findColumnIndex(header, []string{"description", "details"})
	limitIdx := findColumnIndex(header, []string{"usage limit", "usagelimit", "limit"})
	expiryIdx := findColumnIndex(header, []string{"expires at", "expiresat", "expiry", "expiry date"})
	if codeIdx == -1 || typeIdx == -1 || valueIdx == -1 || titleIdx == -1 || limitIdx == -1 {
		return nil, errors.New("required columns not found: code, type, value, title, usage limit")
	}

	result := &Result{}
	for n, record := range rows {
		row := n + 2
		result.TotalRows++
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := strconv.ParseInt(field(record, valueIdx), 10, 64)
		if err != nil {
			result.fail(row, fmt.Errorf("value: %w", err))
			continue
		}
		limit, err := strconv.ParseInt(field(record, limitIdx), 10, 64)
		if err != nil {
			result.fail(row, fmt.Errorf("usage limit: %w", err))
			continue
		}
		req := models.CreateRedeemCodeRequest{
			Code:        field(record, codeIdx),
			Type:        models.CodeType(strings.ToLower(field(record, typeIdx))),
			Value:       value,
			Title:       field(record, titleIdx),
			Description: field(record, descIdx),
			UsageLimit:  limit,
		}
		if raw := field(record, expiryIdx); raw != "" {
			expiresAt, err := parseDate(raw)
			if err != nil {
				result.fail(row, err)
				continue
			}
			req.ExpiresAt = &expiresAt
		}

		if _, err := i.codes.CreateCode(ctx, req, createdBy); err != nil {
			switch errutil.CodeOf(err) {
			case errutil.StatusConflict:
				result.Skipped++
			case errutil.StatusStoreUnavailable:
				return result, err
			default:
				result.fail(row, err)
			}
			continue
		}
		result.Created++
	}

	i.log.Info("redeem codes imported",
		zap.Int("rows", result.TotalRows), zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped), zap.Int("failed", result.Failed))
	return result, nil
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read records: %w", err)
	}
	return header, rows, nil
}

// findColumnIndex finds the index of a column by checking multiple possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, column := range header {
		column = strings.ToLower(strings.TrimSpace(column))
		for _, name := range possibleNames {
			if column == name {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("missing")
	}
	return strconv.ParseFloat(s, 64)
}

// parseDate parses a date string in various formats
func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"02/01/2006",
		"02/01/2006 15:04:05",
		"2 Jan 2006",
	}
	for _, format := range formats {
		date, err := time.Parse(format, dateStr)
		if err == nil {
			return date.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
