package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ArowuTest/storefront-coins/internal/repositories/memory"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestImporter(t *testing.T) (*CSVImporter, *memory.Store) {
	t.Helper()
	mem := memory.New()
	store := mem.Repositories()
	log := zaptest.NewLogger(t)
	m := metrics.New()

	ledger := services.NewLedgerService(store, services.LedgerOptions{}, log, m)
	pickup := services.NewPickupService(store.PickupPoints, nil, services.PickupOptions{ThresholdKm: 1}, log, m)
	codes := services.NewRedemptionService(store, ledger, log, m)
	return NewCSVImporter(pickup, codes, log), mem
}

func TestImportPickupPoints(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)

	data := `Name, Address, Lat, Lng
Yaba Hub, 12 Herbert Macaulay Way, 6.5095, 3.3711
Bad Row, Nowhere, north, 3.37
Lekki Hub, , 6.4474, 3.4723
`
	res, err := imp.ImportPickupPoints(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "row 3")

	points, err := mem.Repositories().PickupPoints.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestImportPickupPointsMissingColumns(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.ImportPickupPoints(context.Background(), strings.NewReader("name,address\nA,B\n"))
	assert.Error(t, err)
}

func TestImportPickupPointsStopsWhenStoreIsDown(t *testing.T) {
	imp, mem := newTestImporter(t)
	mem.SetFault(func(op string) error {
		if strings.HasPrefix(op, "pickup_points.") {
			return errors.New("connection reset")
		}
		return nil
	})

	res, err := imp.ImportPickupPoints(context.Background(), strings.NewReader("name,lat,lon\nA,6.5,3.3\nB,6.6,3.4\n"))
	require.Error(t, err)
	assert.True(t, errutil.Is(err, errutil.StatusStoreUnavailable))
	assert.Equal(t, 1, res.TotalRows)
}

func TestImportRedeemCodesSkipsExisting(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)

	data := `code,type,value,title,usage limit,expiry
welcome100,coins,100,Welcome bonus,50,
SUMMER15,Discount,15,Summer sale,10,2099-08-31
broken,coins,abc,Broken,1,
TOOBIG,discount,150,Too big,1,
`
	res, err := imp.ImportRedeemCodes(ctx, strings.NewReader(data), "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalRows)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Failed)

	code, err := mem.Repositories().RedeemCodes.FindByCode(ctx, "WELCOME100")
	require.NoError(t, err)
	assert.Equal(t, int64(100), code.Value)
	assert.Equal(t, "seed@example.com", code.CreatedBy)
	assert.Nil(t, code.ExpiresAt)

	summer, err := mem.Repositories().RedeemCodes.FindByCode(ctx, "SUMMER15")
	require.NoError(t, err)
	require.NotNil(t, summer.ExpiresAt)
	assert.Equal(t, 2099, summer.ExpiresAt.Year())

	// A second run creates nothing new.
	res, err = imp.ImportRedeemCodes(ctx, strings.NewReader(data), "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Skipped)
}

func TestFindColumnIndex(t *testing.T) {
	header := []string{" Code ", "Usage Limit", "EXPIRES AT"}
	assert.Equal(t, 0, findColumnIndex(header, []string{"code"}))
	assert.Equal(t, 1, findColumnIndex(header, []string{"usagelimit", "usage limit"}))
	assert.Equal(t, 2, findColumnIndex(header, []string{"expires at"}))
	assert.Equal(t, -1, findColumnIndex(header, []string{"title"}))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2030-01-15", "2030-01-15T00:00:00Z", "15/01/2030", "15 Jan 2030"} {
		d, err := parseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, 15, d.Day(), s)
		assert.Equal(t, 2030, d.Year(), s)
	}
	_, err := parseDate("next tuesday")
	assert.Error(t, err)
}
