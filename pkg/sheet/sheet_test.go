package sheet_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mcclellann/creditos/pkg/engine"
	"github.com/mcclellann/creditos/pkg/models"
	"github.com/mcclellann/creditos/pkg/sheet"
)

var today = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

// buildWorkbook assembles an xlsx in memory the way an operator file would
// look: a header row followed by data rows.
func buildWorkbook(t *testing.T, header []string, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &hdr))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestReadFullRows(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"Fecha", "Cliente", "Valor", "Tipo de pago", "Próximo pago", "Pagos realizados"},
		[][]interface{}{
			{"2025-06-01", "Ana", "1000", "semanal", "", "250"},
			{"2025-06-14", "Luis", "500,50", "quincenal", "2025-06-15", "0"},
		},
	)

	credits, issues, err := sheet.Read(r, today)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, credits, 2)

	ana := credits[0]
	assert.Equal(t, "Ana", ana.Client)
	assert.Equal(t, models.FrequencyWeekly, ana.Frequency)
	assert.True(t, ana.Balance.Equal(decimal.NewFromInt(750)))
	require.NotNil(t, ana.NextDueDate)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), *ana.NextDueDate)
	assert.Equal(t, models.StatusOverdue, ana.Status)

	luis := credits[1]
	assert.True(t, luis.Principal.Equal(decimal.RequireFromString("500.50")), "comma decimal separator accepted")
	assert.Equal(t, models.StatusDueToday, luis.Status)
}

func TestReadHeaderNormalization(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"  FECHA ", "cliente", "VALOR", "tipo de pago"},
		[][]interface{}{{"2025-06-15", "Ana", "100", "Diario"}},
	)

	credits, issues, err := sheet.Read(r, today)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, credits, 1)
	assert.Equal(t, "Ana", credits[0].Client)
	assert.Equal(t, models.FrequencyDaily, credits[0].Frequency)
}

func TestReadBackfillsMissingColumns(t *testing.T) {
	// Only Cliente and Valor present: frequency defaults to diario,
	// payments to zero and the origin date to today.
	r := buildWorkbook(t,
		[]string{"Cliente", "Valor"},
		[][]interface{}{{"Ana", "300"}},
	)

	credits, issues, err := sheet.Read(r, today)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, credits, 1)

	c := credits[0]
	assert.Equal(t, models.FrequencyDaily, c.Frequency)
	assert.True(t, c.PaidToDate.IsZero())
	require.NotNil(t, c.OriginDate)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *c.OriginDate)
	require.NotNil(t, c.NextDueDate)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), *c.NextDueDate)
	assert.Equal(t, models.StatusDueSoon, c.Status)
}

func TestReadLenientCells(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"Fecha", "Cliente", "Valor", "Tipo de pago", "Pagos realizados"},
		[][]interface{}{
			{"not-a-date", "Ana", "100", "xyz", "garbage"},
		},
	)

	credits, issues, err := sheet.Read(r, today)
	require.NoError(t, err)
	assert.Empty(t, issues, "corrupt optional cells degrade, they never flag the row")
	require.Len(t, credits, 1)

	c := credits[0]
	assert.Nil(t, c.OriginDate, "corrupt date cell degrades to unset")
	assert.Equal(t, models.StatusNoDate, c.Status)
	assert.Equal(t, models.Frequency("xyz"), c.Frequency)
	assert.True(t, c.PaidToDate.IsZero())
}

func TestReadFlagsImpossibleRows(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"Fecha", "Cliente", "Valor"},
		[][]interface{}{
			{"2025-06-15", "Ana", "100"},
			{"2025-06-15", "Luis", "not-a-number"},
			{"2025-06-15", "Marta", "-50"},
			{"2025-06-15", "", "80"},
			{"2025-06-15", "Pedro", "200"},
		},
	)

	credits, issues, err := sheet.Read(r, today)
	require.NoError(t, err, "bad rows never abort the import")
	require.Len(t, credits, 2, "good rows still load")
	assert.Equal(t, "Ana", credits[0].Client)
	assert.Equal(t, "Pedro", credits[1].Client)

	require.Len(t, issues, 3)
	assert.Equal(t, 3, issues[0].Row)
	assert.Equal(t, 4, issues[1].Row)
	assert.Equal(t, 5, issues[2].Row)
}

func TestReadIgnoresDerivedColumns(t *testing.T) {
	// Saldo restante and Estatus on input are stale by definition.
	r := buildWorkbook(t,
		[]string{"Fecha", "Cliente", "Valor", "Saldo restante", "Estatus"},
		[][]interface{}{{"2025-06-15", "Ana", "100", "999", "Pagado"}},
	)

	credits, _, err := sheet.Read(r, today)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.True(t, credits[0].Balance.Equal(decimal.NewFromInt(100)))
	assert.NotEqual(t, models.StatusPaid, credits[0].Status)
}

func TestRoundTrip(t *testing.T) {
	mk := func(in engine.CreditInput) *models.Credit {
		c, err := engine.NewCredit(in, today)
		require.NoError(t, err)
		return c
	}
	day := func(n int) *time.Time {
		d := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
		return &d
	}

	original := []*models.Credit{
		mk(engine.CreditInput{Client: "Ana", Principal: decimal.NewFromInt(1000), Frequency: models.FrequencyWeekly, OriginDate: day(-14)}),
		mk(engine.CreditInput{Client: "Luis", Principal: decimal.RequireFromString("500.50"), Frequency: models.FrequencyDaily, OriginDate: day(-1), PaidToDate: decimal.NewFromInt(100)}),
		mk(engine.CreditInput{Client: "Marta", Principal: decimal.NewFromInt(200), Frequency: models.FrequencyBiweekly, OriginDate: day(0), PaidToDate: decimal.NewFromInt(200)}),
		mk(engine.CreditInput{Client: "Pedro", Principal: decimal.NewFromInt(300)}),
	}

	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf, original))

	reread, issues, err := sheet.Read(bytes.NewReader(buf.Bytes()), today)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, reread, len(original))

	for i, want := range original {
		got := reread[i]
		assert.Equal(t, want.Client, got.Client)
		assert.Equal(t, want.Frequency, got.Frequency)
		assert.True(t, got.Balance.Equal(want.Balance), "%s balance: want %s got %s", want.Client, want.Balance, got.Balance)
		assert.Equal(t, want.Status, got.Status, "client %s", want.Client)
		if want.NextDueDate == nil {
			assert.Nil(t, got.NextDueDate, "client %s", want.Client)
		} else {
			require.NotNil(t, got.NextDueDate, "client %s", want.Client)
			assert.Equal(t, *want.NextDueDate, *got.NextDueDate, "client %s", want.Client)
		}
	}
}

func TestWriteStylesStatusRows(t *testing.T) {
	c, err := engine.NewCredit(engine.CreditInput{
		Client:     "Ana",
		Principal:  decimal.NewFromInt(1000),
		Frequency:  models.FrequencyWeekly,
		OriginDate: func() *time.Time { d := today.AddDate(0, 0, -14); return &d }(),
	}, today)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf, []*models.Credit{c}))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Créditos"}, f.GetSheetList())

	status, err := f.GetCellValue("Créditos", "H2")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOverdue), status)

	styleID, err := f.GetCellStyle("Créditos", "A2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color, "overdue row must carry a fill")
	assert.Contains(t, style.Fill.Color[0], "FFC7CE")

	width, err := f.GetColWidth("Créditos", "B")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, width, float64(len("Cliente")+2))
}
