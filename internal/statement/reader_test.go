package statement

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwerk/mietflow/internal/common"
)

func TestMapColumnsByHeader(t *testing.T) {
	header := []string{"Betrag", "Wertstellung", "Kategorie", "Empfänger/Auftraggeber", "Kontoname (Objekt)", "Verwendungszweck"}

	ix, err := mapColumns(header, DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, 1, ix.date)
	assert.Equal(t, 3, ix.payee)
	assert.Equal(t, 5, ix.purpose)
	assert.Equal(t, 0, ix.amount)
}

func TestMapColumnsPositionalFallback(t *testing.T) {
	header := []string{"Datum", "Name", "Zweck", "Art", "Konto", "Summe", "Extra"}

	ix, err := mapColumns(header, DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, columnIndex{date: 0, payee: 1, purpose: 2, category: 3, object: 4, amount: 5}, ix)
}

func TestMapColumnsTooFewColumns(t *testing.T) {
	_, err := mapColumns([]string{"Datum", "Betrag"}, DefaultColumns())
	assert.ErrorIs(t, err, common.ErrMissingColumns)
}

func TestReadCSVSemicolonDelimited(t *testing.T) {
	data := "Wertstellung;Empfänger/Auftraggeber;Verwendungszweck;Kategorie;Kontoname (Objekt);Betrag\n" +
		"02.05.2025;Max Mustermann;Miete Mai;Dauerauftrag;Haus A;640,80\n" +
		"03.05.2025;Erika Beispiel;NK 2024;Überweisung;Haus A;\n"

	txns, err := ReadCSV(strings.NewReader(data), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, "02.05.2025", first.RawDate)
	assert.Equal(t, "Max Mustermann", first.Payee)
	assert.Equal(t, "Miete Mai", first.Purpose)
	assert.Equal(t, "Haus A", first.Object)
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("640.80")))

	// Missing amount stays nil instead of becoming zero.
	assert.Nil(t, txns[1].Amount)
}

func TestReadCSVCommaDelimited(t *testing.T) {
	data := "Wertstellung,Empfänger/Auftraggeber,Verwendungszweck,Kategorie,Kontoname (Objekt),Betrag\n" +
		"2025-05-02,Max Mustermann,Miete Mai,transfer,Haus A,640.80\n"

	txns, err := ReadCSV(strings.NewReader(data), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, txns, 1)

	require.NotNil(t, txns[0].ValueDate)
	assert.Equal(t, "02.05.2025", txns[0].ValueDate.Format("02.01.2006"))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultColumns())
	assert.ErrorIs(t, err, common.ErrEmptyStatement)
}

func TestReadCSVShortRows(t *testing.T) {
	data := "Wertstellung;Empfänger/Auftraggeber;Verwendungszweck;Kategorie;Kontoname (Objekt);Betrag\n" +
		"02.05.2025;Max Mustermann\n"

	txns, err := ReadCSV(strings.NewReader(data), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Max Mustermann", txns[0].Payee)
	assert.Empty(t, txns[0].Purpose)
	assert.Nil(t, txns[0].Amount)
}
