package statement

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250602120000[0:GMT]
<LANGUAGE>GER
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>10010010
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250501120000[0:GMT]
<DTEND>20250531120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250502120000[0:GMT]
<TRNAMT>640.80
<FITID>2025050201
<NAME>Max Mustermann
<MEMO>Miete Mai Whg 1
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250505120000[0:GMT]
<TRNAMT>420.00
<FITID>2025050501
<NAME>Jobcenter Wuppertal
<MEMO>Miete Erika Beispiel Mai
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1060.80
<DTASOF>20250531120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestReadOFX(t *testing.T) {
	txns, err := ReadOFX(strings.NewReader(sampleOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.Equal(t, "Max Mustermann", first.Payee)
	assert.Equal(t, "Miete Mai Whg 1", first.Purpose)
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, "02.05.2025", first.ValueDate.Format("02.01.2006"))
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("640.80")))

	second := txns[1]
	assert.Equal(t, "Jobcenter Wuppertal", second.Payee)
	assert.Equal(t, "Miete Erika Beispiel Mai", second.Purpose)
}

func TestReadOFXLeadingWhitespace(t *testing.T) {
	txns, err := ReadOFX(strings.NewReader("\n\n  " + sampleOFX))
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestReadOFXInvalid(t *testing.T) {
	_, err := ReadOFX(strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	in := "<STATUS>\n<CODE>0\n<SEVERITY>Info</SEVERITY>\n</STATUS>\n<DTSERVER\n"
	out := preprocessOFX(in)

	assert.Contains(t, out, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, out, "<DTSERVER>")
}
