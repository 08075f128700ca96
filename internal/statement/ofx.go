package statement

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/rentwerk/mietflow/internal/model"
)

var (
	severityCase = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	unclosedTag  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in bank OFX downloads before
// handing them to the parser: leading blank lines, mixed-case SEVERITY
// values, and SGML-style tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityCase.ReplaceAllStringFunc(content, strings.ToUpper)
	content = unclosedTag.ReplaceAllString(content, "$1>")
	return content
}

// ReadOFX parses an OFX/QFX download into statement transactions. The payee
// comes from the PAYEE or NAME field and the MEMO becomes the purpose text,
// which is where German banks put the Verwendungszweck.
func ReadOFX(r io.Reader) ([]*model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var txns []*model.Transaction
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, ofxTx := range stmt.BankTranList.Transactions {
			txns = append(txns, fromOFX(ofxTx))
		}
	}

	slog.Info("parsed OFX statement", "transactions", len(txns))
	return txns, nil
}

func fromOFX(ofxTx ofxgo.Transaction) *model.Transaction {
	payee := string(ofxTx.Name)
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		payee = string(ofxTx.Payee.Name)
	}

	posted := time.Date(
		ofxTx.DtPosted.Year(), ofxTx.DtPosted.Month(), ofxTx.DtPosted.Day(),
		0, 0, 0, 0, time.UTC)

	// OFX amounts are exact rationals; keep the sign, statement exports do.
	amountFloat, _ := ofxTx.TrnAmt.Float64()
	amount := decimal.NewFromFloat(amountFloat).Round(2)

	return &model.Transaction{
		ValueDate: &posted,
		RawDate:   posted.Format(model.DateLayout),
		Payee:     payee,
		Purpose:   string(ofxTx.Memo),
		Category:  fmt.Sprintf("%v", ofxTx.TrnType),
		Amount:    &amount,
	}
}
