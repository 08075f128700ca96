package statement

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/model"
)

// ReadCSV reads a delimited statement export. German banking portals emit
// semicolon-separated files, international ones comma-separated; the
// delimiter is sniffed from the header line.
func ReadCSV(r io.Reader, cols Columns) ([]*model.Transaction, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(string(head))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement csv: %w", err)
	}
	if len(records) == 0 {
		return nil, common.ErrEmptyStatement
	}

	index, err := mapColumns(records[0], cols)
	if err != nil {
		return nil, err
	}

	txns := make([]*model.Transaction, 0, len(records)-1)
	for _, rec := range records[1:] {
		txns = append(txns, fromRecord(rec, index))
	}
	return txns, nil
}

func sniffDelimiter(head string) rune {
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if strings.Count(head, ";") > strings.Count(head, ",") {
		return ';'
	}
	return ','
}
