package fixtures

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Parquet row shapes for the investigation tables. Dates travel as ISO
// strings and are cast by the loader's DDL column types.

type PersonRecord struct {
	ID         int64  `parquet:"id"`
	Name       string `parquet:"name"`
	Age        int64  `parquet:"age"`
	Occupation string `parquet:"occupation"`
	Address    string `parquet:"address"`
}

type CaseRecord struct {
	ID       int64  `parquet:"id"`
	Title    string `parquet:"title"`
	Location string `parquet:"location"`
	OpenedOn string `parquet:"opened_on"`
	Status   string `parquet:"status"`
}

type SuspectRecord struct {
	ID       int64  `parquet:"id"`
	CaseID   int64  `parquet:"case_id"`
	PersonID int64  `parquet:"person_id"`
	Motive   string `parquet:"motive"`
}

type AlibiRecord struct {
	ID       int64  `parquet:"id"`
	CaseID   int64  `parquet:"case_id"`
	PersonID int64  `parquet:"person_id"`
	Claim    string `parquet:"claim"`
	Verified bool   `parquet:"verified"`
}

type StatementRecord struct {
	ID       int64  `parquet:"id"`
	CaseID   int64  `parquet:"case_id"`
	PersonID int64  `parquet:"person_id"`
	GivenOn  string `parquet:"given_on"`
	Text     string `parquet:"text"`
}

type EvidenceRecord struct {
	ID        int64  `parquet:"id"`
	CaseID    int64  `parquet:"case_id"`
	Item      string `parquet:"item"`
	FoundAt   string `parquet:"found_at"`
	BelongsTo int64  `parquet:"belongs_to"`
}

// Dataset is everything one case is played against.
type Dataset struct {
	CaseID     string
	Persons    []PersonRecord
	Cases      []CaseRecord
	Suspects   []SuspectRecord
	Alibis     []AlibiRecord
	Statements []StatementRecord
	Evidence   []EvidenceRecord
}

func encodeParquet[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeParquet[T any](data []byte) ([]T, error) {
	rows, err := parquet.Read[T](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return rows, nil
}
