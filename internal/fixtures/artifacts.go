package fixtures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sqlhunt/sqlhunt/internal/storage"
)

const parquetContentType = "application/octet-stream"

// PublishDataset encodes every non-empty table of the dataset as parquet and
// uploads it under cases/<case>/<table>.parquet.
func PublishDataset(ctx context.Context, store storage.ObjectStore, ds Dataset) error {
	artifacts := map[string][]byte{}

	put := func(table string, data []byte, err error) error {
		if err != nil {
			return fmt.Errorf("encode %s: %w", table, err)
		}
		artifacts[table] = data
		return nil
	}

	if len(ds.Persons) > 0 {
		data, err := encodeParquet(ds.Persons)
		if err := put("person", data, err); err != nil {
			return err
		}
	}
	if len(ds.Cases) > 0 {
		data, err := encodeParquet(ds.Cases)
		if err := put("cases", data, err); err != nil {
			return err
		}
	}
	if len(ds.Suspects) > 0 {
		data, err := encodeParquet(ds.Suspects)
		if err := put("suspect", data, err); err != nil {
			return err
		}
	}
	if len(ds.Alibis) > 0 {
		data, err := encodeParquet(ds.Alibis)
		if err := put("alibi", data, err); err != nil {
			return err
		}
	}
	if len(ds.Statements) > 0 {
		data, err := encodeParquet(ds.Statements)
		if err := put("statement", data, err); err != nil {
			return err
		}
	}
	if len(ds.Evidence) > 0 {
		data, err := encodeParquet(ds.Evidence)
		if err := put("evidence", data, err); err != nil {
			return err
		}
	}

	for _, table := range Tables() {
		data, ok := artifacts[table]
		if !ok {
			continue
		}
		key, err := storage.BuildArtifactPath(ds.CaseID, table)
		if err != nil {
			return err
		}
		if _, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType}); err != nil {
			return fmt.Errorf("upload %s artifact: %w", table, err)
		}
	}
	return nil
}

// FetchDataset downloads and decodes the case's parquet artifacts. Missing
// tables stay empty: not every case ships every table.
func FetchDataset(ctx context.Context, store storage.ObjectStore, caseID string) (Dataset, error) {
	ds := Dataset{CaseID: caseID}

	for _, table := range Tables() {
		data, err := fetchArtifact(ctx, store, caseID, table)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			return Dataset{}, err
		}
		switch table {
		case "person":
			ds.Persons, err = decodeParquet[PersonRecord](data)
		case "cases":
			ds.Cases, err = decodeParquet[CaseRecord](data)
		case "suspect":
			ds.Suspects, err = decodeParquet[SuspectRecord](data)
		case "alibi":
			ds.Alibis, err = decodeParquet[AlibiRecord](data)
		case "statement":
			ds.Statements, err = decodeParquet[StatementRecord](data)
		case "evidence":
			ds.Evidence, err = decodeParquet[EvidenceRecord](data)
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("decode %s artifact: %w", table, err)
		}
	}
	return ds, nil
}

func fetchArtifact(ctx context.Context, store storage.ObjectStore, caseID, table string) ([]byte, error) {
	key, err := storage.BuildArtifactPath(caseID, table)
	if err != nil {
		return nil, err
	}
	reader, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s artifact: %w", table, err)
	}
	return data, nil
}
