package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"moex-scraper/internal/moex"
	"time"
)

// document is the persisted shape of a record, identical for every backend.
type document struct {
	Date           string  `json:"date" bson:"date" parquet:"date"`
	PriceAtOpening float64 `json:"price_at_opening" bson:"price_at_opening" parquet:"price_at_opening"`
	MaxPrice       float64 `json:"max_price" bson:"max_price" parquet:"max_price"`
	MinPrice       float64 `json:"min_price" bson:"min_price" parquet:"min_price"`
	PriceAtClosure float64 `json:"price_at_closure" bson:"price_at_closure" parquet:"price_at_closure"`
	VolumeOfTrade  float64 `json:"volume_of_trade" bson:"volume_of_trade" parquet:"volume_of_trade"`
	Capitalization float64 `json:"capitalization" bson:"capitalization" parquet:"capitalization"`
}

func toDocument(r moex.IndexRecord) document {
	return document{
		Date:           r.Date.Format(moex.DateLayout),
		PriceAtOpening: r.PriceAtOpening,
		MaxPrice:       r.MaxPrice,
		MinPrice:       r.MinPrice,
		PriceAtClosure: r.PriceAtClosure,
		VolumeOfTrade:  r.VolumeOfTrade,
		Capitalization: r.Capitalization,
	}
}

func toDocuments(records []moex.IndexRecord) []document {
	docs := make([]document, len(records))
	for i, r := range records {
		docs[i] = toDocument(r)
	}
	return docs
}

func (d document) record() (moex.IndexRecord, error) {
	date, err := time.Parse(moex.DateLayout, d.Date)
	if err != nil {
		return moex.IndexRecord{}, fmt.Errorf("date %q: %w", d.Date, err)
	}
	return moex.IndexRecord{
		Date:           date,
		PriceAtOpening: d.PriceAtOpening,
		MaxPrice:       d.MaxPrice,
		MinPrice:       d.MinPrice,
		PriceAtClosure: d.PriceAtClosure,
		VolumeOfTrade:  d.VolumeOfTrade,
		Capitalization: d.Capitalization,
	}, nil
}

// fromDocuments converts stored documents back into records, any bad
// document makes the whole location corrupt.
func fromDocuments(location string, docs []document) ([]moex.IndexRecord, error) {
	records := make([]moex.IndexRecord, len(docs))
	for i, d := range docs {
		r, err := d.record()
		if err != nil {
			return nil, CorruptDataError{Location: location, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		records[i] = r
	}
	return records, nil
}

// decodeDocument unmarshals one json object and checks that every column is present.
func decodeDocument(raw json.RawMessage) (document, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(raw, &fields)
	if err != nil {
		return document{}, err
	}
	if fields == nil {
		return document{}, fmt.Errorf("expected an object, got %s", raw)
	}
	for _, column := range moex.Columns {
		value, ok := fields[column]
		if !ok {
			return document{}, fmt.Errorf("missing field %q", column)
		}
		err = checkFieldType(column, value)
		if err != nil {
			return document{}, err
		}
	}

	var doc document
	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return document{}, err
	}
	return doc, nil
}

// checkFieldType requires the date to be a json string and every other
// column to be a json number, null included.
func checkFieldType(column string, value json.RawMessage) error {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return fmt.Errorf("field %q: empty value", column)
	}
	first := value[0]
	if column == moex.ColumnDate {
		if first != '"' {
			return fmt.Errorf("field %q: expected a string, got %s", column, value)
		}
		return nil
	}
	if first != '-' && (first < '0' || first > '9') {
		return fmt.Errorf("field %q: expected a number, got %s", column, value)
	}
	return nil
}

// decodeDocuments parses a json array of record objects.
func decodeDocuments(location string, data []byte) ([]document, error) {
	var raws []json.RawMessage
	err := json.Unmarshal(data, &raws)
	if err != nil {
		return nil, CorruptDataError{Location: location, Err: err}
	}
	if raws == nil {
		return nil, CorruptDataError{Location: location, Err: fmt.Errorf("expected an array")}
	}

	docs := make([]document, len(raws))
	for i, raw := range raws {
		docs[i], err = decodeDocument(raw)
		if err != nil {
			return nil, CorruptDataError{Location: location, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return docs, nil
}
