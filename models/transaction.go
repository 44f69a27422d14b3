package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the price-paid extract, in file order.
const (
	ColTransactionID = "Transaction ID"
	ColPrice         = "Price"
	ColTransferDate  = "Date of Transfer"
	ColPostcode      = "Postcode"
	ColPropertyType  = "Property Type"
	ColOldNew        = "Old/New"
	ColDuration      = "Duration"
	ColPAON          = "PAON"
	ColSAON          = "SAON"
	ColStreet        = "Street"
	ColLocality      = "Locality"
	ColTownCity      = "Town/City"
	ColDistrict      = "District"
	ColCounty        = "County"
	ColPPDCategory   = "PPD Category"
	ColRecordStatus  = "Record Status"

	ColAvgPrice = "Avg_Price_by_Property_Type"
	ColAddress  = "Address"
)

// RawColumns is the fixed schema of a raw line and of the tabular file header.
var RawColumns = []string{
	ColTransactionID, ColPrice, ColTransferDate, ColPostcode, ColPropertyType,
	ColOldNew, ColDuration, ColPAON, ColSAON, ColStreet, ColLocality, ColTownCity,
	ColDistrict, ColCounty, ColPPDCategory, ColRecordStatus,
}

// RawFieldCount is the number of fields every raw line must split into.
var RawFieldCount = len(RawColumns)

// AddressColumns are joined, in this order, into the Address column.
var AddressColumns = []string{
	ColPAON, ColSAON, ColStreet, ColLocality, ColTownCity, ColDistrict, ColCounty, ColPostcode,
}

// QuotedColumns have embedded double quotes removed during cleaning.
var QuotedColumns = []string{
	ColPostcode, ColPropertyType, ColOldNew, ColDuration, ColPAON, ColSAON, ColStreet,
	ColLocality, ColTownCity, ColDistrict, ColCounty, ColPPDCategory, ColRecordStatus,
}

// RawRecord is one line of the source file, kept exactly as split.
// Field values still carry whatever quoting the extract used.
type RawRecord struct {
	TransactionID string `csv:"Transaction ID"`
	Price         string `csv:"Price"`
	TransferDate  string `csv:"Date of Transfer"`
	Postcode      string `csv:"Postcode"`
	PropertyType  string `csv:"Property Type"`
	OldNew        string `csv:"Old/New"`
	Duration      string `csv:"Duration"`
	PAON          string `csv:"PAON"`
	SAON          string `csv:"SAON"`
	Street        string `csv:"Street"`
	Locality      string `csv:"Locality"`
	TownCity      string `csv:"Town/City"`
	District      string `csv:"District"`
	County        string `csv:"County"`
	PPDCategory   string `csv:"PPD Category"`
	RecordStatus  string `csv:"Record Status"`
}

// NewRawRecord builds a RawRecord from fields in RawColumns order.
// The caller guarantees len(fields) == RawFieldCount.
func NewRawRecord(fields []string) RawRecord {
	return RawRecord{
		TransactionID: fields[0],
		Price:         fields[1],
		TransferDate:  fields[2],
		Postcode:      fields[3],
		PropertyType:  fields[4],
		OldNew:        fields[5],
		Duration:      fields[6],
		PAON:          fields[7],
		SAON:          fields[8],
		Street:        fields[9],
		Locality:      fields[10],
		TownCity:      fields[11],
		District:      fields[12],
		County:        fields[13],
		PPDCategory:   fields[14],
		RecordStatus:  fields[15],
	}
}

// TabularBatch is a bounded run of valid raw records awaiting a flush.
type TabularBatch struct {
	Records []RawRecord
	limit   int
}

// NewTabularBatch returns an empty batch that is full at limit records.
func NewTabularBatch(limit int) *TabularBatch {
	return &TabularBatch{Records: make([]RawRecord, 0, limit), limit: limit}
}

func (b *TabularBatch) Add(r RawRecord) { b.Records = append(b.Records, r) }
func (b *TabularBatch) Len() int        { return len(b.Records) }
func (b *TabularBatch) Full() bool      { return len(b.Records) >= b.limit }

// Reset empties the batch, keeping its capacity.
func (b *TabularBatch) Reset() { b.Records = b.Records[:0] }

// Transaction is the cleaned, typed record ready for PostgreSQL storage.
type Transaction struct {
	TransactionID string          `csv:"Transaction ID"`
	Price         decimal.Decimal `csv:"Price"`
	TransferDate  time.Time       `csv:"Date of Transfer"`
	Postcode      string          `csv:"Postcode"`
	PropertyType  string          `csv:"Property Type"`
	OldNew        string          `csv:"Old/New"`
	Duration      string          `csv:"Duration"`
	PAON          string          `csv:"PAON"`
	SAON          string          `csv:"SAON"`
	Street        string          `csv:"Street"`
	Locality      string          `csv:"Locality"`
	TownCity      string          `csv:"Town/City"`
	District      string          `csv:"District"`
	County        string          `csv:"County"`
	PPDCategory   string          `csv:"PPD Category"`
	RecordStatus  string          `csv:"Record Status"`
	AvgPrice      decimal.Decimal `csv:"Avg_Price_by_Property_Type"`
	Address       string          `csv:"Address"`
}
