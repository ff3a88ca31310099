// Package cogs records cost-of-goods-sold exactly once per item and serves
// financial-year aggregations. The fiscal year runs July 1 - June 30 and is
// named by its ending calendar year.
package cogs

import (
	"errors"
	"time"
)

// Record is one cost-of-goods-sold entry. Cost is snapshotted from the item
// at sale time; later cost edits never change recorded history.
type Record struct {
	ItemID        int64
	CostCents     int64
	SoldAt        time.Time
	SoldYear      int
	SoldMonth     int
	FiscalMonth   int
	FinancialYear int
	CreatedAt     time.Time
}

// monthNames is fixed to the fiscal calendar: index 0 = July ... 11 = June.
var monthNames = [12]string{
	"July", "August", "September", "October", "November", "December",
	"January", "February", "March", "April", "May", "June",
}

// FiscalMonth maps a calendar month to its fiscal position: July=1 ... June=12.
func FiscalMonth(month int) int {
	if month >= 7 {
		return month - 6
	}
	return month + 6
}

// FinancialYear names the fiscal year a calendar date falls in.
func FinancialYear(year, month int) int {
	if month >= 7 {
		return year + 1
	}
	return year
}

// MonthName returns the fiscal month label for a 1-based fiscal month.
func MonthName(fiscalMonth int) string {
	if fiscalMonth < 1 || fiscalMonth > 12 {
		return ""
	}
	return monthNames[fiscalMonth-1]
}

// NewRecord derives the sale buckets for an item sold at soldAt.
func NewRecord(itemID, costCents int64, soldAt time.Time) Record {
	year, month := soldAt.Year(), int(soldAt.Month())
	return Record{
		ItemID:        itemID,
		CostCents:     costCents,
		SoldAt:        soldAt,
		SoldYear:      year,
		SoldMonth:     month,
		FiscalMonth:   FiscalMonth(month),
		FinancialYear: FinancialYear(year, month),
	}
}

// YearSummary aggregates one financial year.
type YearSummary struct {
	FinancialYear int   `json:"financialYear"`
	Items         int   `json:"items"`
	TotalCost     int64 `json:"totalCost"`
}

// MonthBreakdown aggregates one fiscal month of one financial year.
type MonthBreakdown struct {
	FinancialYear int    `json:"financialYear"`
	FiscalMonth   int    `json:"fiscalMonth"`
	MonthName     string `json:"monthName"`
	Items         int    `json:"items"`
	TotalCost     int64  `json:"totalCost"`
}

// ErrRecordExists is returned by the repository when an item already has a
// record. The service treats it as a no-op.
var ErrRecordExists = errors.New("cogs: record already exists")
