package cogs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFiscalMonth(t *testing.T) {
	require.Equal(t, 1, FiscalMonth(7))
	require.Equal(t, 6, FiscalMonth(12))
	require.Equal(t, 7, FiscalMonth(1))
	require.Equal(t, 12, FiscalMonth(6))
}

func TestFinancialYear(t *testing.T) {
	// July 2024 opens FY2025; June 2024 closes FY2024
	require.Equal(t, 2025, FinancialYear(2024, 7))
	require.Equal(t, 2024, FinancialYear(2024, 6))
	require.Equal(t, 2025, FinancialYear(2024, 12))
	require.Equal(t, 2025, FinancialYear(2025, 1))
}

func TestMonthName(t *testing.T) {
	require.Equal(t, "July", MonthName(1))
	require.Equal(t, "December", MonthName(6))
	require.Equal(t, "January", MonthName(7))
	require.Equal(t, "June", MonthName(12))
	require.Equal(t, "", MonthName(0))
	require.Equal(t, "", MonthName(13))
}

func TestNewRecord(t *testing.T) {
	soldAt := time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
	rec := NewRecord(17, 499, soldAt)
	require.EqualValues(t, 17, rec.ItemID)
	require.EqualValues(t, 499, rec.CostCents)
	require.Equal(t, 2026, rec.SoldYear)
	require.Equal(t, 2, rec.SoldMonth)
	require.Equal(t, 8, rec.FiscalMonth)
	require.Equal(t, 2026, rec.FinancialYear)
}
