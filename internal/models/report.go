package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one row of a top-categories report.
type CategoryTotal struct {
	CategoryID  int             `json:"category_id"`
	Name        string          `json:"name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// MonthTotal is one month of a yearly summary.
type MonthTotal struct {
	Month       int             `json:"month"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

// Page is a result slice bundled with pagination metadata.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Period selects the calendar window of the top-categories history.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	PeriodAll     Period = "all"
)

// ParsePeriod accepts month, quarter, year or all. An empty string means all.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodAll, nil
	case PeriodMonth, PeriodQuarter, PeriodYear, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q: expected month, quarter, year or all", s)
}

// Range returns the calendar month, quarter or year containing today. PeriodAll is unbounded.
func (p Period) Range(today Date) DateRange {
	var from, to Date
	switch p {
	case PeriodMonth:
		from = NewDate(today.Year(), today.Month(), 1)
		to = Date{from.AddDate(0, 1, -1)}
	case PeriodQuarter:
		first := time.Month((int(today.Month())-1)/3*3 + 1)
		from = NewDate(today.Year(), first, 1)
		to = Date{from.AddDate(0, 3, -1)}
	case PeriodYear:
		from = NewDate(today.Year(), time.January, 1)
		to = NewDate(today.Year(), time.December, 31)
	default:
		return DateRange{}
	}
	return DateRange{From: &from, To: &to}
}
