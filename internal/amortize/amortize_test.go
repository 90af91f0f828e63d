package amortize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeSchedule(t *testing.T) {
	t.Run("simple interest over one year", func(t *testing.T) {
		// 10,000 at 12% for 12 months: 1% monthly on the principal,
		// 1,200 interest total.
		s := ComputeSchedule(d("10000"), d("12"), 12)

		assert.True(t, s.TotalAmount.Equal(d("11200")), "total = %s", s.TotalAmount)
		assert.True(t, s.MonthlyPayment.Equal(d("11200").Div(d("12"))), "monthly = %s", s.MonthlyPayment)
		assert.Equal(t, "933.33", s.MonthlyPayment.StringFixed(2))
	})

	t.Run("zero rate means no interest", func(t *testing.T) {
		s := ComputeSchedule(d("6000"), d("0"), 6)

		assert.True(t, s.TotalAmount.Equal(d("6000")))
		assert.True(t, s.MonthlyPayment.Equal(d("1000")))
	})

	t.Run("single month term", func(t *testing.T) {
		s := ComputeSchedule(d("1200"), d("10"), 1)

		// One month of interest: 1200 * (10/100/12) = 10.
		assert.True(t, s.TotalAmount.Equal(d("1210")))
		assert.True(t, s.MonthlyPayment.Equal(s.TotalAmount))
	})

	t.Run("total is never below principal and monthly times term recovers total", func(t *testing.T) {
		cases := []struct {
			principal string
			rate      string
			term      int32
		}{
			{"100", "0", 1},
			{"5000", "5.5", 24},
			{"1000000", "100", 360},
			{"0.5", "18", 36},
		}
		for _, tc := range cases {
			s := ComputeSchedule(d(tc.principal), d(tc.rate), tc.term)

			assert.True(t, s.TotalAmount.GreaterThanOrEqual(d(tc.principal)),
				"principal=%s rate=%s term=%d", tc.principal, tc.rate, tc.term)

			recovered := s.MonthlyPayment.Mul(decimal.NewFromInt32(tc.term))
			diff := recovered.Sub(s.TotalAmount).Abs()
			assert.True(t, diff.LessThan(d("0.000001")),
				"monthly*term=%s total=%s", recovered, s.TotalAmount)
		}
	})
}

func TestNextPaymentDate(t *testing.T) {
	disbursed := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("nil when never disbursed", func(t *testing.T) {
		assert.Nil(t, NextPaymentDate(nil, nil))
	})

	t.Run("disbursement date when no payments confirmed", func(t *testing.T) {
		got := NextPaymentDate(nil, &disbursed)

		require.NotNil(t, got)
		assert.Equal(t, disbursed, *got)
	})

	t.Run("one month after the latest confirmed payment", func(t *testing.T) {
		dates := []time.Time{
			time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		}
		got := NextPaymentDate(dates, &disbursed)

		require.NotNil(t, got)
		assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("month arithmetic normalizes instead of clamping", func(t *testing.T) {
		dates := []time.Time{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}
		got := NextPaymentDate(dates, &disbursed)

		// Jan 31 + 1 month lands on Mar 2 in a leap year.
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), *got)
	})
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("whole days round up", func(t *testing.T) {
		target := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 3, DaysUntil(target, now))
	})

	t.Run("exact day boundary", func(t *testing.T) {
		target := now.AddDate(0, 0, 2)
		assert.Equal(t, 2, DaysUntil(target, now))
	})

	t.Run("negative when past", func(t *testing.T) {
		target := now.AddDate(0, 0, -5)
		assert.Equal(t, -5, DaysUntil(target, now))
	})

	t.Run("zero for same instant", func(t *testing.T) {
		assert.Equal(t, 0, DaysUntil(now, now))
	})
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("zero on or before the due date", func(t *testing.T) {
		assert.Equal(t, 0, DaysLate(due, due))
		assert.Equal(t, 0, DaysLate(due, due.AddDate(0, 0, -10)))
	})

	t.Run("full days only", func(t *testing.T) {
		now := due.Add(36 * time.Hour)
		assert.Equal(t, 1, DaysLate(due, now))
	})

	t.Run("sixty four days late", func(t *testing.T) {
		now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 64, DaysLate(due, now))
	})
}

func TestLateFee(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	monthly := d("933.33")

	t.Run("zero before the first full period", func(t *testing.T) {
		now := due.AddDate(0, 0, 29)
		fee := LateFee(monthly, due, now, DefaultFeeRatePercent)
		assert.True(t, fee.IsZero(), "fee = %s", fee)
	})

	t.Run("five percent per thirty day period", func(t *testing.T) {
		// 64 days late spans two full 30-day periods.
		now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		fee := LateFee(monthly, due, now, DefaultFeeRatePercent)

		want := monthly.Mul(d("0.05")).Mul(d("2"))
		assert.True(t, fee.Equal(want), "fee = %s, want %s", fee, want)
		assert.Equal(t, "93.33", fee.StringFixed(2))
	})

	t.Run("partial periods are not prorated", func(t *testing.T) {
		fee30 := LateFee(monthly, due, due.AddDate(0, 0, 30), DefaultFeeRatePercent)
		fee59 := LateFee(monthly, due, due.AddDate(0, 0, 59), DefaultFeeRatePercent)
		assert.True(t, fee30.Equal(fee59))
	})

	t.Run("zero when on time", func(t *testing.T) {
		fee := LateFee(monthly, due, due, DefaultFeeRatePercent)
		assert.True(t, fee.IsZero())
	})
}
