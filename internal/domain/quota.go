package domain

import (
	"fmt"
	"time"
)

// TimestampLayout renders provider timestamps as "YYYY-MM-DD hh:mm:ss AM/PM".
const TimestampLayout = "2006-01-02 03:04:05 PM"

type QuotaSnapshot struct {
	TabID             string
	FreeUnitType      string
	FreeUnitTypeName  string
	TabName           string
	MeasureUnit       string
	OfferName         string
	Total             float64
	Used              float64
	Remain            float64
	ActualRemain      float64
	EffectiveTime     int64
	ExpireTime        int64
	EffectiveTimeText string
	ExpireTimeText    string
	GroupOrder        string
	IconImage         string
	FreeUnitTypeID    string
	OriginUnit        string
	Details           []QuotaDetail
	CapturedAt        time.Time
}

type QuotaDetail struct {
	InitialAmount           float64
	CurrentAmount           float64
	MeasureUnit             string
	EffectiveTime           int64
	ExpireTime              int64
	ExpireTimeCz            int64
	EffectiveTimeText       string
	ExpireTimeText          string
	OriginType              string
	OfferingName            string
	IsGroup                 bool
	ServiceNumber           string
	ItemCode                string
	RemainingDaysForRenewal int
}

// NewQuotaSnapshot fills the derived timestamp text of the snapshot and of every detail.
func NewQuotaSnapshot(s QuotaSnapshot) QuotaSnapshot {
	s.EffectiveTimeText = FormatEpochMillis(s.EffectiveTime)
	s.ExpireTimeText = FormatEpochMillis(s.ExpireTime)

	details := make([]QuotaDetail, 0, len(s.Details))
	for _, detail := range s.Details {
		details = append(details, NewQuotaDetail(detail))
	}
	s.Details = details

	return s
}

func NewQuotaDetail(d QuotaDetail) QuotaDetail {
	d.EffectiveTimeText = FormatEpochMillis(d.EffectiveTime)
	d.ExpireTimeText = FormatEpochMillis(d.ExpireTime)
	return d
}

func FormatEpochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

// UsedPercent is 0 when the snapshot carries no total.
func (s QuotaSnapshot) UsedPercent() float64 {
	if s.Total <= 0 {
		return 0
	}
	return s.Used / s.Total * 100
}

// DailyAllowance spreads the remaining amount of a detail over the days left until renewal.
func (d QuotaDetail) DailyAllowance() (string, error) {
	return Ratio(d.CurrentAmount, d.RemainingDaysForRenewal)
}

func (s QuotaSnapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	if s.CapturedAt.IsZero() {
		return true
	}

	if maxAge <= 0 {
		return false
	}

	return now.Sub(s.CapturedAt) > maxAge
}

func FormatAmount(amount float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, unit)
}
