package toml

import (
	"cmp"
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
)

func newAccountSchema(account domain.Account) accountSchema {
	entry := accountSchema{
		ID:   string(account.ID),
		Name: account.Name,
		Metadata: metadataSchema{
			Provider:     account.Metadata.Provider,
			SecretRef:    account.Metadata.SecretRef,
			SubscriberID: account.Metadata.SubscriberID,
		},
		Auth: authSchema{
			Method:    string(account.Auth.Method),
			SecretRef: account.Auth.SecretRef,
		},
	}
	if account.Quota != nil {
		entry.Quota = newQuotaSchema(*account.Quota)
	}

	return entry
}

// account fills an empty secret ref from its sibling so files written with
// a single ref still resolve credentials.
func (a accountSchema) account() domain.Account {
	account := domain.Account{
		ID:   domain.AccountID(a.ID),
		Name: a.Name,
		Metadata: domain.AccountMetadata{
			Provider:     a.Metadata.Provider,
			SecretRef:    cmp.Or(a.Metadata.SecretRef, a.Auth.SecretRef),
			SubscriberID: a.Metadata.SubscriberID,
		},
		Auth: domain.Auth{
			Method:    domain.AuthMethod(a.Auth.Method),
			SecretRef: cmp.Or(a.Auth.SecretRef, a.Metadata.SecretRef),
		},
	}
	if a.Quota != nil {
		quota := a.Quota.snapshot()
		account.Quota = &quota
	}

	return account
}

func newQuotaSchema(snapshot domain.QuotaSnapshot) *quotaSchema {
	entry := &quotaSchema{
		TabID:            snapshot.TabID,
		FreeUnitType:     snapshot.FreeUnitType,
		FreeUnitTypeName: snapshot.FreeUnitTypeName,
		TabName:          snapshot.TabName,
		MeasureUnit:      snapshot.MeasureUnit,
		OfferName:        snapshot.OfferName,
		Total:            snapshot.Total,
		Used:             snapshot.Used,
		Remain:           snapshot.Remain,
		ActualRemain:     snapshot.ActualRemain,
		EffectiveTime:    snapshot.EffectiveTime,
		ExpireTime:       snapshot.ExpireTime,
		GroupOrder:       snapshot.GroupOrder,
		IconImage:        snapshot.IconImage,
		FreeUnitTypeID:   snapshot.FreeUnitTypeID,
		OriginUnit:       snapshot.OriginUnit,
		Details:          make([]quotaDetailSchema, len(snapshot.Details)),
	}
	if !snapshot.CapturedAt.IsZero() {
		entry.CapturedAt = snapshot.CapturedAt.Format(time.RFC3339)
	}
	for i, detail := range snapshot.Details {
		entry.Details[i] = quotaDetailSchema{
			InitialAmount:           detail.InitialAmount,
			CurrentAmount:           detail.CurrentAmount,
			MeasureUnit:             detail.MeasureUnit,
			EffectiveTime:           detail.EffectiveTime,
			ExpireTime:              detail.ExpireTime,
			ExpireTimeCz:            detail.ExpireTimeCz,
			OriginType:              detail.OriginType,
			OfferingName:            detail.OfferingName,
			IsGroup:                 detail.IsGroup,
			ServiceNumber:           detail.ServiceNumber,
			ItemCode:                detail.ItemCode,
			RemainingDaysForRenewal: detail.RemainingDaysForRenewal,
		}
	}

	return entry
}

// snapshot goes back through the domain constructor; formatted timestamps
// are derived on load and never stored.
func (q quotaSchema) snapshot() domain.QuotaSnapshot {
	details := make([]domain.QuotaDetail, len(q.Details))
	for i, detail := range q.Details {
		details[i] = domain.QuotaDetail{
			InitialAmount:           detail.InitialAmount,
			CurrentAmount:           detail.CurrentAmount,
			MeasureUnit:             detail.MeasureUnit,
			EffectiveTime:           detail.EffectiveTime,
			ExpireTime:              detail.ExpireTime,
			ExpireTimeCz:            detail.ExpireTimeCz,
			OriginType:              detail.OriginType,
			OfferingName:            detail.OfferingName,
			IsGroup:                 detail.IsGroup,
			ServiceNumber:           detail.ServiceNumber,
			ItemCode:                detail.ItemCode,
			RemainingDaysForRenewal: detail.RemainingDaysForRenewal,
		}
	}

	snapshot := domain.NewQuotaSnapshot(domain.QuotaSnapshot{
		TabID:            q.TabID,
		FreeUnitType:     q.FreeUnitType,
		FreeUnitTypeName: q.FreeUnitTypeName,
		TabName:          q.TabName,
		MeasureUnit:      q.MeasureUnit,
		OfferName:        q.OfferName,
		Total:            q.Total,
		Used:             q.Used,
		Remain:           q.Remain,
		ActualRemain:     q.ActualRemain,
		EffectiveTime:    q.EffectiveTime,
		ExpireTime:       q.ExpireTime,
		GroupOrder:       q.GroupOrder,
		IconImage:        q.IconImage,
		FreeUnitTypeID:   q.FreeUnitTypeID,
		OriginUnit:       q.OriginUnit,
		Details:          details,
	})
	if captured, err := time.Parse(time.RFC3339, q.CapturedAt); err == nil {
		snapshot.CapturedAt = captured
	}

	return snapshot
}
