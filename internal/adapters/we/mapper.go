package we

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/bnema/we-quota-cli/internal/domain"
)

var (
	errMissingField = errors.New("field is missing")
	errNullField    = errors.New("field is null")
	errUnknownField = errors.New("field is not part of the schema")
)

var jsonNull = []byte("null")

type quotaDTO struct {
	TabID                  flexString        `json:"tabId"`
	FreeUnitType           flexString        `json:"freeUnitType"`
	FreeUnitTypeName       flexString        `json:"freeUnitTypeName"`
	TabName                flexString        `json:"tabName"`
	MeasureUnit            flexString        `json:"measureUnit"`
	OfferName              flexString        `json:"offerName"`
	Total                  float64           `json:"total"`
	Used                   float64           `json:"used"`
	Remain                 float64           `json:"remain"`
	ActualRemain           float64           `json:"actualRemain"`
	EffectiveTime          int64             `json:"effectiveTime"`
	ExpireTime             int64             `json:"expireTime"`
	GroupOrder             flexString        `json:"groupOrder"`
	IconImage              flexString        `json:"iconImage"`
	FreeUnitTypeID         flexString        `json:"freeUnitTypeId"`
	OriginUnit             flexString        `json:"originUnit"`
	FreeUnitBeanDetailList []json.RawMessage `json:"freeUnitBeanDetailList"`
}

type quotaDetailDTO struct {
	InitialAmount           float64    `json:"initialAmount"`
	CurrentAmount           float64    `json:"currentAmount"`
	MeasureUnit             flexString `json:"measureUnit"`
	EffectiveTime           int64      `json:"effectiveTime"`
	ExpireTime              int64      `json:"expireTime"`
	ExpireTimeCz            int64      `json:"expireTimeCz"`
	OriginType              flexString `json:"originType"`
	OfferingName            flexString `json:"offeringName"`
	IsGroup                 bool       `json:"isGroup"`
	ServiceNumber           flexString `json:"serviceNumber"`
	ItemCode                flexString `json:"itemCode"`
	RemainingDaysForRenewal int        `json:"remainingDaysForRenewal"`
}

var (
	quotaFields       = jsonFields(reflect.TypeOf(quotaDTO{}))
	quotaDetailFields = jsonFields(reflect.TypeOf(quotaDetailDTO{}))
)

// MapQuota converts the first entry of the payload body into a snapshot.
// Every field of the schema must be present and no other field may appear.
// Only text fields may be null; a null amount, timestamp, flag or detail
// list is a schema mismatch.
func MapQuota(payload RawQuotaPayload) (domain.QuotaSnapshot, error) {
	if payload.RetCode != "" && payload.RetCode != "0" {
		return domain.QuotaSnapshot{}, fmt.Errorf("%w: retCode %s errorNo %s", domain.ErrQuotaRejected, payload.RetCode, payload.ErrorNo)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(payload.Body, &entries); err != nil {
		return domain.QuotaSnapshot{}, schemaMismatchFromDecode("body", err)
	}
	if len(entries) == 0 {
		return domain.QuotaSnapshot{}, &domain.MappingError{Kind: domain.MappingEmptyPayload}
	}

	var quota quotaDTO
	if err := decodeStrict(entries[0], "body[0]", quotaFields, &quota); err != nil {
		return domain.QuotaSnapshot{}, err
	}

	details := make([]domain.QuotaDetail, 0, len(quota.FreeUnitBeanDetailList))
	for i, raw := range quota.FreeUnitBeanDetailList {
		var detail quotaDetailDTO
		path := fmt.Sprintf("body[0].freeUnitBeanDetailList[%d]", i)
		if err := decodeStrict(raw, path, quotaDetailFields, &detail); err != nil {
			return domain.QuotaSnapshot{}, err
		}
		details = append(details, detail.toDomain())
	}

	return domain.NewQuotaSnapshot(domain.QuotaSnapshot{
		TabID:            string(quota.TabID),
		FreeUnitType:     string(quota.FreeUnitType),
		FreeUnitTypeName: string(quota.FreeUnitTypeName),
		TabName:          string(quota.TabName),
		MeasureUnit:      string(quota.MeasureUnit),
		OfferName:        string(quota.OfferName),
		Total:            quota.Total,
		Used:             quota.Used,
		Remain:           quota.Remain,
		ActualRemain:     quota.ActualRemain,
		EffectiveTime:    quota.EffectiveTime,
		ExpireTime:       quota.ExpireTime,
		GroupOrder:       string(quota.GroupOrder),
		IconImage:        string(quota.IconImage),
		FreeUnitTypeID:   string(quota.FreeUnitTypeID),
		OriginUnit:       string(quota.OriginUnit),
		Details:          details,
	}), nil
}

func (d quotaDetailDTO) toDomain() domain.QuotaDetail {
	return domain.QuotaDetail{
		InitialAmount:           d.InitialAmount,
		CurrentAmount:           d.CurrentAmount,
		MeasureUnit:             string(d.MeasureUnit),
		EffectiveTime:           d.EffectiveTime,
		ExpireTime:              d.ExpireTime,
		ExpireTimeCz:            d.ExpireTimeCz,
		OriginType:              string(d.OriginType),
		OfferingName:            string(d.OfferingName),
		IsGroup:                 d.IsGroup,
		ServiceNumber:           string(d.ServiceNumber),
		ItemCode:                string(d.ItemCode),
		RemainingDaysForRenewal: d.RemainingDaysForRenewal,
	}
}

// schemaField is one JSON key of a DTO. Text fields decode through
// flexString, which reads null as an empty string.
type schemaField struct {
	name     string
	nullable bool
}

func decodeStrict(raw json.RawMessage, path string, fields []schemaField, dst any) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return schemaMismatchFromDecode(path, err)
	}

	allowed := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		allowed[field.name] = struct{}{}

		value, ok := object[field.name]
		if !ok {
			return schemaMismatch(path+"."+field.name, errMissingField)
		}
		if !field.nullable && bytes.Equal(bytes.TrimSpace(value), jsonNull) {
			return schemaMismatch(path+"."+field.name, errNullField)
		}
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		if _, ok := allowed[key]; !ok {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		return schemaMismatch(path+"."+keys[0], errUnknownField)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return schemaMismatchFromDecode(path, err)
	}

	return nil
}

var flexStringType = reflect.TypeOf(flexString(""))

func jsonFields(t reflect.Type) []schemaField {
	fields := make([]schemaField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, schemaField{name: name, nullable: field.Type == flexStringType})
	}
	return fields
}

func schemaMismatch(field string, err error) *domain.MappingError {
	return &domain.MappingError{Kind: domain.MappingSchemaMismatch, Field: field, Err: err}
}

func schemaMismatchFromDecode(path string, err error) *domain.MappingError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return schemaMismatch(path+"."+typeErr.Field, err)
	}
	return schemaMismatch(path, err)
}
