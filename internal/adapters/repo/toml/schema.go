package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID       string         `toml:"id"`
	Name     string         `toml:"name"`
	Metadata metadataSchema `toml:"metadata"`
	Auth     authSchema     `toml:"auth"`
	Quota    *quotaSchema   `toml:"quota,omitempty"`
}

type metadataSchema struct {
	Provider     string `toml:"provider"`
	SecretRef    string `toml:"secret_ref"`
	SubscriberID string `toml:"subscriber_id,omitempty"`
}

type authSchema struct {
	Method    string `toml:"method"`
	SecretRef string `toml:"secret_ref"`
}

type quotaSchema struct {
	TabID            string              `toml:"tab_id"`
	FreeUnitType     string              `toml:"free_unit_type"`
	FreeUnitTypeName string              `toml:"free_unit_type_name"`
	TabName          string              `toml:"tab_name"`
	MeasureUnit      string              `toml:"measure_unit"`
	OfferName        string              `toml:"offer_name"`
	Total            float64             `toml:"total"`
	Used             float64             `toml:"used"`
	Remain           float64             `toml:"remain"`
	ActualRemain     float64             `toml:"actual_remain"`
	EffectiveTime    int64               `toml:"effective_time_ms"`
	ExpireTime       int64               `toml:"expire_time_ms"`
	GroupOrder       string              `toml:"group_order"`
	IconImage        string              `toml:"icon_image"`
	FreeUnitTypeID   string              `toml:"free_unit_type_id"`
	OriginUnit       string              `toml:"origin_unit"`
	CapturedAt       string              `toml:"captured_at"`
	Details          []quotaDetailSchema `toml:"details,omitempty"`
}

type quotaDetailSchema struct {
	InitialAmount           float64 `toml:"initial_amount"`
	CurrentAmount           float64 `toml:"current_amount"`
	MeasureUnit             string  `toml:"measure_unit"`
	EffectiveTime           int64   `toml:"effective_time_ms"`
	ExpireTime              int64   `toml:"expire_time_ms"`
	ExpireTimeCz            int64   `toml:"expire_time_cz_ms"`
	OriginType              string  `toml:"origin_type"`
	OfferingName            string  `toml:"offering_name"`
	IsGroup                 bool    `toml:"is_group"`
	ServiceNumber           string  `toml:"service_number"`
	ItemCode                string  `toml:"item_code"`
	RemainingDaysForRenewal int     `toml:"remaining_days_for_renewal"`
}
