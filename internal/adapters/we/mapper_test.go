package we

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePayload(t *testing.T) RawQuotaPayload {
	t.Helper()

	var payload envelope
	require.NoError(t, json.Unmarshal([]byte(loadFixture(t, "quota_success.json")), &payload))
	return RawQuotaPayload{RetCode: payload.retCode(), Body: payload.Body}
}

// withDetailList swaps the fixture's freeUnitBeanDetailList value for list.
func withDetailList(t *testing.T, fixture, list string) string {
	t.Helper()

	start := strings.Index(fixture, `"freeUnitBeanDetailList": [`)
	require.Positive(t, start)
	end := strings.LastIndex(fixture, "]\n    }\n  ]")
	require.Positive(t, end)

	return fixture[:start] + `"freeUnitBeanDetailList": ` + list + fixture[end+1:]
}

func mapFixtureText(t *testing.T, fixture string) (domain.QuotaSnapshot, error) {
	t.Helper()

	var payload envelope
	require.NoError(t, json.Unmarshal([]byte(fixture), &payload))
	return MapQuota(RawQuotaPayload{RetCode: payload.retCode(), Body: payload.Body})
}

func TestMapQuotaFixture(t *testing.T) {
	t.Parallel()

	snapshot, err := MapQuota(fixturePayload(t))
	require.NoError(t, err)

	assert.Equal(t, "BB", snapshot.TabID)
	assert.Equal(t, "Super 140 GB", snapshot.OfferName)
	assert.Equal(t, "GB", snapshot.MeasureUnit)
	assert.Equal(t, 150.0, snapshot.Total)
	assert.Equal(t, 42.5, snapshot.Used)
	assert.Equal(t, 107.5, snapshot.Remain)
	assert.Equal(t, 107.5, snapshot.ActualRemain)
	assert.Equal(t, "2023-11-14 10:13:20 PM", snapshot.EffectiveTimeText)
	assert.Equal(t, "2023-12-14 10:13:20 PM", snapshot.ExpireTimeText)
	assert.True(t, snapshot.CapturedAt.IsZero())

	require.Len(t, snapshot.Details, 2)
	first := snapshot.Details[0]
	assert.Equal(t, domain.QuotaDetail{
		InitialAmount:           140,
		CurrentAmount:           100,
		MeasureUnit:             "GB",
		EffectiveTime:           1700000000000,
		ExpireTime:              1702592000000,
		ExpireTimeCz:            1702592000000,
		EffectiveTimeText:       "2023-11-14 10:13:20 PM",
		ExpireTimeText:          "2023-12-14 10:13:20 PM",
		OriginType:              "Offer",
		OfferingName:            "Super 140 GB",
		IsGroup:                 false,
		ServiceNumber:           "FBB225551234",
		ItemCode:                "C_140GB",
		RemainingDaysForRenewal: 20,
	}, first)
	assert.True(t, snapshot.Details[1].IsGroup)
	assert.Equal(t, "2023-11-21 08:53:20 PM", snapshot.Details[1].EffectiveTimeText)
}

func TestMapQuotaEmptyBody(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`[]`, `null`} {
		_, err := MapQuota(RawQuotaPayload{RetCode: "0", Body: json.RawMessage(body)})
		require.ErrorIs(t, err, domain.ErrEmptyPayload, "body %s", body)
	}
}

func TestMapQuotaRejectedRetCode(t *testing.T) {
	t.Parallel()

	_, err := MapQuota(RawQuotaPayload{RetCode: "1", ErrorNo: "60301000000000001", Body: json.RawMessage(`null`)})
	require.ErrorIs(t, err, domain.ErrQuotaRejected)
	assert.Contains(t, err.Error(), "60301000000000001")
}

func TestMapQuotaSchemaMismatch(t *testing.T) {
	t.Parallel()

	fixture := loadFixture(t, "quota_success.json")
	nullDetails := withDetailList(t, fixture, "null")
	nullDetailEntry := withDetailList(t, fixture, "[null]")

	tests := []struct {
		name      string
		mutate    func(string) string
		wantField string
	}{
		{
			name:      "missing top-level field",
			mutate:    func(s string) string { return strings.Replace(s, `"iconImage": "internet.png",`, "", 1) },
			wantField: "body[0].iconImage",
		},
		{
			name:      "unknown top-level field",
			mutate:    func(s string) string { return strings.Replace(s, `"tabId": "BB",`, `"tabId": "BB", "promo": true,`, 1) },
			wantField: "body[0].promo",
		},
		{
			name:      "missing detail field",
			mutate:    func(s string) string { return strings.Replace(s, `"itemCode": "C_ADDON_10GB",`, "", 1) },
			wantField: "body[0].freeUnitBeanDetailList[1].itemCode",
		},
		{
			name:      "wrong type",
			mutate:    func(s string) string { return strings.Replace(s, `"total": 150.0,`, `"total": "lots",`, 1) },
			wantField: "body[0].total",
		},
		{
			name:      "null amount",
			mutate:    func(s string) string { return strings.Replace(s, `"total": 150.0,`, `"total": null,`, 1) },
			wantField: "body[0].total",
		},
		{
			name:      "null timestamp",
			mutate:    func(s string) string { return strings.Replace(s, `"effectiveTime": 1700000000000,`, `"effectiveTime": null,`, 1) },
			wantField: "body[0].effectiveTime",
		},
		{
			name:      "null detail list",
			mutate:    func(string) string { return nullDetails },
			wantField: "body[0].freeUnitBeanDetailList",
		},
		{
			name:      "null detail entry",
			mutate:    func(string) string { return nullDetailEntry },
			wantField: "body[0].freeUnitBeanDetailList[0].initialAmount",
		},
		{
			name:      "null detail flag",
			mutate:    func(s string) string { return strings.Replace(s, `"isGroup": true,`, `"isGroup": null,`, 1) },
			wantField: "body[0].freeUnitBeanDetailList[1].isGroup",
		},
		{
			name:      "null renewal days",
			mutate:    func(s string) string { return strings.Replace(s, `"remainingDaysForRenewal": 20`, `"remainingDaysForRenewal": null`, 1) },
			wantField: "body[0].freeUnitBeanDetailList[0].remainingDaysForRenewal",
		},
		{
			name:      "body is not a list",
			mutate:    func(s string) string { return `{"header":{"retCode":"0"},"body":{"tabId":"BB"}}` },
			wantField: "body",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := mapFixtureText(t, tc.mutate(fixture))
			require.ErrorIs(t, err, domain.ErrSchemaMismatch)

			var mappingErr *domain.MappingError
			require.ErrorAs(t, err, &mappingErr)
			assert.Equal(t, tc.wantField, mappingErr.Field)
		})
	}
}

func TestMapQuotaDetailCountMatchesPayload(t *testing.T) {
	t.Parallel()

	snapshot, err := mapFixtureText(t, withDetailList(t, loadFixture(t, "quota_success.json"), "[]"))
	require.NoError(t, err)
	assert.Empty(t, snapshot.Details)
}

func TestMapQuotaAcceptsNullText(t *testing.T) {
	t.Parallel()

	fixture := strings.Replace(loadFixture(t, "quota_success.json"), `"iconImage": "internet.png",`, `"iconImage": null,`, 1)

	snapshot, err := mapFixtureText(t, fixture)
	require.NoError(t, err)
	assert.Empty(t, snapshot.IconImage)
	assert.Equal(t, 150.0, snapshot.Total)
	require.Len(t, snapshot.Details, 2)
}

func TestFlexStringAcceptsStringsAndNumbers(t *testing.T) {
	t.Parallel()

	var values struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":42,"c":null}`), &values))
	assert.Equal(t, flexString("x"), values.A)
	assert.Equal(t, flexString("42"), values.B)
	assert.Equal(t, flexString(""), values.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &values))
}
