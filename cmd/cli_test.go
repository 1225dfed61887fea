package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	loginSuccessBody  = `{"header":{"retCode":"0","retMsg":"Success"},"body":{"utoken":"utoken-abc123","token":"csrf-xyz789","customer":{"custId":"CUST-1"},"subscriber":{"subscriberId":"SUB-5550001","servNumber":"FBB225551234"}}}`
	loginInvalidBody  = `{"header":{"retCode":"1","retMsg":"Failure","errorNo":"60301023110815001"},"body":null}`
	quotaSuccessBody  = `{"header":{"retCode":"0","retMsg":"Success"},"body":[{"tabId":"BB","freeUnitType":"C_Data","freeUnitTypeName":"Data","tabName":"Internet","measureUnit":"GB","offerName":"Super 140 GB","total":140.0,"used":35.0,"remain":105.0,"actualRemain":105.0,"effectiveTime":1700000000000,"expireTime":1702592000000,"groupOrder":"1","iconImage":"internet.png","freeUnitTypeId":"3","originUnit":"MB","freeUnitBeanDetailList":[{"initialAmount":140.0,"currentAmount":105.0,"measureUnit":"GB","effectiveTime":1700000000000,"expireTime":1702592000000,"expireTimeCz":1702592000000,"originType":"Offer","offeringName":"Super 140 GB","isGroup":false,"serviceNumber":"FBB225551234","itemCode":"C_140GB","remainingDaysForRenewal":21}]}]}`
	quotaRejectedBody = `{"header":{"retCode":"1","retMsg":"session expired"},"body":null}`
)

type fakePortal struct {
	server       *httptest.Server
	logins       atomic.Int32
	quotaQueries atomic.Int32

	mu        sync.Mutex
	loginBody string
	quotaBody string
	delay     time.Duration
}

func (p *fakePortal) set(fn func(p *fakePortal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePortal) responses() (string, string, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginBody, p.quotaBody, p.delay
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()

	portal := &fakePortal{loginBody: loginSuccessBody, quotaBody: quotaSuccessBody}
	portal.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		loginBody, quotaBody, delay := portal.responses()
		time.Sleep(delay)

		switch r.URL.Path {
		case "/v1/auth/userAuthenticate":
			portal.logins.Add(1)
			_, _ = fmt.Fprint(w, loginBody)
		case "/cz/cbs/bb/queryFreeUnit":
			portal.quotaQueries.Add(1)
			assert.Equal(t, "csrf-xyz789", r.Header.Get("csrftoken"))
			_, _ = fmt.Fprint(w, quotaBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(portal.server.Close)
	t.Setenv("WQ_API_BASE_URL", portal.server.URL)

	return portal
}

func TestLoginStoresAccountAndCredentials(t *testing.T) {
	portal := newFakePortal(t)
	home := t.TempDir()

	stdout, _, err := executeCLIWithInput(t, home, "s3cret\n", "login", "0225551234", "--name", "Home")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signed in as Home (225551234)")
	assert.Equal(t, int32(1), portal.logins.Load())

	accounts, err := os.ReadFile(filepath.Join(home, ".we-quota", "accounts.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(accounts), `secret_ref = "we://225551234/credentials"`)
	assert.NotContains(t, string(accounts), "s3cret")

	secret, err := os.ReadFile(filepath.Join(home, ".we-quota", "secrets", "we", "225551234", "credentials"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"225551234","password":"s3cret"}`, string(secret))
}

func TestLoginPromptsForNumberAndPassword(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()

	stdout, stderr, err := executeCLIWithInput(t, home, "0225551234\ns3cret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Service number: ")
	assert.Contains(t, stderr, "Password: ")
	assert.Contains(t, stdout, "(225551234)")
}

func TestLoginRejectsInvalidCredentialsWithoutStoringThem(t *testing.T) {
	portal := newFakePortal(t)
	portal.set(func(p *fakePortal) { p.loginBody = loginInvalidBody })
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "login", "--number", "0225551234", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service number or password is incorrect")

	_, statErr := os.Stat(filepath.Join(home, ".we-quota", "secrets", "we", "225551234", "credentials"))
	assert.True(t, os.IsNotExist(statErr))

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestLoginRequiresPassword(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()

	_, _, err := executeCLIWithInput(t, home, "\n", "login", "0225551234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service number and password are required")
}

func TestQuotaCommandFetchesAndRendersQuota(t *testing.T) {
	portal := newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)

	stdout, stderr, err := executeCLI(t, home, "quota")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Fetching quota")
	assert.Contains(t, stdout, "accounts: 1")
	assert.Contains(t, stdout, "offer: Super 140 GB")
	assert.Contains(t, stdout, "Total remaining:")
	assert.Contains(t, stdout, "105.00 GB of 140.00 GB")
	assert.Contains(t, stdout, "75% left")
	assert.Contains(t, stdout, "Number of Days until renewal: 21")
	assert.Contains(t, stdout, "Daily allowance: 5.00 GB per day")
	assert.Equal(t, int32(1), portal.quotaQueries.Load())
}

func TestQuotaCommandJSONOutput(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)

	stdout, stderr, err := executeCLI(t, home, "quota", "--account", "0225551234", "--json")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Fetching quota")
	require.True(t, json.Valid([]byte(stdout)))

	var statuses []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &statuses))
	require.Len(t, statuses, 1)
	quota, ok := statuses[0]["Quota"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 105.0, quota["Remain"])
	assert.Equal(t, true, statuses[0]["SignedIn"])
}

func TestQuotaCommandReportsRejectedQuery(t *testing.T) {
	portal := newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)
	portal.set(func(p *fakePortal) { p.quotaBody = quotaRejectedBody })

	_, _, err := executeCLI(t, home, "quota", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota query rejected")
	assert.Contains(t, err.Error(), "wq login")
}

func TestQuotaCommandRequiresSignIn(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()
	require.NoError(t, writeSignedOutAccountFixture(home))

	stdout, _, err := executeCLI(t, home, "quota", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
	assert.Contains(t, err.Error(), "wq login")
	assert.Contains(t, stdout, `"SignedIn": false`)
}

func TestQuotaCommandUnknownAccount(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "quota", "--account", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestStatusRendersSavedSnapshotWithoutNetwork(t *testing.T) {
	portal := newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)

	_, _, err := executeCLI(t, home, "quota", "--json")
	require.NoError(t, err)
	queries := portal.quotaQueries.Load()

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "105.00 GB of 140.00 GB")
	assert.NotContains(t, stdout, "[stale]")
	assert.Equal(t, queries, portal.quotaQueries.Load())
}

func TestStatusMarksOldSnapshotAsStale(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)

	_, _, err := executeCLI(t, home, "quota", "--json")
	require.NoError(t, err)

	t.Setenv("WQ_STATUS_STALE_AFTER", "1ns")
	stdout, _, err := executeCLI(t, home, "status", "--account", "225551234")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[stale]")
}

func TestStatusWithoutSnapshot(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeSignedOutAccountFixture(home))

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Office (225559876)")
	assert.Contains(t, stdout, "quota: n/a")
	assert.Contains(t, stdout, "signed out")
}

func TestStatusJSONOutput(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeSignedOutAccountFixture(home))

	stdout, _, err := executeCLI(t, home, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"ID\": \"225559876\"")
}

func TestLogoutRemovesAccountAndCredentials(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()
	signIn(t, home)

	stdout, _, err := executeCLI(t, home, "logout", "0225551234")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signed out 225551234")

	_, statErr := os.Stat(filepath.Join(home, ".we-quota", "secrets", "we", "225551234", "credentials"))
	assert.True(t, os.IsNotExist(statErr))

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "225551234")
}

func TestLogoutUnknownAccount(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "logout", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestAccountListShowsConfiguredAccounts(t *testing.T) {
	newFakePortal(t)
	home := t.TempDir()
	require.NoError(t, writeSignedOutAccountFixture(home))
	signIn(t, home)

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "225551234\tHome\tsigned in\tnever")
	assert.Contains(t, stdout, "225559876\tOffice\tsigned out\tnever")

	_, _, err = executeCLI(t, home, "quota", "--account", "225551234", "--json")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "225551234\tHome\tsigned in\tnever")
}

func TestWatchQuitsOnKeypress(t *testing.T) {
	portal := newFakePortal(t)
	portal.set(func(p *fakePortal) { p.delay = 50 * time.Millisecond })
	home := t.TempDir()
	signIn(t, home)

	stdout, _, err := executeCLIWithInput(t, home, "q", "watch", "--interval", "1h")
	require.NoError(t, err)
	assert.Contains(t, stdout, "WE Quota")
}

func TestInvalidLogLevelFails(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "status", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInvalidBaseURLFailsEveryCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WQ_API_BASE_URL", "://bad")

	_, _, err := executeCLI(t, home, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wire WE client")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(stdout))
}

func TestMalformedConfigOnlyFailsCommandsThatNeedIt(t *testing.T) {
	home := t.TempDir()
	configDir := filepath.Join(home, ".we-quota")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("not = [toml\n"), 0o600))

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(stdout))

	stdout, _, err = executeCLI(t, home, "quota", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--account")

	_, _, err = executeCLI(t, home, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestUnknownCommandFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home string, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("WQ_SECRETS_BACKEND", "file")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func signIn(t *testing.T, home string) {
	t.Helper()

	_, _, err := executeCLI(t, home, "login", "--number", "0225551234", "--password", "s3cret", "--name", "Home")
	require.NoError(t, err)
}

func writeSignedOutAccountFixture(home string) error {
	configDir := filepath.Join(home, ".we-quota")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = "225559876"
name = "Office"

[accounts.metadata]
provider = "we"
secret_ref = ""

[accounts.auth]
method = ""
secret_ref = ""
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o600)
}
