package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// ClockLayout renders wall-clock times as "hh:mm:ss AM".
const ClockLayout = "03:04:05 PM"

const meterWidth = 24

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(statuses []application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("WE Quota"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts signed in. Run `wq login` to add one."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	title := s.account.Render(accountTitle(status.Account.Name, status.Account.ID))
	if !opts.Now.IsZero() && status.Quota != nil && status.Stale(opts.Now, opts.StaleAfter) {
		title += " " + s.warning.Render("[stale]")
	}

	parts := []string{title}
	if !status.SignedIn {
		parts = append(parts, s.warning.Render("signed out"))
	}

	if status.Quota == nil {
		parts = append(parts, s.empty.Render("quota: n/a (not refreshed yet)"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, quotaLines(*status.Quota, s)...)
	for _, detail := range status.Quota.Details {
		parts = append(parts, s.section.Render(detailBlock(detail, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func quotaLines(quota domain.QuotaSnapshot, s styles) []string {
	lines := make([]string, 0, 4)
	if offer := strings.TrimSpace(quota.OfferName); offer != "" {
		lines = append(lines, s.detail.Render("offer: "+offer))
	}

	left := percentLeft(quota)
	amounts := fmt.Sprintf("%s of %s", domain.FormatAmount(quota.Remain, quota.MeasureUnit), domain.FormatAmount(quota.Total, quota.MeasureUnit))
	lines = append(lines, strings.Join([]string{
		s.limitKey.Render("Total remaining:"),
		meter(left, meterWidth, s),
		s.detail.Render(amounts),
		lipgloss.NewStyle().Foreground(levelColor(left)).Render(fmt.Sprintf("(%2.0f%% left)", left)),
	}, " "))
	lines = append(lines, s.limitMeta.Render(fmt.Sprintf("used: %s", domain.FormatAmount(quota.Used, quota.MeasureUnit))))

	if !quota.CapturedAt.IsZero() {
		lines = append(lines, s.limitMeta.Render("last update: "+quota.CapturedAt.Local().Format(domain.TimestampLayout)))
	}

	return lines
}

func detailBlock(detail domain.QuotaDetail, s styles) string {
	name := strings.TrimSpace(detail.OfferingName)
	if name == "" {
		name = "unnamed offering"
	}

	lines := []string{
		s.limitKey.Render("Current Quota: " + name),
		s.detail.Render("Total: " + domain.FormatAmount(detail.InitialAmount, detail.MeasureUnit)),
		s.detail.Render("Remaining: " + domain.FormatAmount(detail.CurrentAmount, detail.MeasureUnit)),
		s.limitMeta.Render("Subscription date: " + detail.EffectiveTimeText),
		s.limitMeta.Render("Expire date: " + detail.ExpireTimeText),
		s.limitMeta.Render(fmt.Sprintf("Number of Days until renewal: %d", detail.RemainingDaysForRenewal)),
		s.detail.Render("Daily allowance: " + dailyAllowance(detail)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func dailyAllowance(detail domain.QuotaDetail) string {
	ratio, err := detail.DailyAllowance()
	if err != nil {
		return "n/a"
	}
	if detail.MeasureUnit == "" {
		return ratio + " per day"
	}

	return fmt.Sprintf("%s %s per day", ratio, detail.MeasureUnit)
}

// ClockLine is the "last update / current time" line shown by the live view.
func ClockLine(lastUpdate, now time.Time) string {
	last := "never"
	if !lastUpdate.IsZero() {
		last = lastUpdate.Format(ClockLayout)
	}

	return fmt.Sprintf("Last update: %s | Current time: %s", last, now.Format(ClockLayout))
}

// meter draws the remaining share of a quota as a fixed-width block bar.
func meter(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	full := min(max(int(math.Round(leftPercent/100*float64(width))), 0), width)
	return s.barBracket.Render("[") +
		s.barFill.Render(strings.Repeat("█", full)) +
		s.barEmpty.Render(strings.Repeat("░", width-full)) +
		s.barBracket.Render("]")
}

func percentLeft(quota domain.QuotaSnapshot) float64 {
	return min(max(100-quota.UsedPercent(), 0), 100)
}

func accountTitle(name string, id domain.AccountID) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == string(id) {
		return fmt.Sprintf("Account %s", id)
	}
	return fmt.Sprintf("%s (%s)", trimmed, id)
}

// levelColor turns red when little quota is left and green when most of it is.
func levelColor(leftPercent float64) lipgloss.Color {
	switch {
	case leftPercent < 10:
		return lipgloss.Color("203")
	case leftPercent < 30:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("114")
	}
}
