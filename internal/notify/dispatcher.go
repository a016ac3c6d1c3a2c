package notify

import (
	"context"
	"strings"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/rs/zerolog/log"
)

// Dispatcher formats engine results into messages and sends them to the
// site manager or owner resolved from the staff table.
type Dispatcher struct {
	notifier Notifier
	staff    repository.StaffRepository
	site     string
	link     string
}

// NewDispatcher builds a dispatcher. link is appended to reminders so staff
// can open the checklist.
func NewDispatcher(n Notifier, staff repository.StaffRepository, site, link string) *Dispatcher {
	if n == nil {
		n = NewLogNotifier()
	}
	return &Dispatcher{notifier: n, staff: staff, site: site, link: link}
}

// StockAlert tells the manager which items need restocking.
func (d *Dispatcher) StockAlert(ctx context.Context, low []domain.StockLine) int {
	if len(low) == 0 {
		log.Info().Msg("notify: no low stock, alert skipped")
		return 0
	}
	return d.send(ctx, "stock_alert", StockAlertMessage(d.site, low), d.manager(ctx))
}

// CheckReminder tells the manager what is due for recount today.
func (d *Dispatcher) CheckReminder(ctx context.Context, list *domain.Checklist) int {
	if list == nil {
		return 0
	}
	return d.send(ctx, "check_reminder", ReminderMessage(d.site, list, d.link), d.manager(ctx))
}

// DailySummary sends the day's dashboard to the owner.
func (d *Dispatcher) DailySummary(ctx context.Context, report *domain.DashboardReport) int {
	if report == nil {
		return 0
	}
	return d.send(ctx, "daily_summary", SummaryMessage(d.site, report), d.boss(ctx))
}

// AbnormalVariance warns manager and owner about every abnormal recount.
func (d *Dispatcher) AbnormalVariance(ctx context.Context, events []domain.AlertEvent) int {
	var recipients []string
	mgr, boss := d.manager(ctx), d.boss(ctx)
	if mgr != "" {
		recipients = append(recipients, mgr)
	}
	if boss != "" && boss != mgr {
		recipients = append(recipients, boss)
	}

	sent := 0
	for _, e := range events {
		if e.Kind != domain.AlertAbnormalVariance {
			continue
		}
		sent += d.send(ctx, "abnormal_variance", AbnormalMessage(d.site, e), recipients...)
	}
	return sent
}

func (d *Dispatcher) send(ctx context.Context, kind, message string, recipients ...string) int {
	sent := 0
	for _, to := range recipients {
		if to == "" {
			continue
		}
		if err := d.notifier.Send(ctx, to, message); err != nil {
			log.Warn().Err(err).Str("kind", kind).Str("recipient", to).Msg("notify: delivery failed")
			continue
		}
		sent++
	}
	if sent == 0 {
		log.Info().Str("kind", kind).Msg("notify: no recipient reached")
	}
	return sent
}

// manager is the first manager or boss in staff order.
func (d *Dispatcher) manager(ctx context.Context) string {
	return d.contact(ctx, func(r domain.Role) bool { return r.CanManage() })
}

func (d *Dispatcher) boss(ctx context.Context) string {
	return d.contact(ctx, func(r domain.Role) bool { return r == domain.RoleBoss })
}

func (d *Dispatcher) contact(ctx context.Context, match func(domain.Role) bool) string {
	if d.staff == nil {
		return ""
	}
	staff, err := d.staff.ListStaff(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("notify: staff lookup failed")
		return ""
	}
	for _, s := range staff {
		if match(s.Role) {
			return ContactOf(s)
		}
	}
	return ""
}

// ContactOf prefers the phone number, then email.
func ContactOf(s domain.Staff) string {
	if p := strings.TrimSpace(s.Phone); p != "" {
		return p
	}
	return strings.TrimSpace(s.Email)
}
