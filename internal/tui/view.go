package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/smartsafe/safewatch/internal/fusion"
	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/model"
)

// alignFooter puts left at the start and right-aligns right within width
// columns. A single space separates them when width is too small.
func alignFooter(left, right string, width int) string {
	spaces := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

func lockLabel(s model.LockState) string {
	if s == model.Unlocked {
		return i18n.T("lock.unlocked")
	}
	return i18n.T("lock.locked")
}

func card(label, value string, alert bool) string {
	style := cardStyle
	if alert {
		style = alertCardStyle
	}
	return style.Render(cardLabelStyle.Render(label) + "\n" + value)
}

func notAvailable() string { return helpStyle.Render(i18n.T("dashboard.not_available")) }

func (m Model) sensorCards() string {
	s := m.state.Snapshot

	hit := successStyle.Render(i18n.T("dashboard.ok"))
	if s.Vibration {
		hit = errorStyle.Render(i18n.T("dashboard.hit"))
	}
	motion := successStyle.Render(i18n.T("dashboard.no_motion"))
	if s.Motion {
		motion = specialStyle.Render(i18n.T("dashboard.motion"))
	}
	light := notAvailable()
	if s.LightLevel != nil {
		light = fmt.Sprintf("%.0f", *s.LightLevel)
	}
	reed := notAvailable()
	if s.Reed != nil {
		if *s.Reed == model.ReedOpen {
			reed = specialStyle.Render(i18n.T("dashboard.open"))
		} else {
			reed = i18n.T("dashboard.closed")
		}
	}
	temp := notAvailable()
	if s.Temperature != nil {
		temp = fmt.Sprintf("%.1f °C", *s.Temperature)
	}

	lightAlert := false
	for _, a := range m.state.Alerts {
		if a.Kind == fusion.AlertLight {
			lightAlert = true
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card(i18n.T("dashboard.hit_sensor"), hit, s.Vibration),
		card(i18n.T("dashboard.pir_sensor"), motion, false),
		card(i18n.T("dashboard.ldr_sensor"), light, lightAlert),
		card(i18n.T("dashboard.reed_switch"), reed, false),
		card(i18n.T("dashboard.temperature"), temp, false),
	)
}

func (m Model) mpuStatus() string {
	v := m.state.Verdict
	var b strings.Builder
	if v.Safe {
		b.WriteString(successStyle.Render(i18n.T("dashboard.safe")))
	} else {
		b.WriteString(errorStyle.Render(i18n.T("dashboard.unsafe")))
		if v.Reason != "" {
			b.WriteString(" " + helpStyle.Render("("+v.Reason+")"))
		}
	}
	if a := m.state.Snapshot.Acceleration; a != nil {
		fmt.Fprintf(&b, "\naccel  x=%.2f y=%.2f z=%.2f", a.X, a.Y, a.Z)
	}
	if g := m.state.Snapshot.AngularVelocity; g != nil {
		fmt.Fprintf(&b, "\ngyro   x=%.2f y=%.2f z=%.2f", g.X, g.Y, g.Z)
	}
	return panelStyle.Render(sectionTitleStyle.UnsetMarginTop().Render(i18n.T("dashboard.mpu_status")) + "\n" + b.String())
}

func (m Model) lockControl() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.UnsetMarginTop().Render(i18n.T("lock.title")) + "\n")
	if !m.authenticated() {
		b.WriteString(m.password.View())
		if m.gate != nil {
			if msg := m.gate.Err(); msg != "" {
				b.WriteString("\n" + errorStyle.Render(msg))
			}
		}
		return panelStyle.Render(b.String())
	}
	state := model.Locked
	if m.relay != nil {
		state = m.relay.State()
	}
	b.WriteString(i18n.T("lock.status", lockLabel(state)))
	switch {
	case m.pending != "":
		b.WriteString("\n" + specialStyle.Render(i18n.T("lock.pending", string(m.pending))))
	case m.lockErr != "":
		b.WriteString("\n" + errorStyle.Render(m.lockErr))
	case m.lockMsg != "":
		b.WriteString("\n" + successStyle.Render(m.lockMsg))
	}
	return panelStyle.Render(b.String())
}

func (m Model) warningLog() string {
	title := sectionTitleStyle.Render(i18n.T("dashboard.warning_log"))
	if len(m.warnings.Rows()) == 0 {
		return title + "\n" + helpStyle.Render(i18n.T("dashboard.no_warnings"))
	}
	return title + "\n" + m.warnings.View()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(mainTitleStyle.Render(i18n.T("dashboard.title")) + "\n\n")

	switch {
	case !m.state.Ready() && m.state.Err != nil:
		b.WriteString(errorStyle.Render(i18n.T("dashboard.no_data")) + "\n")
		b.WriteString(m.lockControl() + "\n")
	case !m.state.Ready():
		b.WriteString(helpStyle.Render(i18n.T("dashboard.loading")) + "\n")
		b.WriteString(m.lockControl() + "\n")
	default:
		if m.state.Err != nil {
			b.WriteString(errorStyle.Render(i18n.T("dashboard.fetch_error")) + "\n")
		}
		b.WriteString(m.sensorCards() + "\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.mpuStatus(), " ", m.lockControl()) + "\n")
		b.WriteString(m.warningLog() + "\n")
	}

	updated := ""
	if !m.state.UpdatedAt.IsZero() {
		updated = i18n.T("dashboard.last_updated", i18n.FormatTimestamp(m.state.UpdatedAt))
	}
	b.WriteString("\n" + helpStyle.Render(alignFooter(i18n.T("dashboard.help"), updated, m.width-4)))
	return docStyle.Render(b.String())
}
