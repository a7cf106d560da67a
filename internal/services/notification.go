package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/database"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// NotificationService turns classified outcomes into client emails and an
// admin digest over email and Telegram. Delivery failures are logged per
// recipient and never fail the run.
type NotificationService struct {
	bot   *bot.Bot
	email EmailSender
	repo  *database.ResultsRepository
	cfg   config.NotificationsConfig
}

func NewNotificationService(cfg config.NotificationsConfig, email EmailSender, repo *database.ResultsRepository) *NotificationService {
	// Initialize the Telegram bot only when a token is configured.
	var telegramBot *bot.Bot
	if cfg.Telegram.BotToken != "" {
		telegramBot, _ = bot.New(cfg.Telegram.BotToken)
	}

	return &NotificationService{
		bot:   telegramBot,
		email: email,
		repo:  repo,
		cfg:   cfg,
	}
}

// DispatchReport sends a client email per alert-worthy note and one admin
// digest summarizing the run.
func (ns *NotificationService) DispatchReport(ctx context.Context, report *RunReport, notes []models.Note) error {
	byID := make(map[string]*models.Note, len(notes))
	for i := range notes {
		byID[notes[i].ID] = &notes[i]
	}

	var digestLines []string
	sent := 0
	for i := range report.Outcomes {
		outcome := &report.Outcomes[i]
		if !outcome.Alertworthy() {
			continue
		}
		note := byID[outcome.NoteID]
		if note == nil {
			continue
		}

		digestLines = append(digestLines, fmt.Sprintf("● %s (%s): %s", note.ID, note.ClientName, statusLine(outcome)))

		if ns.email == nil || len(note.RecipientEmails) == 0 {
			continue
		}
		subject := fmt.Sprintf("[ELN Alert] %s status update", note.ID)
		body := formatClientEmail(note, outcome)
		for _, recipient := range note.RecipientEmails {
			if err := ns.email.Send(ctx, recipient, subject, body); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"note_id": note.ID, "to": recipient}).
					Error("Failed to send client alert")
				continue
			}
			sent++
			ns.logNotification(ctx, report.RunID, note.ID, "email", recipient)
		}
	}

	ns.sendAdminDigest(ctx, report, digestLines, sent)

	logrus.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"alerts": len(digestLines),
		"emails": sent,
	}).Info("Notifications dispatched")
	return nil
}

func (ns *NotificationService) sendAdminDigest(ctx context.Context, report *RunReport, lines []string, sentEmails int) {
	subject := fmt.Sprintf("[ELN Daily Digest] %s", report.EvaluationDate.Format("2006/01/02"))
	body := formatAdminDigest(report.EvaluationDate, lines, sentEmails)

	if ns.email != nil && ns.cfg.Email.AdminEmail != "" {
		if err := ns.email.Send(ctx, ns.cfg.Email.AdminEmail, subject, body); err != nil {
			logrus.WithError(err).Error("Failed to send admin digest email")
		} else {
			ns.logNotification(ctx, report.RunID, "", "email", ns.cfg.Email.AdminEmail)
		}
	}

	if ns.bot == nil || ns.cfg.Telegram.AdminChatID == 0 {
		return
	}
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.cfg.Telegram.AdminChatID,
		Text:      formatTelegramDigest(report.EvaluationDate, lines),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to send admin digest via Telegram")
		return
	}
	ns.logNotification(ctx, report.RunID, "", "telegram", fmt.Sprintf("%d", ns.cfg.Telegram.AdminChatID))
}

func (ns *NotificationService) logNotification(ctx context.Context, runID, noteID, channel, recipient string) {
	if ns.repo == nil {
		return
	}
	if err := ns.repo.LogNotification(ctx, runID, noteID, channel, recipient); err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Warn("Failed to log notification")
	}
}

// statusLine is the one-line summary used in digests and subjects.
func statusLine(o *models.Outcome) string {
	switch o.Status {
	case models.StatusEarlyRedeemed:
		when := ""
		if o.EarlyRedemptionDate != nil {
			when = " on " + o.EarlyRedemptionDate.Format("2006-01-02")
		}
		return "🎉 Early redemption (KO)" + when
	case models.StatusMaturedProfit:
		return "💰 Matured in profit"
	case models.StatusMaturedLoss:
		return fmt.Sprintf("😭 Matured with delivery risk (worst: %s)", o.WorstAsset)
	case models.StatusMaturedProtected:
		return "🛡️ Matured, principal protected"
	default:
		if o.KIBreached {
			return fmt.Sprintf("⚠️ KI breached: %s", strings.Join(o.KIBreachedAssets, ", "))
		}
		return "👀 Observing"
	}
}

// formatClientEmail renders the plain-text client notification with the
// per-asset detail block.
func formatClientEmail(note *models.Note, o *models.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", note.ClientName)
	fmt.Fprintf(&b, "Your structured note %s has a status update:\n", note.ID)
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "[%s]\n\n", statusLine(o))
	b.WriteString(assetDetail(o))
	if note.MaturityDate != nil {
		fmt.Fprintf(&b, "\n📅 Maturity: %s", note.MaturityDate.Format("2006-01-02"))
		if tenure := note.TenureMonths(); tenure > 0 {
			fmt.Fprintf(&b, " (%dM tenure)", tenure)
		}
		b.WriteString("\n")
	}
	b.WriteString("--------------------------------\n")
	b.WriteString("This message was sent automatically, please do not reply.\n")
	return b.String()
}

// assetDetail lists each asset's performance with its barrier markers.
func assetDetail(o *models.Outcome) string {
	var b strings.Builder
	for i := range o.Assets {
		st := &o.Assets[i]
		perf := "N/A"
		if st.HasPrice {
			perf = st.LatestPerformance.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
		}
		icon := ""
		switch {
		case st.LockedKO:
			icon = " ✅"
		case st.HitKI:
			icon = " ⚠️"
		}
		fmt.Fprintf(&b, "%s: %s%s\n", st.Code, perf, icon)
	}
	return b.String()
}

func formatAdminDigest(date time.Time, lines []string, sentEmails int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary for %s:\n----------------\n", date.Format("2006/01/02"))
	if len(lines) == 0 {
		b.WriteString("No notable events today.\n")
	} else {
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	if sentEmails > 0 {
		fmt.Fprintf(&b, "\n(%d client emails sent separately)\n", sentEmails)
	}
	return b.String()
}

func formatTelegramDigest(date time.Time, lines []string) string {
	header := fmt.Sprintf("📊 *ELN Daily Digest %s*\n\n", date.Format("2006/01/02"))
	if len(lines) == 0 {
		return header + "No notable events today."
	}
	return header + strings.Join(lines, "\n")
}
