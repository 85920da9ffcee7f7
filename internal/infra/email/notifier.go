package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

// SMTPNotifier mails the uploader when a roster job fails for good. Jobs
// without an uploader address go to the operator address instead.
type SMTPNotifier struct {
	host     string
	port     int
	from     string
	operator string
	logger   *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, operator string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, operator: operator, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, failure port.RosterFailure) error {
	to := failure.UserEmail
	if to == "" {
		to = n.operator
	}
	if to == "" {
		n.logger.Warn("no recipient for failure notification", zap.String("job_id", failure.JobID))
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	err := smtp.SendMail(addr, nil, n.from, []string{to}, composeFailure(n.from, to, failure))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", to),
			zap.String("job_id", failure.JobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", to),
		zap.String("job_id", failure.JobID),
	)
	return nil
}

func composeFailure(from, to string, f port.RosterFailure) []byte {
	subject := fmt.Sprintf("Club roster update failed [Job %s]", f.JobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"The member list video you posted could not be turned into a roster.\r\n\r\n"+
			"Club: %s\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Record the member list again, scrolling slowly from top to bottom, and post the new video.\r\n\r\n"+
			"-- Club Roster Bot",
		f.ClubID, f.JobID, f.VideoKey, f.Reason,
	)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
}
