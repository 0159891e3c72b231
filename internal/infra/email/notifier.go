package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	jobID := job.ID.String()

	err := n.send(addr, nil, n.from, []string{userEmail}, n.compose(userEmail, job))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func (n *SMTPNotifier) compose(userEmail string, job *entity.Job) []byte {
	subject := fmt.Sprintf("FIAP X - Palette Extraction Failed [Job %s]", job.ID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not extract a color palette from your video.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Attempts: %d/%d\r\n"+
			"Error: %s\r\n\r\n"+
			"Please check that the video plays correctly and upload it again, or contact support.\r\n\r\n"+
			"-- FIAP X Palette Service",
		job.ID, job.VideoKey, job.Attempt, job.MaxAttempts, job.ErrorMessage,
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, userEmail, subject, body,
	))
}
