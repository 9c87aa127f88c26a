package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"typingclash/internal/logger"
)

// sesAPI is the part of the SES client the service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends notification mail via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	log        *logger.Logger
}

// NewEmailService creates a new email service. Without a from address the
// service is disabled and every send is skipped.
func NewEmailService(ctx context.Context, log *logger.Logger, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Info("email service disabled: EMAIL_FROM not configured")
		return &EmailService{enabled: false, debug: debug, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), log, fromEmail, fromName, appBaseURL, debug), nil
}

func newEmailService(client sesAPI, log *logger.Logger, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e9d6a; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">%s</div>
		<div class="footer"><p>This is an automated email from TypingClash. Please do not reply.</p></div>
	</div>
</body>
</html>
`

// SendWelcomeEmail greets a new parent account
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	subject := "Welcome to TypingClash!"
	name := html.EscapeString(toName)
	htmlBody := fmt.Sprintf(emailLayout, "Welcome to TypingClash!", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your parent account is ready. Ask your child for the invite code shown on their profile to link their progress to you.</p>
			<p>From your dashboard you can follow daily practice, set how much game time practice earns, and create gifts to spend points on.</p>
			<p><a href="%s/login">Sign in</a></p>`, name, s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your parent account is ready. Ask your child for the invite code shown on their profile to link their progress to you.

Sign in: %s/login
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendGiftRedeemedEmail tells a parent their student spent points on a gift
func (s *EmailService) SendGiftRedeemedEmail(ctx context.Context, toEmail, parentName, studentName, giftName string, cost, remaining int) error {
	subject := fmt.Sprintf("%s redeemed \"%s\"", studentName, giftName)
	htmlBody := fmt.Sprintf(emailLayout, "A gift was redeemed", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p><strong>%s</strong> redeemed <strong>%s</strong> for %d points and has %d points left.</p>
			<p>Mark it as handed over from your dashboard once they have it.</p>`,
		html.EscapeString(parentName), html.EscapeString(studentName), html.EscapeString(giftName), cost, remaining))

	textBody := fmt.Sprintf(`Hi %s,

%s redeemed "%s" for %d points and has %d points left.
Mark it as handed over from your dashboard once they have it.
`, parentName, studentName, giftName, cost, remaining)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		s.log.Debug("skipping email send (service disabled)", "subject", subject)
		return nil
	}
	if toEmail == "" {
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if s.debug && result.MessageId != nil {
		s.log.Debug("SES accepted email", "message_id", *result.MessageId, "subject", subject)
	}
	s.log.Info("email sent", "subject", subject)
	return nil
}
