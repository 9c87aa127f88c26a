package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typingclash/internal/logger"
)

type fakeSES struct {
	sent []*sesv2.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailDisabledWithoutSender(t *testing.T) {
	svc, err := NewEmailService(context.Background(), logger.NewNop(), "eu-west-1", "", "", "", false)
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendWelcomeEmail(context.Background(), "mum@example.com", "Mum"))
}

func TestEmailContent(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailService(ses, logger.NewNop(), "noreply@example.com", "Typing Club", "https://typing.example.com", true)
	ctx := context.Background()

	require.NoError(t, svc.SendGiftRedeemedEmail(ctx, "mum@example.com", "Mum", "Sam", "<Kite>", 20, 5))
	require.Len(t, ses.sent, 1)
	in := ses.sent[0]
	assert.Equal(t, "Typing Club <noreply@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"mum@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, `Sam redeemed "<Kite>"`, aws.ToString(in.Content.Simple.Subject.Data))
	body := aws.ToString(in.Content.Simple.Body.Html.Data)
	assert.True(t, strings.Contains(body, "&lt;Kite&gt;"), "html body must escape names")

	assert.NoError(t, svc.SendWelcomeEmail(ctx, "", "Nobody"))
	assert.Len(t, ses.sent, 1, "empty recipient is skipped")

	ses.err = errors.New("throttled")
	assert.Error(t, svc.SendWelcomeEmail(ctx, "dad@example.com", "Dad"))
}

func TestGiftRedeemNotifiesParents(t *testing.T) {
	env := newTestEnv(t)
	ses := &fakeSES{}
	env.gift.email = newEmailService(ses, logger.NewNop(), "noreply@example.com", "", "http://localhost", false)

	mum, kid := env.bind(t, "mum", "kid")
	gift, err := env.gift.Create(mum, kid.ID, GiftInput{Name: "Kite", Cost: 20})
	require.NoError(t, err)
	env.credit(t, kid.ID, 25)

	_, err = env.gift.Redeem(context.Background(), kid, gift.ID, "")
	require.NoError(t, err)
	require.Len(t, ses.sent, 1)
	assert.Equal(t, []string{mum.Email}, ses.sent[0].Destination.ToAddresses)
	assert.Contains(t, aws.ToString(ses.sent[0].Content.Simple.Body.Text.Data), "has 5 points left")
}
