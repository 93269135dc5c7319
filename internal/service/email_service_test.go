package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"
)

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.fails {
		return nil, errors.New("ses unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, strings.Join(params.Destination.ToAddresses, ",")+"|"+aws.ToString(params.FromEmailAddress)+"|"+aws.ToString(params.Content.Simple.Subject.Data))
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSendWelcomeEmail(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailServiceWithClient(ses, "hello@copyforge.test", "Copyforge", "https://copyforge.test", testLogger())

	require.True(t, svc.IsEnabled())
	require.NoError(t, svc.SendWelcomeEmail(context.Background(), "new@example.com"))
	require.Equal(t, 1, ses.count())
	require.Equal(t, "new@example.com|Copyforge <hello@copyforge.test>|Welcome to Copyforge", ses.last())
}

func TestSendWelcomeEmailFailure(t *testing.T) {
	svc := newEmailServiceWithClient(&fakeSES{fails: true}, "hello@copyforge.test", "", "", testLogger())

	err := svc.SendWelcomeEmail(context.Background(), "new@example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "new@example.com")
}

func TestDisabledEmailService(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "", "", testLogger())
	require.NoError(t, err)
	require.False(t, svc.IsEnabled())
	require.NoError(t, svc.SendWelcomeEmail(context.Background(), "new@example.com"))
}
