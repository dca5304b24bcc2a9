// Copyright 2026 The CareForms Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESMailer sends invitation emails through Amazon SES.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

// NewSESMailer creates a mailer backed by SES. When fromEmail is empty
// the disabled mailer is returned instead, so callers need not branch.
func NewSESMailer(ctx context.Context, awsRegion, fromEmail, fromName string) (Mailer, error) {
	if fromEmail == "" {
		slog.Info("mail delivery disabled: SES_FROM_EMAIL not configured")
		return Disabled{}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("mail delivery enabled",
		slog.String("from", fromEmail),
		slog.String("region", awsRegion),
	)

	return &SESMailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendInvitation delivers an invitation email with the signed link.
func (s *SESMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	subject := fmt.Sprintf("You've been invited to join %s on CareForms", inv.BusinessName)

	textBody := fmt.Sprintf(
		"You have been invited to join %s as a %s.\n\n"+
			"Open the link below to accept the invitation:\n\n%s\n\n"+
			"This invitation expires on %s. If you weren't expecting it, you can ignore this email.\n",
		inv.BusinessName, inv.Role, inv.Link, inv.ExpiresAt.Format("January 2, 2006"),
	)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Join %s on CareForms</h2>
		<p>You have been invited to join <strong>%s</strong> as a <strong>%s</strong>.</p>
		<p style="text-align: center;">
			<a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #2f6f4f; color: white; text-decoration: none; border-radius: 5px;">Accept Invitation</a>
		</p>
		<p>Or copy and paste this link into your browser:</p>
		<p><a href="%s">%s</a></p>
		<p style="font-size: 12px; color: #666;">This invitation expires on %s. If you weren't expecting it, you can ignore this email.</p>
	</div>
</body>
</html>`,
		inv.BusinessName, inv.BusinessName, inv.Role,
		inv.Link, inv.Link, inv.Link,
		inv.ExpiresAt.Format("January 2, 2006"),
	)

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{inv.ToEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody)},
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	slog.InfoContext(ctx, "invitation email sent", slog.String("to", inv.ToEmail))
	return nil
}
