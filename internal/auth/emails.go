// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import "fmt"

// resetEmail builds the password reset message. The link embeds a
// one-hour reset token.
func resetEmail(firstName, link string) (subject, htmlBody string) {
	subject = "Reset your SkyCast password"
	htmlBody = fmt.Sprintf(`<p>Hi %s,</p>
<p>We received a request to reset your SkyCast password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset password</a></p>
<p>This link expires in 1 hour. If you didn't request a reset, you can safely ignore this email.</p>
<p>— The SkyCast team</p>`, firstName, link)
	return subject, htmlBody
}

// verificationEmail builds the email verification message. The link
// embeds a 24-hour verification token.
func verificationEmail(firstName, link string) (subject, htmlBody string) {
	subject = "Verify your SkyCast email"
	htmlBody = fmt.Sprintf(`<p>Hi %s,</p>
<p>Welcome to SkyCast! Please confirm your email address to finish setting up your account:</p>
<p><a href="%s">Verify email</a></p>
<p>This link expires in 24 hours. If you didn't create an account, you can safely ignore this email.</p>
<p>— The SkyCast team</p>`, firstName, link)
	return subject, htmlBody
}
