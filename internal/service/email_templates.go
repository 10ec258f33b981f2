package service

import "fmt"

func welcomeEmailTemplate(name, feedURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Start sharing your work and browsing what others have posted:
%s

If you have questions, reach out to our support team.

Best,
The %s Team`, name, feedURL, appName)

	return subject, body
}

func commentNotificationTemplate(authorName, commenterName, postTitle, postURL, appName string) (string, string) {
	subject := fmt.Sprintf("New comment on %q", postTitle)
	body := fmt.Sprintf(`Hi %s,

%s left a comment on your post %q:
%s

Best,
The %s Team`, authorName, commenterName, postTitle, postURL, appName)

	return subject, body
}

func unreadMessagesTemplate(name, senderName string, count int, messagesURL, appName string) (string, string) {
	subject := fmt.Sprintf("You have unread messages on %s", appName)

	messages := "a message"
	if count > 1 {
		messages = fmt.Sprintf("%d messages", count)
	}

	body := fmt.Sprintf(`Hi %s,

%s sent you %s that you haven't read yet:
%s

Best,
The %s Team`, name, senderName, messages, messagesURL, appName)

	return subject, body
}

func passwordChangedTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s password was changed", appName)
	body := fmt.Sprintf(`Hi %s,

Your password was just changed.

If this wasn't you, please secure your account immediately.

Best,
The %s Team`, name, appName)

	return subject, body
}

func emailChangedTemplate(name, newEmail, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s email address was changed", appName)
	body := fmt.Sprintf(`Hi %s,

The email address on your account was changed to: %s

If this wasn't you, please secure your account immediately.

Best,
The %s Team`, name, newEmail, appName)

	return subject, body
}
