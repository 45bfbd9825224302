package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	message := string(buildMessage("noreply@zestpass.in", "asha@example.com", "Your tickets", "<p>hi</p>"))

	head, body, found := strings.Cut(message, "\r\n\r\n")
	require.True(t, found)
	require.Equal(t, "<p>hi</p>", body)
	require.True(t, strings.HasPrefix(head, "From: noreply@zestpass.in\r\nTo: asha@example.com\r\nSubject: Your tickets"))
	require.Contains(t, head, "Content-Type: text/html; charset=UTF-8")
}

func TestSendEmailNeedsRecipient(t *testing.T) {
	service := NewEmailService("noreply@zestpass.in", "secret")
	require.Error(t, service.SendEmail(" ", "subject", "body"))
	require.NoError(t, LogMailService{}.SendEmail("asha@example.com", "subject", "body"))
}
