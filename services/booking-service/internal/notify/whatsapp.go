package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

const defaultGraphURL = "https://graph.facebook.com/v18.0"

// WhatsAppSender sends text messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	baseURL string
	phoneID string
	token   string
	http    *http.Client
}

func NewWhatsAppSender(baseURL, phoneID, token string) *WhatsAppSender {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGraphURL
	}
	return &WhatsAppSender{
		baseURL: baseURL,
		phoneID: strings.TrimSpace(phoneID),
		token:   strings.TrimSpace(token),
		http:    defaultHTTPClient(),
	}
}

func (s *WhatsAppSender) ProviderID() string { return "whatsapp-cloud" }

func (s *WhatsAppSender) Send(ctx context.Context, to string, body string) error {
	if s.phoneID == "" || s.token == "" {
		return fmt.Errorf("whatsapp phone id or token not configured")
	}
	number := PhoneDigits(to)
	if number == "" {
		return fmt.Errorf("contact %q has no phone number", to)
	}
	return postJSON(ctx, s.http, s.ProviderID(), s.baseURL+"/"+s.phoneID+"/messages", s.token, map[string]any{
		"messaging_product": "whatsapp",
		"to":                number,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
}

// PhoneDigits strips everything but digits; the Cloud API wants the number
// in international form without "+" or separators.
func PhoneDigits(contact string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, contact)
}
