package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barberpro-backend/config"
	"barberpro-backend/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Credentials identify the WhatsApp instance a message is sent from.
type Credentials struct {
	Token      string
	InstanceID string
}

// SendResult is the provider answer for an accepted message.
type SendResult struct {
	Status  int
	Message string
}

// Sender delivers a WhatsApp message. Any returned error means the message was not
// accepted by the provider.
type Sender interface {
	Send(ctx context.Context, creds Credentials, phone, body string) (*SendResult, error)
	ProviderID() string
}

// NewSender builds the sender selected by MESSAGING_PROVIDER.
func NewSender(cfg *config.Config, log *zap.Logger) Sender {
	switch strings.ToLower(cfg.MessagingProvider) {
	case "twilio":
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsApp, cfg.WhatsAppCountryCode)
	case "noop":
		return NewNoopSender(log)
	default:
		return NewBitSafiraSender(cfg.BitSafiraBaseURL, cfg.WhatsAppCountryCode)
	}
}

// bitSafiraSendPaths are tried in order while the provider answers 404.
var bitSafiraSendPaths = []string{"/disparo/enviar", "/mensagem/disparar", "/mensagem/enviar"}

// BitSafiraSender talks to the BitSafira WhatsApp HTTP API.
type BitSafiraSender struct {
	baseURL     string
	countryCode string
	http        *http.Client
}

func NewBitSafiraSender(baseURL, countryCode string) *BitSafiraSender {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.bitsafira.com.br"
	}
	return &BitSafiraSender{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		countryCode: countryCode,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *BitSafiraSender) ProviderID() string {
	return "bitsafira"
}

type bitSafiraMessage struct {
	InstanceID    string `json:"idInstancia"`
	WhatsApp      string `json:"whatsapp"`
	Text          string `json:"texto"`
	SendImmediate int    `json:"envioImediato"`
}

type bitSafiraResponse struct {
	Mensagem string `json:"mensagem"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func (s *BitSafiraSender) Send(ctx context.Context, creds Credentials, phone, body string) (*SendResult, error) {
	if creds.Token == "" || creds.InstanceID == "" {
		return nil, errors.New("bitsafira token or instance id not configured")
	}
	number := utils.NormalizeWhatsAppNumber(phone, s.countryCode)
	if number == "" {
		return nil, errors.New("recipient number missing or invalid")
	}

	raw, err := json.Marshal(bitSafiraMessage{
		InstanceID:    creds.InstanceID,
		WhatsApp:      number,
		Text:          body,
		SendImmediate: 1,
	})
	if err != nil {
		return nil, err
	}

	var result *SendResult
	for _, path := range bitSafiraSendPaths {
		result, err = s.post(ctx, path, creds.Token, raw)
		if err != nil {
			return nil, err
		}
		if result.Status != http.StatusNotFound {
			break
		}
	}

	if result.Status < 200 || result.Status >= 300 {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("bitsafira returned status %d", result.Status)
		}
		return result, errors.New(msg)
	}
	return result, nil
}

func (s *BitSafiraSender) post(ctx context.Context, path, token string, raw []byte) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", token)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitsafira request: %w", err)
	}
	defer resp.Body.Close()

	result := &SendResult{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result, nil
	}
	var decoded bitSafiraResponse
	if json.Unmarshal(data, &decoded) == nil {
		switch {
		case decoded.Mensagem != "":
			result.Message = decoded.Mensagem
		case decoded.Message != "":
			result.Message = decoded.Message
		default:
			result.Message = decoded.Error
		}
	}
	return result, nil
}

// TwilioSender sends WhatsApp messages through Twilio. Per-barbershop credentials
// are ignored; the account configured for the process is used.
type TwilioSender struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

func NewTwilioSender(accountSID, authToken, fromWhatsApp, countryCode string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:        fromWhatsApp,
		countryCode: countryCode,
	}
}

func (s *TwilioSender) ProviderID() string {
	return "twilio"
}

func (s *TwilioSender) Send(_ context.Context, _ Credentials, phone, body string) (*SendResult, error) {
	sender := whatsAppAddress(s.from, "")
	if sender == "" {
		return nil, errors.New("twilio sender WhatsApp number is not configured")
	}
	recipient := whatsAppAddress(phone, s.countryCode)
	if recipient == "" {
		return nil, errors.New("recipient number missing or invalid")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio send message: %w", err)
	}

	result := &SendResult{Status: http.StatusCreated}
	if resp.Sid != nil {
		result.Message = *resp.Sid
	}
	return result, nil
}

// whatsAppAddress formats a number as a Twilio WhatsApp address ("whatsapp:+5511...").
func whatsAppAddress(number, countryCode string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:"))
	if strings.HasPrefix(trimmed, "+") {
		countryCode = ""
	}
	digits := utils.NormalizeWhatsAppNumber(trimmed, countryCode)
	if digits == "" {
		return ""
	}
	return "whatsapp:+" + digits
}

// NoopSender accepts every message without sending it.
type NoopSender struct {
	log *zap.Logger
}

func NewNoopSender(log *zap.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) ProviderID() string {
	return "noop"
}

func (s *NoopSender) Send(_ context.Context, _ Credentials, phone, body string) (*SendResult, error) {
	s.log.Debug("noop sender dropped message", zap.String("phone", phone), zap.Int("length", len(body)))
	return &SendResult{Status: http.StatusOK}, nil
}
