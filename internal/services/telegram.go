package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramService sends storefront notifications to an admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// OrderNotification carries order data for the admin message.
type OrderNotification struct {
	OrderNumber  string
	CustomerName string
	TotalAmount  float64
	Currency     string
	ItemCount    int
}

// NotifyNewOrder tells the admin chat a new order was placed.
func (s *TelegramService) NotifyNewOrder(n OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	var b strings.Builder
	b.WriteString("<b>New order</b>\n")
	fmt.Fprintf(&b, "Order: %s\n", n.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", n.CustomerName)
	fmt.Fprintf(&b, "Items: %d\n", n.ItemCount)
	fmt.Fprintf(&b, "Total: %.2f %s", n.TotalAmount, n.Currency)

	return s.SendMessage(s.adminChatID, b.String())
}

// NotifyPaymentCaptured tells the admin chat a payment was verified.
func (s *TelegramService) NotifyPaymentCaptured(orderNumber string, amount float64, currency string) error {
	if s.adminChatID == "" {
		return nil
	}

	text := fmt.Sprintf("<b>Payment captured</b>\nOrder: %s\nAmount: %.2f %s", orderNumber, amount, currency)
	return s.SendMessage(s.adminChatID, text)
}
