package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"case_track_app_go/models"
)

// Event type tags attached to every push payload so client apps can
// correlate the message locally.
const (
	EventTypeCaseUpdate  = "case_update"
	EventTypeCallRequest = "call_request"
)

// PushMessage is the typed notification envelope for one device endpoint
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers one message to one device endpoint. Implementations must
// bound the send with the context so a dead endpoint cannot hang a request.
type Pusher interface {
	Send(ctx context.Context, msg *PushMessage) error
}

// FCMPusher sends push messages through Firebase Cloud Messaging
type FCMPusher struct {
	client  *messaging.Client
	timeout time.Duration
}

// NewFCMPusher initializes the Firebase app and messaging client. Returns
// (nil, nil) when no credentials file is configured so the server can run
// with push delivery disabled.
func NewFCMPusher(ctx context.Context, credentialsFile string, timeout time.Duration) (*FCMPusher, error) {
	if credentialsFile == "" {
		log.Println("[WARNING] FIREBASE_CREDENTIALS_FILE not configured; push notifications disabled")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	log.Println("Firebase FCM initialized")
	return &FCMPusher{client: client, timeout: timeout}, nil
}

func (p *FCMPusher) Send(ctx context.Context, msg *PushMessage) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	return err
}

// NotifyService resolves recipients against the device registry and fans
// messages out to every registered endpoint.
type NotifyService struct {
	DB     *gorm.DB
	Pusher Pusher
}

func NewNotifyService(db *gorm.DB, pusher Pusher) *NotifyService {
	return &NotifyService{DB: db, Pusher: pusher}
}

// fanOut attempts delivery to each token independently and concurrently.
// One endpoint failing never aborts the others; failures are logged and
// excluded from the returned count. The return value is the number of
// endpoints that accepted the message, not the number attempted.
func (s *NotifyService) fanOut(ctx context.Context, tokens []string, title, body string, data map[string]string) int {
	if s.Pusher == nil || len(tokens) == 0 {
		return 0
	}

	var delivered int64
	var wg sync.WaitGroup
	for _, token := range tokens {
		if token == "" {
			continue
		}
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			msg := &PushMessage{Token: token, Title: title, Body: body, Data: data}
			if err := s.Pusher.Send(ctx, msg); err != nil {
				log.Printf("[WARNING] push delivery failed for token %s: %v", token, err)
				return
			}
			atomic.AddInt64(&delivered, 1)
		}(token)
	}
	wg.Wait()

	log.Printf("Push fan-out finished: attempted=%d success=%d", len(tokens), delivered)
	return int(delivered)
}

func (s *NotifyService) clientTokens(clientCode string) []string {
	var record models.ClientDevice
	err := s.DB.Where("client_code = ?", clientCode).First(&record).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[WARNING] Failed to load client devices for %s: %v", clientCode, err)
		}
		return nil
	}
	return record.DeviceIDs
}

func (s *NotifyService) attorneyTokens(userID string) []string {
	var record models.AttorneyDevice
	err := s.DB.Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[WARNING] Failed to load attorney devices for %s: %v", userID, err)
		}
		return nil
	}
	return record.DeviceIDs
}

// NotifyClientCaseUpdated pushes a case-change message to every device
// registered under the case's client code. An unregistered code is a
// no-op, not an error.
func (s *NotifyService) NotifyClientCaseUpdated(ctx context.Context, c *models.Case, changedFields []string) int {
	title := "Your case was updated"

	var details []string
	if containsField(changedFields, CaseFieldStatus) {
		details = append(details, "Status → "+c.CaseStatus)
	}
	if containsField(changedFields, CaseFieldNotes) {
		details = append(details, "New note added")
	}

	body := strings.Join(details, "; ")
	if body == "" {
		body = "Your case details have changed."
	}

	return s.fanOut(ctx, s.clientTokens(c.ClientCode), title, body, map[string]string{
		"type":        EventTypeCaseUpdate,
		"case_id":     c.ID,
		"client_code": c.ClientCode,
	})
}

// NotifyAttorneyCallRequest pushes a call-me-back request from a client to
// the case's attorney devices.
func (s *NotifyService) NotifyAttorneyCallRequest(ctx context.Context, c *models.Case) int {
	if c.AttorneyID == nil || *c.AttorneyID == "" {
		log.Printf("Case %s has no attorney; skipping call-request notification", c.ID)
		return 0
	}

	title := "Client requested a call"
	body := fmt.Sprintf("%s (%s) asked you to call them.", c.ClientName, c.ClientCode)

	return s.fanOut(ctx, s.attorneyTokens(*c.AttorneyID), title, body, map[string]string{
		"type":        EventTypeCallRequest,
		"case_id":     c.ID,
		"client_code": c.ClientCode,
	})
}
