package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	ErrSubscriptionNotFound = errors.New("no active subscription")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMissingReference     = errors.New("checkout session has no client reference")
)

// Service runs checkout, cancellation, webhook processing and trials.
type Service struct {
	events   EventStore
	profiles repository.ProfileRepository
	gateway  Gateway
	cfg      config.StripeConfig
	baseURL  string
	now      func() time.Time
}

// NewService creates a billing service from injected collaborators.
func NewService(events EventStore, profiles repository.ProfileRepository, gateway Gateway, cfg config.StripeConfig, baseURL string) *Service {
	return &Service{
		events:   events,
		profiles: profiles,
		gateway:  gateway,
		cfg:      cfg,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// CreateCheckout opens a subscription checkout and returns its URL.
func (s *Service) CreateCheckout(ctx context.Context, userID uint, email string, req CheckoutRequest) (string, error) {
	in := CheckoutInput{
		UserID:        userID,
		CustomerEmail: email,
		PriceID:       strings.TrimSpace(req.PriceID),
		SuccessURL:    strings.TrimSpace(req.SuccessURL),
		CancelURL:     strings.TrimSpace(req.CancelURL),
	}
	if in.PriceID == "" {
		in.PriceID = s.cfg.ProPriceID
	}
	if in.SuccessURL == "" {
		in.SuccessURL = s.baseURL + "/dashboard?upgraded=1"
	}
	if in.CancelURL == "" {
		in.CancelURL = s.baseURL + "/pricing"
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, in)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	log.Infof("[Billing] checkout session created for user %d", userID)
	return url, nil
}

// CancelSubscription cancels the user's subscription at period end.
func (s *Service) CancelSubscription(ctx context.Context, userID uint) (string, error) {
	profile, err := s.profiles.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSubscriptionNotFound
		}
		return "", err
	}
	if !profile.HasSubscription() {
		return "", ErrSubscriptionNotFound
	}

	status, err := s.gateway.CancelAtPeriodEnd(ctx, *profile.StripeSubscriptionID)
	if err != nil {
		return "", err
	}
	log.Infof("[Billing] subscription of user %d set to cancel at period end (%s)", userID, status)
	return status, nil
}

// HandleWebhook verifies and applies a Stripe event. It reports duplicate
// when the event was already processed successfully.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return false, err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Infof("[Billing] duplicate webhook %s ignored", event.ID)
		return true, nil
	}

	procErr := s.apply(event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Errorf("[Billing] failed to mark webhook %s processed: %v", event.ID, err)
	}
	return false, procErr
}

func (s *Service) apply(event stripe.Event) error {
	switch string(event.Type) {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.applyCheckoutCompleted(&sess)
	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.applySubscriptionDeleted(&sub)
	default:
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(sess *stripe.CheckoutSession) error {
	ref := strings.TrimSpace(sess.ClientReferenceID)
	if ref == "" {
		return ErrMissingReference
	}
	userID, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMissingReference, ref)
	}

	if _, err := s.profiles.GetByUserID(uint(userID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] checkout completed for user %d but no profile exists", userID)
			return nil
		}
		return fmt.Errorf("load profile %d: %w", userID, err)
	}

	fields := map[string]interface{}{
		"account_type":  models.AccountTypePro,
		"tokens_left":   entitlements.ReplenishTokens,
		"trial_used":    true,
		"trial_ends_at": nil,
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		fields["stripe_customer_id"] = sess.Customer.ID
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		fields["stripe_subscription_id"] = sess.Subscription.ID
	}

	if err := s.profiles.UpdateFields(uint(userID), fields); err != nil {
		return fmt.Errorf("upgrade profile %d: %w", userID, err)
	}
	log.Infof("[Billing] user %d upgraded to pro", userID)
	return nil
}

func (s *Service) applySubscriptionDeleted(sub *stripe.Subscription) error {
	if sub.ID == "" {
		return nil
	}
	profile, err := s.profiles.GetByStripeSubscriptionID(sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] subscription %s deleted but no profile references it", sub.ID)
			return nil
		}
		return err
	}

	err = s.profiles.UpdateFields(profile.UserID, map[string]interface{}{
		"account_type":           models.AccountTypeFree,
		"stripe_customer_id":     nil,
		"stripe_subscription_id": nil,
	})
	if err != nil {
		return fmt.Errorf("downgrade profile %d: %w", profile.UserID, err)
	}
	log.Infof("[Billing] user %d downgraded after subscription end", profile.UserID)
	return nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.events.Claim(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.events.Finish(webhookEventID, s.now(), errMsg)
}
