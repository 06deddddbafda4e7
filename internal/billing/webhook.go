package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

// webhookBodyLimit bounds inbound webhook payloads.
const webhookBodyLimit = 1 << 20

// WebhookHandler verifies and dispatches Stripe webhook events.
type WebhookHandler struct {
	secret string
	sync   *Synchronizer
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(secret string, sync *Synchronizer) *WebhookHandler {
	return &WebhookHandler{secret: secret, sync: sync}
}

// Handle verifies the Stripe signature and applies the event.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if strings.TrimSpace(h.secret) == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook secret not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, errRead := io.ReadAll(c.Request.Body)
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing Stripe signature"})
		return
	}

	event, errVerify := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if errVerify != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid Stripe signature"})
		return
	}

	fresh, errProcess := h.sync.ProcessEvent(c.Request.Context(), event.ID, string(event.Type),
		func(ctx context.Context, sync *Synchronizer) error {
			return handleEvent(ctx, sync, &event)
		})
	if errProcess != nil {
		log.WithError(errProcess).
			WithField("event_id", event.ID).
			WithField("type", string(event.Type)).
			Warn("billing: webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if !fresh {
		log.WithField("event_id", event.ID).Info("billing: webhook replay ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleEvent routes one verified event against a transaction-scoped
// synchronizer.
func handleEvent(ctx context.Context, sync *Synchronizer, event *stripelib.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripelib.CheckoutSession
		if errDecode := json.Unmarshal(event.Data.Raw, &session); errDecode != nil {
			return errDecode
		}

		userID, errParse := strconv.ParseUint(strings.TrimSpace(session.ClientReferenceID), 10, 64)
		if errParse != nil || userID == 0 {
			return errors.New("billing: missing client_reference_id")
		}
		plan := strings.TrimSpace(session.Metadata["plan"])
		if plan == "" {
			return errors.New("billing: missing plan metadata")
		}

		var customerID, subscriptionID string
		if session.Customer != nil {
			customerID = session.Customer.ID
		}
		if session.Subscription != nil {
			subscriptionID = session.Subscription.ID
		}
		return sync.ApplyPlanChange(ctx, userID, plan, customerID, subscriptionID)

	case "customer.subscription.updated":
		var sub stripelib.Subscription
		if errDecode := json.Unmarshal(event.Data.Raw, &sub); errDecode != nil {
			return errDecode
		}
		if sub.Customer == nil {
			return errors.New("billing: subscription without customer")
		}
		plan := strings.TrimSpace(sub.Metadata["plan"])
		if plan == "" {
			log.WithField("event_id", event.ID).Debug("billing: subscription update without plan metadata")
			return nil
		}
		userID, errFind := sync.UserIDByCustomer(ctx, sub.Customer.ID)
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				log.WithField("customer", sub.Customer.ID).Warn("billing: update for unknown customer")
				return nil
			}
			return errFind
		}
		return sync.ApplyPlanChange(ctx, userID, plan, sub.Customer.ID, sub.ID)

	case "customer.subscription.deleted":
		var sub stripelib.Subscription
		if errDecode := json.Unmarshal(event.Data.Raw, &sub); errDecode != nil {
			return errDecode
		}
		if sub.Customer == nil {
			return errors.New("billing: subscription without customer")
		}
		userID, errFind := sync.UserIDByCustomer(ctx, sub.Customer.ID)
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				log.WithField("customer", sub.Customer.ID).Warn("billing: cancellation for unknown customer")
				return nil
			}
			return errFind
		}
		return sync.RevertToFree(ctx, userID)

	case "invoice.payment_failed":
		log.WithField("event_id", event.ID).Warn("billing: invoice payment failed")
		return nil

	default:
		log.WithField("type", string(event.Type)).Debug("billing: webhook ignored")
		return nil
	}
}
