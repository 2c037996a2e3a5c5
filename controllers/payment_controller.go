package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"drivncook/config"
	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

const (
	paymentPurposeEntryFee = "entry_fee"
	paymentPurposeOrder    = "order"
)

// loadOwnFranchise fetches the caller's franchise, writing the error response
// itself when it fails
func loadOwnFranchise(c *gin.Context) (database.Franchise, bool) {
	var franchise database.Franchise

	franchiseID, ok := currentFranchiseID(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
		return franchise, false
	}

	if err := database.DB.First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return franchise, false
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return franchise, false
	}

	return franchise, true
}

// CreateEntryFeeCheckout opens a hosted checkout session for the entry fee
func CreateEntryFeeCheckout(c *gin.Context) {
	franchise, ok := loadOwnFranchise(c)
	if !ok {
		return
	}

	if franchise.EntryFeePaid {
		utils.RespondError(c, http.StatusBadRequest, "Entry fee has already been paid")
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyEUR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Droit d'entrée DRIV'N COOK - " + franchise.CompanyName),
					},
					UnitAmount: stripe.Int64(int64(franchise.EntryFee * 100)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.AppConfig.FrontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(config.AppConfig.FrontendURL + "/payment/cancel"),
	}
	params.AddMetadata("purpose", paymentPurposeEntryFee)
	params.AddMetadata("franchise_id", strconv.FormatUint(uint64(franchise.ID), 10))

	sess, err := session.New(params)
	if err != nil {
		utils.Log.Errorw("Stripe session creation failed", "error", err, "franchise_id", franchise.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create payment session")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
		"amount":       franchise.EntryFee,
	}, "")
}

// CreateEntryFeeIntent creates a payment intent for client-side confirmation
func CreateEntryFeeIntent(c *gin.Context) {
	franchise, ok := loadOwnFranchise(c)
	if !ok {
		return
	}

	if franchise.EntryFeePaid {
		utils.RespondError(c, http.StatusBadRequest, "Entry fee has already been paid")
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(franchise.EntryFee * 100)),
		Currency: stripe.String(string(stripe.CurrencyEUR)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("purpose", paymentPurposeEntryFee)
	params.AddMetadata("franchise_id", strconv.FormatUint(uint64(franchise.ID), 10))
	params.IdempotencyKey = stripe.String(uuid.NewString())

	intent, err := paymentintent.New(params)
	if err != nil {
		utils.Log.Errorw("Stripe intent creation failed", "error", err, "franchise_id", franchise.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create payment intent")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount":            franchise.EntryFee,
	}, "")
}

// ConfirmPaymentRequest carries the intent the client just confirmed
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// ConfirmEntryFeePayment verifies a client-confirmed intent against the
// gateway and applies the entry-fee settlement
func ConfirmEntryFeePayment(c *gin.Context) {
	franchise, ok := loadOwnFranchise(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	intent, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		utils.Log.Errorw("Stripe intent lookup failed", "error", err)
		utils.RespondError(c, http.StatusBadRequest, "Unknown payment intent")
		return
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		utils.RespondError(c, http.StatusBadRequest, "Payment has not succeeded")
		return
	}
	if intent.Metadata["purpose"] != paymentPurposeEntryFee ||
		intent.Metadata["franchise_id"] != strconv.FormatUint(uint64(franchise.ID), 10) {
		utils.RespondError(c, http.StatusBadRequest, "Payment intent does not match this franchise")
		return
	}

	if _, err := applyEntryFeePaid(franchise.ID, intent.ID); err != nil {
		utils.Log.Errorw("Entry fee settlement failed", "error", err, "franchise_id", franchise.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	if err := database.DB.First(&franchise, franchise.ID).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, franchise, "Entry fee payment recorded")
}

// CreateOrderCheckout opens a hosted checkout session for an order
func CreateOrderCheckout(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}
	if !orderPayable(c, order) {
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyEUR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Commande " + order.OrderNumber),
					},
					UnitAmount: stripe.Int64(int64(order.TotalAmount * 100)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.AppConfig.FrontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(config.AppConfig.FrontendURL + "/payment/cancel"),
	}
	params.AddMetadata("purpose", paymentPurposeOrder)
	params.AddMetadata("order_id", strconv.FormatUint(uint64(order.ID), 10))

	sess, err := session.New(params)
	if err != nil {
		utils.Log.Errorw("Stripe session creation failed", "error", err, "order_id", order.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create payment session")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
		"amount":       order.TotalAmount,
	}, "")
}

// CreateOrderPaymentIntent creates an intent for client-side confirmation
func CreateOrderPaymentIntent(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}
	if !orderPayable(c, order) {
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(order.TotalAmount * 100)),
		Currency: stripe.String(string(stripe.CurrencyEUR)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("purpose", paymentPurposeOrder)
	params.AddMetadata("order_id", strconv.FormatUint(uint64(order.ID), 10))
	params.IdempotencyKey = stripe.String(uuid.NewString())

	intent, err := paymentintent.New(params)
	if err != nil {
		utils.Log.Errorw("Stripe intent creation failed", "error", err, "order_id", order.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create payment intent")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount":            order.TotalAmount,
	}, "")
}

// orderPayable rejects orders that cannot take a payment, writing the
// error response itself
func orderPayable(c *gin.Context, order database.Order) bool {
	switch {
	case order.Status == database.OrderStatusPaid:
		utils.RespondError(c, http.StatusBadRequest, "Order is already paid")
	case order.Status == database.OrderStatusDraft:
		utils.RespondError(c, http.StatusBadRequest, "Order must be transmitted before payment")
	case order.Status == database.OrderStatusCancelled:
		utils.RespondError(c, http.StatusBadRequest, "Order is cancelled")
	case order.TotalAmount <= 0:
		utils.RespondError(c, http.StatusBadRequest, "Order has no billable amount")
	default:
		return true
	}
	return false
}

// ConfirmOrderPayment verifies a client-confirmed intent against the
// gateway and applies the order settlement
func ConfirmOrderPayment(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	intent, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		utils.Log.Errorw("Stripe intent lookup failed", "error", err)
		utils.RespondError(c, http.StatusBadRequest, "Unknown payment intent")
		return
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		utils.RespondError(c, http.StatusBadRequest, "Payment has not succeeded")
		return
	}
	if intent.Metadata["purpose"] != paymentPurposeOrder ||
		intent.Metadata["order_id"] != strconv.FormatUint(uint64(order.ID), 10) {
		utils.RespondError(c, http.StatusBadRequest, "Payment intent does not match this order")
		return
	}

	if _, err := applyOrderPaid(order.ID, intent.ID); err != nil {
		utils.Log.Errorw("Order settlement failed", "error", err, "order_id", order.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	if err := database.DB.Preload("Items").First(&order, order.ID).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, order, "Order payment recorded")
}

// StripeWebhook receives gateway events. The signature is verified against
// the webhook secret; the endpoint always acknowledges verified events so
// the gateway does not retry application-level failures forever.
func StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Unable to read request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.Log.Warnw("Webhook signature verification failed", "error", err)
		utils.RespondError(c, http.StatusBadRequest, "Invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			utils.Log.Errorw("Webhook payload decoding failed", "error", err, "event", event.ID)
			break
		}
		settleFromMetadata(sess.Metadata, sess.ID)
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			utils.Log.Errorw("Webhook payload decoding failed", "error", err, "event", event.ID)
			break
		}
		settleFromMetadata(intent.Metadata, intent.ID)
	default:
		utils.Log.Debugw("Ignoring webhook event", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// settleFromMetadata routes a verified gateway event to the matching
// settlement helper based on the metadata we stamped at creation time
func settleFromMetadata(metadata map[string]string, reference string) {
	switch metadata["purpose"] {
	case paymentPurposeEntryFee:
		id, err := strconv.ParseUint(metadata["franchise_id"], 10, 32)
		if err != nil {
			utils.Log.Warnw("Webhook metadata missing franchise_id", "reference", reference)
			return
		}
		if _, err := applyEntryFeePaid(uint(id), reference); err != nil {
			utils.Log.Errorw("Entry fee settlement failed", "error", err, "reference", reference)
		}
	case paymentPurposeOrder:
		id, err := strconv.ParseUint(metadata["order_id"], 10, 32)
		if err != nil {
			utils.Log.Warnw("Webhook metadata missing order_id", "reference", reference)
			return
		}
		if _, err := applyOrderPaid(uint(id), reference); err != nil {
			utils.Log.Errorw("Order settlement failed", "error", err, "reference", reference)
		}
	default:
		utils.Log.Debugw("Webhook event without settlement purpose", "reference", reference)
	}
}

// applyEntryFeePaid marks the entry fee as settled. Both the client confirm
// path and the webhook call this, so it short-circuits when the fee is
// already recorded and reports whether this call applied the change.
func applyEntryFeePaid(franchiseID uint, reference string) (bool, error) {
	var franchise database.Franchise
	applied := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&franchise, franchiseID).Error; err != nil {
			return err
		}
		if franchise.EntryFeePaid {
			return nil
		}

		before := franchise
		now := time.Now()
		franchise.EntryFeePaid = true
		franchise.EntryFeePaidAt = &now

		// Activation requires both validated documents and a settled fee
		if franchise.DocumentsValidated && franchise.Status == database.FranchiseStatusPending {
			franchise.Status = database.FranchiseStatusActive
		}

		if err := tx.Save(&franchise).Error; err != nil {
			return err
		}

		services.WriteAudit(tx, services.AuditEntry{
			Action:    "ENTRY_FEE_PAID",
			TableName: "franchises",
			RecordID:  franchise.ID,
			Before:    before,
			After:     franchise,
		})

		applied = true
		return nil
	})
	if err != nil || !applied {
		return false, err
	}

	relatedID := franchise.ID
	services.Dispatch(services.NotificationPayload{
		Type:        "entry_fee_paid",
		Title:       "Droit d'entrée réglé",
		Message:     fmt.Sprintf("Votre paiement du droit d'entrée (%.2f EUR) a bien été enregistré.", franchise.EntryFee),
		UserID:      &franchise.UserID,
		RelatedID:   &relatedID,
		RelatedType: "franchise",
		ActionURL:   "/franchise/profile",
		SendEmail:   true,
	})
	services.Dispatch(services.NotificationPayload{
		Type:        "entry_fee_paid",
		Title:       "Droit d'entrée encaissé",
		Message:     fmt.Sprintf("La franchise %s a réglé son droit d'entrée (réf. %s).", franchise.CompanyName, reference),
		TargetRole:  database.RoleAdmin,
		RelatedID:   &relatedID,
		RelatedType: "franchise",
		ActionURL:   fmt.Sprintf("/admin/franchises/%d", franchise.ID),
		SendEmail:   true,
	})

	return true, nil
}

// applyOrderPaid marks an order as paid and settles its invoice, creating
// one when the order was never invoiced. Idempotent for the same reasons
// as applyEntryFeePaid.
func applyOrderPaid(orderID uint, reference string) (bool, error) {
	var order database.Order
	applied := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Franchise").First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status == database.OrderStatusPaid {
			return nil
		}

		before := order
		order.Status = database.OrderStatusPaid
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		now := time.Now()
		var invoice database.Invoice
		err := tx.Where("order_id = ?", order.ID).First(&invoice).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			orderRef := order.ID
			invoice = database.Invoice{
				FranchiseID:   order.FranchiseID,
				OrderID:       &orderRef,
				Amount:        order.TotalAmount,
				Description:   "Commande " + order.OrderNumber,
				DueDate:       now.AddDate(0, 0, 7),
				PaymentStatus: database.InvoiceStatusPaid,
				PaidDate:      &now,
			}
			if _, err := createInvoiceWithNumber(tx, invoice); err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if invoice.PaymentStatus != database.InvoiceStatusPaid {
			invoice.PaymentStatus = database.InvoiceStatusPaid
			invoice.PaidDate = &now
			if err := tx.Save(&invoice).Error; err != nil {
				return err
			}
		}

		services.WriteAudit(tx, services.AuditEntry{
			Action:    "ORDER_PAID",
			TableName: "orders",
			RecordID:  order.ID,
			Before:    before,
			After:     order,
		})

		applied = true
		return nil
	})
	if err != nil || !applied {
		return false, err
	}

	services.NotifyOrderStatusChange(order, order.Franchise.UserID, database.OrderStatusPaid)
	return true, nil
}
