// Package ussd implements the menu state machine behind the gateway callback.
// Session state is reconstructed on every request from the accumulated input
// path, so each handler is a pure function of (phoneNumber, keystrokes).
package ussd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qatalysthq/qatalyst-backend/internal/airtime"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/metrics"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

const (
	mainMenu = `Qatalyst Queue Service:
1. Join Queue
2. Check Status
3. Buy Airtime
4. Buy Data

Reply with 1-4`

	serviceMenu = `Select Service:
1. Bank Teller
2. Doctor
3. Government Service
4. Utility Payment

Reply with 1-4`

	dataMenu = `Select Data Bundle:
1. 100MB - ₦100
2. 500MB - ₦300
3. 1GB - ₦500
4. 2GB - ₦800

Reply with 1-4`

	invalidOptionMsg    = "Invalid option. Please dial again to restart."
	serviceDownMsg      = "Service temporarily unavailable. Please try again later."
	invalidPhoneMsg     = "Invalid phone number."
	ticketNotFoundMsg   = "❌ Ticket not found. Please check your number."
	operationCancelled  = "Operation cancelled. Thank you."
	transactionCanceled = "Transaction cancelled."
)

// Engine drives the USSD menus over the queue and purchase collaborators.
type Engine struct {
	queue   queue.Service
	airtime airtime.Service
	logg    *logger.Logger
	metrics *metrics.QueueMetrics
}

func NewEngine(queueSvc queue.Service, airtimeSvc airtime.Service, logg *logger.Logger, qm *metrics.QueueMetrics) (*Engine, error) {
	if queueSvc == nil {
		return nil, fmt.Errorf("queue service required")
	}
	if airtimeSvc == nil {
		return nil, fmt.Errorf("airtime service required")
	}
	return &Engine{queue: queueSvc, airtime: airtimeSvc, logg: logg, metrics: qm}, nil
}

// Handle resolves one gateway callback. It never returns an error: every
// failure renders as a terminal reply and the raw cause goes to the logs.
func (e *Engine) Handle(ctx context.Context, rawPhone, text string) Reply {
	started := time.Now()

	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		e.securityEvent(ctx, rawPhone, "malformed phone on ussd callback")
		e.metrics.IncUSSDSession("root", "rejected")
		return End(invalidPhoneMsg)
	}

	var input []string
	if strings.TrimSpace(text) != "" {
		input = strings.Split(text, "*")
	}

	flow, reply := e.dispatch(ctx, normalized, input)

	outcome := "continue"
	if reply.Terminal {
		outcome = "end"
	}
	e.metrics.IncUSSDSession(flow, outcome)
	e.metrics.ObserveUSSDDuration(flow, time.Since(started))
	return reply
}

func (e *Engine) dispatch(ctx context.Context, msisdn string, input []string) (string, Reply) {
	if len(input) == 0 {
		return "root", Continue(mainMenu)
	}

	switch input[0] {
	case "1":
		return "join", e.handleJoinQueue(ctx, msisdn, input)
	case "2":
		return "status", e.handleCheckStatus(ctx, msisdn, input)
	case "3":
		return "airtime", e.handleBuyAirtime(ctx, msisdn, input)
	case "4":
		return "data", e.handleBuyData(ctx, msisdn, input)
	default:
		return "root", e.invalidOption(ctx, msisdn)
	}
}

func (e *Engine) handleJoinQueue(ctx context.Context, msisdn string, input []string) Reply {
	switch len(input) {
	case 1:
		return Continue(serviceMenu)

	case 2:
		serviceType, ok := queue.ServiceByMenuOption(input[1])
		if !ok {
			return e.invalidOption(ctx, msisdn)
		}
		return Continue(fmt.Sprintf("You selected %q.\nDo you want to join this queue?\n1. Yes\n2. No", serviceType))

	case 3:
		serviceType, ok := queue.ServiceByMenuOption(input[1])
		if !ok {
			return e.invalidOption(ctx, msisdn)
		}
		switch input[2] {
		case "2":
			return End(operationCancelled)
		case "1":
			result, err := e.queue.Join(ctx, queue.JoinInput{Phone: msisdn, ServiceType: serviceType})
			if err != nil {
				return e.failure(ctx, msisdn, "join queue failed", err)
			}
			return End(fmt.Sprintf(`✅ You joined the %s queue!

Ticket: %s
Position: %d
Wait Time: ~%d min
People Ahead: %d

We'll notify you via SMS.`, serviceType, result.TicketNumber, result.Position, result.WaitTimeMinutes, result.PeopleAhead))
		default:
			return e.invalidOption(ctx, msisdn)
		}

	default:
		return e.invalidOption(ctx, msisdn)
	}
}

func (e *Engine) handleCheckStatus(ctx context.Context, msisdn string, input []string) Reply {
	switch len(input) {
	case 1:
		return Continue("Enter your Ticket Number:")

	case 2:
		status, err := e.queue.Status(ctx, input[1])
		if err != nil {
			te := pkgerrors.As(err)
			if te != nil && (te.Code() == pkgerrors.CodeValidation || te.Code() == pkgerrors.CodeNotFound) {
				if te.Code() == pkgerrors.CodeValidation {
					e.securityEvent(ctx, msisdn, "malformed ticket number on status lookup")
				}
				return End(ticketNotFoundMsg)
			}
			return e.failure(ctx, msisdn, "status lookup failed", err)
		}
		return End(fmt.Sprintf("🎫 Ticket: %s\nPosition: %d\nNow Serving: %s\nWait: ~%d min",
			status.TicketNumber, status.Position, status.NowServing, status.WaitTimeMinutes))

	default:
		return e.invalidOption(ctx, msisdn)
	}
}

func (e *Engine) handleBuyAirtime(ctx context.Context, msisdn string, input []string) Reply {
	switch len(input) {
	case 1:
		return Continue("Enter amount to buy:")

	case 2:
		if _, ok := parseAmount(input[1]); !ok {
			return Continue("Invalid amount. Please enter a valid amount:")
		}
		return Continue("Enter recipient number (e.g. +2547...):")

	case 3:
		amount, ok := parseAmount(input[1])
		if !ok {
			return e.invalidOption(ctx, msisdn)
		}
		recipient := input[2]
		if !validRecipient(recipient) {
			return Continue("Invalid phone number. Please re-enter:")
		}

		receipt := e.airtime.Purchase(ctx, recipient, amount)
		if !receipt.Success {
			return End(fmt.Sprintf("❌ Transaction Failed.\nReason: %s", reasonOrDefault(receipt.Reason)))
		}
		return End(fmt.Sprintf("💳 Airtime Purchase Successful!\nAmount: %d KES\nRecipient: %s\nTransaction ID: %s",
			amount, recipient, receipt.TransactionID))

	default:
		return e.invalidOption(ctx, msisdn)
	}
}

func (e *Engine) handleBuyData(ctx context.Context, msisdn string, input []string) Reply {
	switch len(input) {
	case 1:
		return Continue(dataMenu)

	case 2:
		bundle, ok := airtime.BundleByID(input[1])
		if !ok {
			return e.invalidOption(ctx, msisdn)
		}
		return Continue(fmt.Sprintf("Confirm purchase of %s for ₦%d?\n1. Yes\n2. No", bundle.Size, bundle.AmountNGN))

	case 3:
		if _, ok := airtime.BundleByID(input[1]); !ok {
			return e.invalidOption(ctx, msisdn)
		}
		switch input[2] {
		case "2":
			return End(transactionCanceled)
		case "1":
			receipt := e.airtime.PurchaseBundle(ctx, msisdn, input[1])
			if !receipt.Success {
				return End(fmt.Sprintf("❌ Transaction Failed.\nReason: %s", reasonOrDefault(receipt.Reason)))
			}
			return End(fmt.Sprintf("📱 Data Purchase Successful!\nBundle: %s\nTransaction ID: %s",
				receipt.Bundle.Size, receipt.TransactionID))
		default:
			return e.invalidOption(ctx, msisdn)
		}

	default:
		return e.invalidOption(ctx, msisdn)
	}
}

func (e *Engine) invalidOption(ctx context.Context, msisdn string) Reply {
	e.securityEvent(ctx, msisdn, "invalid ussd option")
	return End(invalidOptionMsg)
}

func (e *Engine) failure(ctx context.Context, msisdn string, msg string, err error) Reply {
	if e.logg != nil {
		logCtx := e.logg.WithPhone(ctx, phone.Mask(msisdn))
		e.logg.Error(logCtx, msg, err)
	}
	return End(serviceDownMsg)
}

func (e *Engine) securityEvent(ctx context.Context, msisdn string, msg string) {
	if e.logg == nil {
		return
	}
	logCtx := e.logg.WithPhone(ctx, phone.Mask(msisdn))
	logCtx = e.logg.WithField(logCtx, "security_event", true)
	e.logg.Warn(logCtx, msg)
}

func parseAmount(raw string) (int, bool) {
	amount, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !airtime.ValidAmount(amount) {
		return 0, false
	}
	return amount, true
}

// validRecipient mirrors the loose gateway-side check: "+" prefix and at
// least ten characters once whitespace is stripped. Full normalization
// happens inside the purchase collaborator.
func validRecipient(raw string) bool {
	cleaned := strings.ReplaceAll(raw, " ", "")
	return strings.HasPrefix(cleaned, "+") && len(cleaned) >= 10
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "Unknown error"
	}
	return reason
}
