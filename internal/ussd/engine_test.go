package ussd

import (
	"context"
	"strings"
	"testing"

	"github.com/qatalysthq/qatalyst-backend/internal/airtime"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
)

type stubQueueService struct {
	joinResult   *queue.JoinResult
	joinErr      error
	joinCalls    []queue.JoinInput
	statusResult *queue.StatusResult
	statusErr    error
	statusCalls  []string
}

func (s *stubQueueService) Join(ctx context.Context, input queue.JoinInput) (*queue.JoinResult, error) {
	s.joinCalls = append(s.joinCalls, input)
	return s.joinResult, s.joinErr
}

func (s *stubQueueService) List(ctx context.Context) ([]queue.TicketView, error) {
	panic("not implemented")
}

func (s *stubQueueService) Status(ctx context.Context, ticketNumber string) (*queue.StatusResult, error) {
	s.statusCalls = append(s.statusCalls, ticketNumber)
	return s.statusResult, s.statusErr
}

func (s *stubQueueService) PositionByPhone(ctx context.Context, phone string) (*queue.PhonePosition, error) {
	panic("not implemented")
}

func (s *stubQueueService) CallNext(ctx context.Context, agentID, serviceType string) (*queue.CallNextResult, error) {
	panic("not implemented")
}

type stubAirtimeService struct {
	receipt       airtime.Receipt
	bundleReceipt airtime.Receipt
	purchases     []int
	bundles       []string
}

func (s *stubAirtimeService) Purchase(ctx context.Context, phone string, amountNGN int) airtime.Receipt {
	s.purchases = append(s.purchases, amountNGN)
	return s.receipt
}

func (s *stubAirtimeService) PurchaseBundle(ctx context.Context, phone string, bundleID string) airtime.Receipt {
	s.bundles = append(s.bundles, bundleID)
	return s.bundleReceipt
}

func newTestEngine(t *testing.T, queueSvc *stubQueueService, airtimeSvc *stubAirtimeService) *Engine {
	t.Helper()

	engine, err := NewEngine(queueSvc, airtimeSvc, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func handle(t *testing.T, engine *Engine, text string) Reply {
	t.Helper()
	return engine.Handle(context.Background(), "+254711223344", text)
}

func TestMainMenu(t *testing.T) {
	engine := newTestEngine(t, &stubQueueService{}, &stubAirtimeService{})

	for _, text := range []string{"", "  "} {
		reply := handle(t, engine, text)
		if reply.Terminal {
			t.Fatalf("main menu must continue, got %+v", reply)
		}
		rendered := reply.Render()
		if !strings.HasPrefix(rendered, "CON Qatalyst Queue Service:") {
			t.Fatalf("unexpected menu: %q", rendered)
		}
		for _, option := range []string{"1. Join Queue", "2. Check Status", "3. Buy Airtime", "4. Buy Data"} {
			if !strings.Contains(rendered, option) {
				t.Fatalf("menu missing %q: %q", option, rendered)
			}
		}
	}
}

func TestJoinFlowHappyPath(t *testing.T) {
	queueSvc := &stubQueueService{joinResult: &queue.JoinResult{
		TicketNumber:    "T000042",
		Position:        3,
		WaitTimeMinutes: 6,
		PeopleAhead:     2,
		ServiceType:     queue.ServiceDoctor,
	}}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := handle(t, engine, "1")
	if reply.Terminal || !strings.Contains(reply.Text, "Select Service:") {
		t.Fatalf("unexpected service menu: %+v", reply)
	}

	reply = handle(t, engine, "1*2")
	if reply.Terminal || !strings.Contains(reply.Text, `You selected "Doctor".`) {
		t.Fatalf("unexpected confirmation prompt: %+v", reply)
	}

	// Doctor, then confirm Yes.
	reply = handle(t, engine, "1*2*1")
	if !reply.Terminal {
		t.Fatalf("confirmed join must end the session: %+v", reply)
	}
	if !strings.Contains(reply.Text, "Ticket: T000042") {
		t.Fatalf("missing ticket number: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Position: 3") {
		t.Fatalf("missing position line: %q", reply.Text)
	}

	if len(queueSvc.joinCalls) != 1 {
		t.Fatalf("expected one join call, got %d", len(queueSvc.joinCalls))
	}
	if queueSvc.joinCalls[0].ServiceType != queue.ServiceDoctor {
		t.Fatalf("wrong service type: %q", queueSvc.joinCalls[0].ServiceType)
	}
}

func TestJoinFlowCancellation(t *testing.T) {
	queueSvc := &stubQueueService{}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := handle(t, engine, "1*1*2")
	if !reply.Terminal || reply.Text != "Operation cancelled. Thank you." {
		t.Fatalf("unexpected cancellation reply: %+v", reply)
	}
	if len(queueSvc.joinCalls) != 0 {
		t.Fatal("cancellation must not join")
	}
}

func TestJoinFlowServiceFailure(t *testing.T) {
	queueSvc := &stubQueueService{joinErr: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := handle(t, engine, "1*1*1")
	if !reply.Terminal || reply.Text != "Service temporarily unavailable. Please try again later." {
		t.Fatalf("unexpected failure reply: %+v", reply)
	}
}

func TestCheckStatusFlow(t *testing.T) {
	queueSvc := &stubQueueService{statusResult: &queue.StatusResult{
		TicketNumber:    "T000007",
		Position:        2,
		NowServing:      "T000005",
		WaitTimeMinutes: 2,
	}}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := handle(t, engine, "2")
	if reply.Terminal || reply.Text != "Enter your Ticket Number:" {
		t.Fatalf("unexpected prompt: %+v", reply)
	}

	reply = handle(t, engine, "2*T000007")
	if !reply.Terminal {
		t.Fatalf("status reply must end the session: %+v", reply)
	}
	want := "🎫 Ticket: T000007\nPosition: 2\nNow Serving: T000005\nWait: ~2 min"
	if reply.Text != want {
		t.Fatalf("unexpected status copy:\n got %q\nwant %q", reply.Text, want)
	}
}

func TestCheckStatusNotFoundAndMalformed(t *testing.T) {
	queueSvc := &stubQueueService{statusErr: pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := handle(t, engine, "2*T999999")
	if !reply.Terminal || reply.Text != "❌ Ticket not found. Please check your number." {
		t.Fatalf("unexpected not-found reply: %+v", reply)
	}

	queueSvc.statusErr = pkgerrors.New(pkgerrors.CodeValidation, "bad format")
	reply = handle(t, engine, "2*X123456")
	if !reply.Terminal || reply.Text != "❌ Ticket not found. Please check your number." {
		t.Fatalf("unexpected malformed reply: %+v", reply)
	}
}

func TestBuyAirtimeFlow(t *testing.T) {
	airtimeSvc := &stubAirtimeService{receipt: airtime.Receipt{Success: true, TransactionID: "TXN-77"}}
	engine := newTestEngine(t, &stubQueueService{}, airtimeSvc)

	reply := handle(t, engine, "3")
	if reply.Terminal || reply.Text != "Enter amount to buy:" {
		t.Fatalf("unexpected amount prompt: %+v", reply)
	}

	// Invalid amounts re-prompt without ending the session.
	for _, amount := range []string{"abc", "0", "10001"} {
		reply = handle(t, engine, "3*"+amount)
		if reply.Terminal || reply.Text != "Invalid amount. Please enter a valid amount:" {
			t.Fatalf("amount %q: unexpected reply %+v", amount, reply)
		}
	}

	reply = handle(t, engine, "3*500")
	if reply.Terminal || !strings.Contains(reply.Text, "Enter recipient number") {
		t.Fatalf("unexpected recipient prompt: %+v", reply)
	}

	reply = handle(t, engine, "3*500*0712345")
	if reply.Terminal || reply.Text != "Invalid phone number. Please re-enter:" {
		t.Fatalf("unexpected recipient rejection: %+v", reply)
	}

	reply = handle(t, engine, "3*500*+254712345678")
	if !reply.Terminal {
		t.Fatalf("purchase must end the session: %+v", reply)
	}
	for _, line := range []string{"💳 Airtime Purchase Successful!", "Amount: 500 KES", "Transaction ID: TXN-77"} {
		if !strings.Contains(reply.Text, line) {
			t.Fatalf("receipt missing %q: %q", line, reply.Text)
		}
	}
	if len(airtimeSvc.purchases) != 1 || airtimeSvc.purchases[0] != 500 {
		t.Fatalf("unexpected purchase calls: %v", airtimeSvc.purchases)
	}
}

func TestBuyAirtimeFailure(t *testing.T) {
	airtimeSvc := &stubAirtimeService{receipt: airtime.Receipt{Reason: "gateway down"}}
	engine := newTestEngine(t, &stubQueueService{}, airtimeSvc)

	reply := handle(t, engine, "3*500*+254712345678")
	if !reply.Terminal || reply.Text != "❌ Transaction Failed.\nReason: gateway down" {
		t.Fatalf("unexpected failure reply: %+v", reply)
	}
}

func TestBuyDataFlow(t *testing.T) {
	bundle := airtime.Bundle{ID: "3", Size: "1GB", AmountNGN: 500}
	airtimeSvc := &stubAirtimeService{bundleReceipt: airtime.Receipt{
		Success:       true,
		TransactionID: "NGDATATXN-5",
		Bundle:        &bundle,
	}}
	engine := newTestEngine(t, &stubQueueService{}, airtimeSvc)

	reply := handle(t, engine, "4")
	if reply.Terminal || !strings.Contains(reply.Text, "Select Data Bundle:") {
		t.Fatalf("unexpected bundle menu: %+v", reply)
	}

	reply = handle(t, engine, "4*3")
	if reply.Terminal || reply.Text != "Confirm purchase of 1GB for ₦500?\n1. Yes\n2. No" {
		t.Fatalf("unexpected confirmation: %+v", reply)
	}

	reply = handle(t, engine, "4*3*2")
	if !reply.Terminal || reply.Text != "Transaction cancelled." {
		t.Fatalf("unexpected cancellation: %+v", reply)
	}

	reply = handle(t, engine, "4*3*1")
	if !reply.Terminal {
		t.Fatalf("purchase must end the session: %+v", reply)
	}
	if !strings.Contains(reply.Text, "📱 Data Purchase Successful!") || !strings.Contains(reply.Text, "Bundle: 1GB") {
		t.Fatalf("unexpected receipt: %q", reply.Text)
	}
	if len(airtimeSvc.bundles) != 1 || airtimeSvc.bundles[0] != "3" {
		t.Fatalf("unexpected bundle calls: %v", airtimeSvc.bundles)
	}
}

func TestInvalidOptionsTerminate(t *testing.T) {
	engine := newTestEngine(t, &stubQueueService{}, &stubAirtimeService{})

	for _, text := range []string{"9", "1*7", "1*1*9", "4*9", "1*1*1*1", "2*T000001*1"} {
		reply := handle(t, engine, text)
		if !reply.Terminal || reply.Text != "Invalid option. Please dial again to restart." {
			t.Fatalf("path %q: expected invalid-option END, got %+v", text, reply)
		}
	}
}

func TestMalformedPhoneRejectedBeforeMenus(t *testing.T) {
	queueSvc := &stubQueueService{}
	engine := newTestEngine(t, queueSvc, &stubAirtimeService{})

	reply := engine.Handle(context.Background(), "not-a-phone", "1*1*1")
	if !reply.Terminal || reply.Text != "Invalid phone number." {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(queueSvc.joinCalls) != 0 {
		t.Fatal("menu logic must not run for malformed phones")
	}
}

func TestRenderPrefixes(t *testing.T) {
	if got := Continue("hello").Render(); got != "CON hello" {
		t.Fatalf("unexpected render %q", got)
	}
	if got := End("bye").Render(); got != "END bye" {
		t.Fatalf("unexpected render %q", got)
	}
}
