package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/Skotchmaster/storefront/internal/api"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrSubmitInFlight = errors.New("checkout submission already in progress")
	ErrVerifyFailed   = errors.New("cannot verify purchase")
)

// StashKey is the tab-scoped key the shipping address survives the payment
// redirect under.
const StashKey = "shippingAddress"

type State int

const (
	StateIdle State = iota
	StateAddressEntry
	StateSubmitting
	StateRedirected
	StateVerifying
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAddressEntry:
		return "address_entry"
	case StateSubmitting:
		return "submitting"
	case StateRedirected:
		return "redirected_to_payment"
	case StateVerifying:
		return "verifying"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Stash is tab-scoped storage: it survives the external payment redirect but
// not a full restart.
type Stash interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Orchestrator drives a single checkout attempt through
// idle -> address entry -> submitting -> redirected -> verifying ->
// completed or failed.
type Orchestrator struct {
	api    *api.Client
	cart   *cart.Store
	stash  Stash
	log    *slog.Logger
	events events.Publisher

	mu         sync.Mutex
	state      State
	submitting bool

	verifyStarted atomic.Bool
	verifyOutcome error
	verifyDone    bool
}

func NewOrchestrator(client *api.Client, cartStore *cart.Store, stash Stash, log *slog.Logger, pub events.Publisher) *Orchestrator {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Orchestrator{
		api:    client,
		cart:   cartStore,
		stash:  stash,
		log:    log,
		events: pub,
		state:  StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Begin moves into address entry so a new attempt can start. A failed
// attempt can be restarted from scratch; the cart was left intact for that.
func (o *Orchestrator) Begin() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateAddressEntry
}

// Submit validates the address, asks the backend for a payment session and
// returns the hosted payment page URL to redirect to. The address is stashed
// in tab storage before the redirect because it is not otherwise recoverable
// when the user comes back. On any backend failure the orchestrator returns
// to address entry with cart and address untouched.
func (o *Orchestrator) Submit(ctx context.Context, address models.ShippingAddress) (string, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return "", ErrSubmitInFlight
	}

	if err := ValidateAddress(address); err != nil {
		o.state = StateAddressEntry
		o.mu.Unlock()
		return "", err
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		o.state = StateAddressEntry
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrEmptyCart)
	}

	o.submitting = true
	o.state = StateSubmitting
	o.mu.Unlock()

	redirectURL, err := o.api.CreateCheckoutSession(ctx, lines, address)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitting = false
	if err != nil {
		o.state = StateAddressEntry
		return "", err
	}

	stashed, marshalErr := json.Marshal(address)
	if marshalErr != nil {
		o.state = StateAddressEntry
		return "", fmt.Errorf("stash shipping address: %w", marshalErr)
	}
	o.stash.Set(StashKey, string(stashed))
	o.state = StateRedirected

	if err := o.events.Publish(ctx, events.TopicCheckoutEvents, "session_created", map[string]any{
		"type":  "checkout_session_created",
		"items": len(lines),
	}); err != nil {
		o.log.Warn("event publish failed", "error", err)
	}
	return redirectURL, nil
}

// VerifyReturn consumes the return from the hosted payment page exactly
// once. A second invocation for the same return does not reach the backend;
// it reports the recorded outcome. The stashed address is discarded whatever
// happens. The cart is cleared only on success so a failed attempt can be
// retried from scratch.
func (o *Orchestrator) VerifyReturn(ctx context.Context, returnURL string) error {
	if !o.verifyStarted.CompareAndSwap(false, true) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.verifyDone {
			return fmt.Errorf("verification already in progress: %w", ErrVerifyFailed)
		}
		return o.verifyOutcome
	}

	o.mu.Lock()
	o.state = StateVerifying
	o.mu.Unlock()

	err := o.verify(ctx, returnURL)
	o.stash.Remove(StashKey)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.verifyDone = true
	o.verifyOutcome = err
	if err != nil {
		o.state = StateFailed
		return err
	}
	o.state = StateCompleted
	return nil
}

func (o *Orchestrator) verify(ctx context.Context, returnURL string) error {
	parsed, err := url.Parse(returnURL)
	if err != nil {
		return fmt.Errorf("%w: bad return url: %v", ErrVerifyFailed, err)
	}
	sessionID := parsed.Query().Get("session_id")
	if sessionID == "" {
		return fmt.Errorf("%w: no session id found in return url", ErrVerifyFailed)
	}

	raw, ok := o.stash.Get(StashKey)
	if !ok {
		return fmt.Errorf("%w: shipping address not found", ErrVerifyFailed)
	}
	var address models.ShippingAddress
	if err := json.Unmarshal([]byte(raw), &address); err != nil {
		return fmt.Errorf("%w: stored shipping address is unreadable", ErrVerifyFailed)
	}

	order, err := o.api.VerifyOrder(ctx, sessionID, address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}

	o.cart.Clear()

	if err := o.events.Publish(ctx, events.TopicCheckoutEvents, sessionID, map[string]any{
		"type":    "order_verified",
		"orderID": order.ID,
		"number":  order.Number,
	}); err != nil {
		o.log.Warn("event publish failed", "error", err)
	}
	return nil
}
