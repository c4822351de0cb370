package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgGenericFailure = "payment could not be started, please try again"
	msgTimedOut       = "payment timed out"
	msgLockHeld       = "another payment for this cart is already in progress"
	msgClosedEarly    = "checkout was closed before the payment started"
	lockReleaseBudget = 5 * time.Second
)

// PaymentAPI is the remote surface checkout drives.
type PaymentAPI interface {
	GetEvent(ctx context.Context, eventID string) (*ticketing.Event, error)
	InitiatePayment(ctx context.Context, req ticketing.InitiatePaymentRequest) (*ticketing.InitiatePaymentResponse, error)
	PaymentStatus(ctx context.Context, ticketGroup string) (*ticketing.PaymentStatus, error)
}

// OrderCreator persists the order once a payment settles.
type OrderCreator interface {
	Create(ctx context.Context, input orders.NewOrderInput) (*orders.Order, error)
}

// Lock keeps two attempts for one cart from running at once, across instances.
type Lock interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Options tunes the state machine timings.
type Options struct {
	Channel      enums.PaymentChannel
	PollInterval time.Duration
	Timeout      time.Duration
	SuccessDelay time.Duration
	LockTTL      time.Duration
}

func DefaultOptions() Options {
	return Options{
		Channel:      enums.PaymentChannelMPesa,
		PollInterval: 5 * time.Second,
		Timeout:      120 * time.Second,
		SuccessDelay: 1500 * time.Millisecond,
		LockTTL:      3 * time.Minute,
	}
}

// OptionsFromConfig fills unset values from DefaultOptions.
func OptionsFromConfig(cfg config.CheckoutConfig) Options {
	opts := DefaultOptions()
	if ch, err := enums.ParsePaymentChannel(cfg.Channel); err == nil {
		opts.Channel = ch
	}
	if cfg.PollInterval > 0 {
		opts.PollInterval = cfg.PollInterval
	}
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.SuccessDelay > 0 {
		opts.SuccessDelay = cfg.SuccessDelay
	}
	if cfg.LockTTL > 0 {
		opts.LockTTL = cfg.LockTTL
	}
	return opts
}

// Deps are the collaborators an Orchestrator needs.
type Deps struct {
	API     PaymentAPI
	Orders  OrderCreator
	Lock    Lock
	LockKey func(sessionID string) string
	Clock   clock.Clock
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
	Options Options
}

// Event is published on every state change.
type Event struct {
	State        enums.CheckoutState `json:"state"`
	Message      string              `json:"message,omitempty"`
	TicketGroup  string              `json:"ticketGroup,omitempty"`
	OrderID      *uuid.UUID          `json:"orderId,omitempty"`
	RedirectTo   string              `json:"redirectTo,omitempty"`
	InvalidLines []InvalidLine       `json:"invalidLines,omitempty"`
}

// Snapshot is the current checkout view for a session.
type Snapshot struct {
	State         enums.CheckoutState  `json:"state"`
	Channel       enums.PaymentChannel `json:"channel"`
	TicketGroup   string               `json:"ticketGroup,omitempty"`
	LastError     string               `json:"lastError,omitempty"`
	InvalidLines  []InvalidLine        `json:"invalidLines,omitempty"`
	OrderID       *uuid.UUID           `json:"orderId,omitempty"`
	RedirectTo    string               `json:"redirectTo,omitempty"`
	AwaitingSince *time.Time           `json:"awaitingSince,omitempty"`
	Deadline      *time.Time           `json:"deadline,omitempty"`
}

// activeTimers are armed while a payment awaits verification.
type activeTimers struct {
	cancelPoll context.CancelFunc
	ticker     *clock.Ticker
	timeout    *clock.Timer
}

func (a *activeTimers) stop() {
	a.cancelPoll()
	a.ticker.Stop()
	a.timeout.Stop()
}

// Orchestrator runs the payment state machine for one cart:
// idle -> processing -> awaiting_verification -> success | error.
// error is published and then immediately replaced by idle.
type Orchestrator struct {
	sessionID string
	cart      cart.Store
	deps      Deps
	validate  *validator.Validate

	mu            sync.Mutex
	state         enums.CheckoutState
	channel       enums.PaymentChannel
	attempt       uint64
	lockOwner     string
	ticketGroup   string
	lastError     string
	invalidLines  []InvalidLine
	orderID       *uuid.UUID
	redirectTo    string
	awaitingSince time.Time
	active        *activeTimers
	redirect      *clock.Timer
	closed        bool
	polls         sync.WaitGroup

	pubMu  sync.Mutex
	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New builds an idle orchestrator for the session's cart.
func New(sessionID string, store cart.Store, deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Options == (Options{}) {
		deps.Options = DefaultOptions()
	}
	if deps.LockKey == nil {
		deps.LockKey = func(id string) string { return "checkout_lock:" + id }
	}
	return &Orchestrator{
		sessionID: sessionID,
		cart:      store,
		deps:      deps,
		validate:  newValidator(),
		state:     enums.CheckoutStateIdle,
		channel:   deps.Options.Channel,
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for state changes and returns an unsubscribe func.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		delete(o.subs, id)
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        o.state,
		Channel:      o.channel,
		TicketGroup:  o.ticketGroup,
		LastError:    o.lastError,
		InvalidLines: append([]InvalidLine(nil), o.invalidLines...),
		OrderID:      o.orderID,
		RedirectTo:   o.redirectTo,
	}
	if o.state == enums.CheckoutStateAwaitingVerification {
		since := o.awaitingSince
		deadline := since.Add(o.deps.Options.Timeout)
		snap.AwaitingSince = &since
		snap.Deadline = &deadline
	}
	return snap
}

// SelectChannel switches the payment channel. Only allowed while idle.
func (o *Orchestrator) SelectChannel(channel enums.PaymentChannel) error {
	if !channel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment channel %q", channel))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != enums.CheckoutStateIdle {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment channel cannot change while a payment is in progress").
			WithDetails(map[string]any{"state": o.state})
	}
	o.channel = channel
	return nil
}

// Submit validates the form and cart, initiates the payment and, on success,
// leaves the orchestrator awaiting verification with polling armed.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (Snapshot, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.Name = strings.TrimSpace(form.Name)
	form.CouponCode = strings.TrimSpace(form.CouponCode)
	if err := o.validate.Struct(form); err != nil {
		o.deps.Metrics.IncOutcome(metrics.CheckoutInvalidForm)
		return o.Snapshot(), pkgerrors.Wrap(pkgerrors.CodeValidation, err, "check your email and phone number").
			WithDetails(fieldErrors(err))
	}

	items := o.cart.Snapshot(ctx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is closed")
	}
	if o.state.IsBusy() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment is already in progress").
			WithDetails(map[string]any{"state": snap.State})
	}
	if items.IsEmpty() {
		o.mu.Unlock()
		o.deps.Metrics.IncOutcome(metrics.CheckoutInvalidForm)
		return o.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	o.stopRedirectLocked()
	o.attempt++
	attempt := o.attempt
	owner := uuid.NewString()
	channel := o.channel
	o.state = enums.CheckoutStateProcessing
	o.ticketGroup = ""
	o.lastError = ""
	o.invalidLines = nil
	o.orderID = nil
	o.redirectTo = ""
	o.publishAndUnlock(Event{State: enums.CheckoutStateProcessing})

	ctx = o.deps.Logger.WithSessionID(ctx, o.sessionID)

	lockKey := o.deps.LockKey(o.sessionID)
	if o.deps.Lock != nil {
		ok, err := o.deps.Lock.Acquire(ctx, lockKey, owner, o.deps.Options.LockTTL)
		if err != nil {
			return o.fail(ctx, attempt, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not reserve checkout"), nil, metrics.CheckoutInitiateFailure)
		}
		if !ok {
			return o.fail(ctx, attempt, pkgerrors.New(pkgerrors.CodeStateConflict, msgLockHeld), nil, metrics.CheckoutInitiateFailure)
		}
		o.mu.Lock()
		current := o.attempt == attempt
		if current {
			o.lockOwner = owner
		}
		o.mu.Unlock()
		if !current {
			return o.abandon(ctx, owner)
		}
	}

	event, err := o.deps.API.GetEvent(ctx, items.EventID)
	if err != nil {
		outcome := metrics.CheckoutDependencyFailure
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			outcome = metrics.CheckoutInvalidCart
		}
		return o.fail(ctx, attempt, err, nil, outcome)
	}
	if invalid := checkInventory(items.Items, event); len(invalid) > 0 {
		verr := pkgerrors.New(pkgerrors.CodeValidation, invalidLinesMessage(invalid)).WithDetails(invalid)
		return o.fail(ctx, attempt, verr, invalid, metrics.CheckoutInvalidCart)
	}

	req := ticketing.InitiatePaymentRequest{
		EventID:         items.EventID,
		AmountDisplayed: items.Total,
		CouponCode:      form.CouponCode,
		Channel:         channel,
		Customer: ticketing.Customer{
			Email:        form.Email,
			MobileNumber: NormalizePhone(form.Phone),
		},
		Tickets: make([]ticketing.TicketLine, 0, len(items.Items)),
	}
	for _, item := range items.Items {
		req.Tickets = append(req.Tickets, ticketing.TicketLine{TicketID: item.TicketTypeID, Quantity: item.Quantity})
	}

	// Close may have run while the event was fetched; no charge may start
	// after that.
	if !o.isCurrent(attempt) {
		return o.abandon(ctx, owner)
	}
	resp, err := o.deps.API.InitiatePayment(ctx, req)
	if err != nil {
		return o.fail(ctx, attempt, err, nil, metrics.CheckoutInitiateFailure)
	}

	o.mu.Lock()
	if o.attempt != attempt || o.state != enums.CheckoutStateProcessing {
		o.mu.Unlock()
		o.deps.Logger.Warn(o.deps.Logger.WithTicketGroup(ctx, resp.TicketGroup), "payment initiated after checkout closed")
		return o.abandon(ctx, owner)
	}
	o.ticketGroup = resp.TicketGroup
	o.state = enums.CheckoutStateAwaitingVerification
	o.awaitingSince = o.deps.Clock.Now()

	pollCtx, cancel := context.WithCancel(o.deps.Logger.WithTicketGroup(context.WithoutCancel(ctx), resp.TicketGroup))
	// The timeout is armed before the ticker so it wins a same-instant tie.
	timeout := o.deps.Clock.AfterFunc(o.deps.Options.Timeout, func() { o.onTimeout(attempt) })
	ticker := o.deps.Clock.NewTicker(o.deps.Options.PollInterval)
	o.active = &activeTimers{cancelPoll: cancel, ticker: ticker, timeout: timeout}

	pending := pendingOrder{
		form:      form,
		eventID:   items.EventID,
		eventName: items.EventName,
		posterURL: event.PosterURL,
		channel:   channel,
	}
	o.polls.Add(1)
	go o.pollLoop(pollCtx, attempt, resp.TicketGroup, ticker, pending)

	snap := o.snapshotLocked()
	o.deps.Logger.Info(pollCtx, "payment initiated, awaiting verification")
	o.publishAndUnlock(Event{State: enums.CheckoutStateAwaitingVerification, TicketGroup: resp.TicketGroup})
	return snap, nil
}

type pendingOrder struct {
	form      Form
	eventID   string
	eventName string
	posterURL string
	channel   enums.PaymentChannel
}

func (o *Orchestrator) pollLoop(ctx context.Context, attempt uint64, ticketGroup string, ticker *clock.Ticker, pending pendingOrder) {
	defer o.polls.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !o.isAwaiting(attempt) {
			return
		}

		o.deps.Metrics.IncPoll()
		status, err := o.deps.API.PaymentStatus(ctx, ticketGroup)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			o.deps.Logger.Warn(ctx, fmt.Sprintf("payment status poll failed: %v", err))
			continue
		}
		if !status.Settled() {
			continue
		}
		o.settle(ctx, attempt, status, pending)
		return
	}
}

func (o *Orchestrator) isAwaiting(attempt uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt == attempt && o.state == enums.CheckoutStateAwaitingVerification
}

func (o *Orchestrator) settle(ctx context.Context, attempt uint64, status *ticketing.PaymentStatus, pending pendingOrder) {
	o.mu.Lock()
	if o.attempt != attempt || o.state != enums.CheckoutStateAwaitingVerification {
		o.mu.Unlock()
		return
	}
	o.drainLocked()
	ticketGroup := o.ticketGroup
	elapsed := o.deps.Clock.Now().Sub(o.awaitingSince)
	o.state = enums.CheckoutStateSuccess
	o.ticketGroup = ""
	o.mu.Unlock()

	// The poll context is cancelled by the drain above.
	ctx = context.WithoutCancel(ctx)
	o.deps.Metrics.ObserveSettlement(elapsed)

	order, err := o.deps.Orders.Create(ctx, orderInput(ticketGroup, status, pending))
	if err != nil {
		o.deps.Logger.Error(ctx, "order could not be saved after settlement", err)
		o.deps.Metrics.IncOutcome(metrics.CheckoutPersistFailure)
	} else {
		o.deps.Metrics.IncOutcome(metrics.CheckoutSuccess)
	}
	if clearErr := o.cart.Clear(ctx); clearErr != nil {
		o.deps.Logger.Warn(ctx, fmt.Sprintf("cart clear after settlement failed: %v", clearErr))
	}

	o.mu.Lock()
	o.releaseLockLocked(ctx)
	if o.attempt != attempt {
		o.mu.Unlock()
		return
	}
	evt := Event{State: enums.CheckoutStateSuccess}
	if err != nil {
		o.lastError = fmt.Sprintf("payment received but the order could not be saved; quote reference %s to support", ticketGroup)
		evt.Message = o.lastError
	} else {
		id := order.ID
		o.orderID = &id
		evt.OrderID = &id
		o.redirect = o.deps.Clock.AfterFunc(o.deps.Options.SuccessDelay, func() { o.navigate(attempt, id) })
	}
	o.deps.Logger.Info(ctx, "payment settled")
	o.publishAndUnlock(evt)
}

// navigate fires after the success display delay and resets to idle.
func (o *Orchestrator) navigate(attempt uint64, orderID uuid.UUID) {
	o.mu.Lock()
	if o.attempt != attempt || o.state != enums.CheckoutStateSuccess {
		o.mu.Unlock()
		return
	}
	o.redirect = nil
	o.redirectTo = "/orders/" + orderID.String()
	o.state = enums.CheckoutStateIdle
	o.publishAndUnlock(Event{State: enums.CheckoutStateIdle, OrderID: &orderID, RedirectTo: o.redirectTo})
}

func (o *Orchestrator) onTimeout(attempt uint64) {
	o.mu.Lock()
	if o.attempt != attempt || o.state != enums.CheckoutStateAwaitingVerification {
		o.mu.Unlock()
		return
	}
	o.drainLocked()
	ctx := o.deps.Logger.WithTicketGroup(context.Background(), o.ticketGroup)
	o.ticketGroup = ""
	o.lastError = msgTimedOut
	o.releaseLockLocked(ctx)
	o.deps.Metrics.IncOutcome(metrics.CheckoutTimeout)
	o.deps.Logger.Warn(ctx, "payment verification timed out")
	o.publishErrorAndUnlock(Event{State: enums.CheckoutStateError, Message: msgTimedOut})
}

// fail publishes error, returns to idle and reports err to the caller.
func (o *Orchestrator) fail(ctx context.Context, attempt uint64, err error, invalid []InvalidLine, outcome string) (Snapshot, error) {
	msg := failureMessage(err)
	o.mu.Lock()
	if o.attempt != attempt {
		o.mu.Unlock()
		return o.Snapshot(), err
	}
	o.drainLocked()
	o.releaseLockLocked(ctx)
	o.ticketGroup = ""
	o.lastError = msg
	o.invalidLines = invalid
	o.deps.Metrics.IncOutcome(outcome)
	o.deps.Logger.Warn(ctx, fmt.Sprintf("checkout failed: %v", err))
	o.publishErrorAndUnlock(Event{State: enums.CheckoutStateError, Message: msg, InvalidLines: invalid})
	return o.Snapshot(), err
}

// Close stops every timer and waits for the poll loop to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.attempt++
	o.drainLocked()
	o.stopRedirectLocked()
	o.releaseLockLocked(context.Background())
	o.state = enums.CheckoutStateIdle
	o.ticketGroup = ""
	o.mu.Unlock()
	o.polls.Wait()
}

func (o *Orchestrator) drainLocked() {
	if o.active == nil {
		return
	}
	o.active.stop()
	o.active = nil
}

func (o *Orchestrator) stopRedirectLocked() {
	if o.redirect != nil {
		o.redirect.Stop()
		o.redirect = nil
	}
}

func (o *Orchestrator) releaseLockLocked(ctx context.Context) {
	owner := o.lockOwner
	o.lockOwner = ""
	o.releaseLock(ctx, owner)
}

// releaseLock is a no-op when owner no longer holds the lock.
func (o *Orchestrator) releaseLock(ctx context.Context, owner string) {
	if o.deps.Lock == nil || owner == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseBudget)
	defer cancel()
	if err := o.deps.Lock.Release(ctx, o.deps.LockKey(o.sessionID), owner); err != nil {
		o.deps.Logger.Warn(ctx, fmt.Sprintf("checkout lock release failed: %v", err))
	}
}

func (o *Orchestrator) isCurrent(attempt uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed && o.attempt == attempt && o.state == enums.CheckoutStateProcessing
}

// abandon drops an attempt that Close superseded. The lock taken by the
// attempt is released here because Close may not have seen its owner.
func (o *Orchestrator) abandon(ctx context.Context, owner string) (Snapshot, error) {
	o.releaseLock(ctx, owner)
	return o.Snapshot(), pkgerrors.New(pkgerrors.CodeStateConflict, msgClosedEarly)
}

// publishErrorAndUnlock settles on idle, then publishes the error event
// followed by idle.
func (o *Orchestrator) publishErrorAndUnlock(evt Event) {
	o.state = enums.CheckoutStateIdle
	o.pubMu.Lock()
	o.mu.Unlock()
	o.deliver(evt)
	o.deliver(Event{State: enums.CheckoutStateIdle, Message: evt.Message, InvalidLines: evt.InvalidLines})
	o.pubMu.Unlock()
}

// publishAndUnlock hands evt to subscribers in order without holding mu
// during delivery.
func (o *Orchestrator) publishAndUnlock(evt Event) {
	o.pubMu.Lock()
	o.mu.Unlock()
	o.deliver(evt)
	o.pubMu.Unlock()
}

func (o *Orchestrator) deliver(evt Event) {
	o.subMu.Lock()
	subs := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.subMu.Unlock()
	for _, fn := range subs {
		fn(evt)
	}
}

func orderInput(ticketGroup string, status *ticketing.PaymentStatus, pending pendingOrder) orders.NewOrderInput {
	tickets := make([]orders.Ticket, 0, len(status.Tickets))
	for _, t := range status.Tickets {
		tickets = append(tickets, orders.Ticket{
			ID:             t.ID,
			TicketTypeID:   t.TicketTypeID,
			TicketTypeName: t.TicketTypeName,
			Code:           t.Code,
			Price:          t.Price,
			Status:         t.Status,
		})
	}
	in := orders.NewOrderInput{
		CustomerName:   pending.form.Name,
		CustomerEmail:  pending.form.Email,
		CustomerPhone:  NormalizePhone(pending.form.Phone),
		TicketGroup:    ticketGroup,
		EventID:        pending.eventID,
		EventName:      firstNonEmpty(status.EventName, pending.eventName),
		PosterURL:      firstNonEmpty(status.PosterURL, pending.posterURL),
		Tickets:        tickets,
		Total:          status.Total,
		PaymentChannel: pending.channel,
		CouponCode:     pending.form.CouponCode,
	}
	return in
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if err != nil && !errors.Is(err, context.Canceled) && err.Error() != "" {
		return err.Error()
	}
	return msgGenericFailure
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
