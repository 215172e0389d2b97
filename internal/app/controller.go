package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
	"chromaflow/internal/workflow"
)

// Saver persists a full item list.
type Saver interface {
	Save(ctx context.Context, list []items.Item) error
}

// View is a consistent copy of the state for readers.
type View struct {
	Items         []items.Item `json:"items"`
	Dirty         bool         `json:"dirty"`
	Saving        bool         `json:"saving"`
	PendingRemote bool         `json:"pendingRemote"`
	Revision      uint64       `json:"revision"`
}

// AdvanceResult reports what an advance did.
type AdvanceResult struct {
	Touched   int `json:"touched"`
	NeedsShop int `json:"needsShop"`
}

type command struct {
	run  func()
	done chan struct{}
}

type saveResult struct {
	saved []items.Item
	rev   uint64
	err   error
	reply chan error
}

// Controller serializes every state change on one goroutine started by Run.
type Controller struct {
	saver  Saver
	logger *slog.Logger
	now    func() time.Time

	commands  chan command
	snapshots chan []items.Item
	saveDone  chan saveResult
	stopping  chan struct{}
	events    *broadcaster

	saves sync.WaitGroup

	// Owned by the Run goroutine.
	state   State
	saveCtx context.Context
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logging.NewComponentLogger(logger, "app") }
}

// NewController builds a controller around an initial, clean collection.
func NewController(initial []items.Item, saver Saver, opts ...Option) *Controller {
	c := &Controller{
		saver:     saver,
		logger:    logging.NewComponentLogger(nil, "app"),
		now:       func() time.Time { return time.Now().UTC() },
		commands:  make(chan command),
		snapshots: make(chan []items.Item),
		saveDone:  make(chan saveResult),
		stopping:  make(chan struct{}),
		events:    newBroadcaster(),
		state:     NewState(initial),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes commands until ctx ends. A save still in flight is
// cancelled and waited for before Run returns. Run must be called once.
func (c *Controller) Run(ctx context.Context) error {
	saveCtx, cancelSaves := context.WithCancel(context.WithoutCancel(ctx))
	c.saveCtx = saveCtx
	defer func() {
		close(c.stopping)
		cancelSaves()
		c.saves.Wait()
		c.events.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.commands:
			cmd.run()
			close(cmd.done)
		case list := <-c.snapshots:
			c.applySnapshot(list)
		case res := <-c.saveDone:
			c.finishSave(res)
		}
	}
}

// do runs fn on the loop goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case c.commands <- command{run: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopping:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopping:
		return ErrClosed
	}
}

func (c *Controller) view() View {
	return View{
		Items:         c.state.Items(),
		Dirty:         c.state.Dirty(),
		Saving:        c.state.Saving(),
		PendingRemote: c.state.PendingRemote(),
		Revision:      c.state.Revision(),
	}
}

func (c *Controller) publish(kind EventKind) {
	c.events.publish(Event{
		Kind:          kind,
		Revision:      c.state.Revision(),
		Dirty:         c.state.Dirty(),
		Saving:        c.state.Saving(),
		PendingRemote: c.state.PendingRemote(),
		Count:         c.state.repo.Len(),
	})
}

// View returns the current state.
func (c *Controller) View(ctx context.Context) (View, error) {
	var v View
	err := c.do(ctx, func() { v = c.view() })
	return v, err
}

// Advance moves the selected items one stage forward. When any selected
// item sits at a branch stage and shop is ShopNone nothing changes and
// ErrShopRequired is returned with NeedsShop set.
func (c *Controller) Advance(ctx context.Context, ids []string, shop workflow.Shop) (AdvanceResult, error) {
	var (
		result AdvanceResult
		opErr  error
	)
	err := c.do(ctx, func() {
		selection := items.NewIDSet(ids...)
		result.NeedsShop = c.state.NeedsShop(selection)
		if result.NeedsShop > 0 && !shop.Assigned() {
			opErr = ErrShopRequired
			return
		}
		c.state, result.Touched = Advance(c.state, selection, shop, c.now())
		if len(selection) > 0 {
			c.publish(EventChanged)
		}
	})
	if err != nil {
		return AdvanceResult{}, err
	}
	return result, opErr
}

// SetStatus overrides status for the selected items. ShopNone keeps each
// item's shop.
func (c *Controller) SetStatus(ctx context.Context, ids []string, status workflow.Status, shop workflow.Shop) (int, error) {
	var n int
	err := c.do(ctx, func() {
		selection := items.NewIDSet(ids...)
		c.state, n = SetStatus(c.state, selection, status, shop, c.now())
		if len(selection) > 0 {
			c.publish(EventChanged)
		}
	})
	return n, err
}

// Delete removes the selected items.
func (c *Controller) Delete(ctx context.Context, ids []string) (int, error) {
	var n int
	err := c.do(ctx, func() {
		selection := items.NewIDSet(ids...)
		c.state, n = Delete(c.state, selection)
		if len(selection) > 0 {
			c.publish(EventChanged)
		}
	})
	return n, err
}

// Import merges parsed items.
func (c *Controller) Import(ctx context.Context, list []items.Item, mode items.ImportMode) (items.ImportResult, error) {
	var result items.ImportResult
	err := c.do(ctx, func() {
		c.state, result = Import(c.state, list, mode)
		c.logger.Info("items imported",
			logging.String("mode", result.Mode.String()),
			logging.Int("added", result.Added),
			logging.Int("duplicates", len(result.Duplicates)),
			logging.Int("replaced", result.Replaced))
		c.publish(EventChanged)
	})
	return result, err
}

// Revert drops local edits in favour of the newest stored collection.
func (c *Controller) Revert(ctx context.Context) error {
	return c.do(ctx, func() {
		c.state = Revert(c.state)
		c.publish(EventReverted)
	})
}

// Save persists the current items and waits for the outcome. Commands and
// snapshots keep flowing while the save runs.
func (c *Controller) Save(ctx context.Context) error {
	var (
		reply   chan error
		saveErr error
	)
	err := c.do(ctx, func() { reply, saveErr = c.beginSave() })
	if err != nil {
		return err
	}
	if saveErr != nil {
		return saveErr
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) beginSave() (chan error, error) {
	next, snapshot, rev, err := BeginSave(c.state)
	if err != nil {
		return nil, err
	}
	c.state = next
	c.publish(EventSaving)

	reply := make(chan error, 1)
	c.saves.Add(1)
	go func(ctx context.Context) {
		defer c.saves.Done()
		err := c.saver.Save(ctx, snapshot)
		res := saveResult{saved: snapshot, rev: rev, err: err, reply: reply}
		select {
		case c.saveDone <- res:
		case <-c.stopping:
			if err == nil {
				err = ErrClosed
			}
			reply <- err
		}
	}(c.saveCtx)
	return reply, nil
}

func (c *Controller) finishSave(res saveResult) {
	c.state = FinishSave(c.state, res.saved, res.rev, res.err)
	if res.err != nil {
		c.publish(EventSaveFailed)
	} else {
		c.publish(EventSaved)
	}
	res.reply <- res.err
}

// PushSnapshot hands a collection received from the store to the loop. It
// returns false when the controller has stopped.
func (c *Controller) PushSnapshot(ctx context.Context, list []items.Item) bool {
	select {
	case c.snapshots <- list:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopping:
		return false
	}
}

func (c *Controller) applySnapshot(list []items.Item) {
	var applied bool
	c.state, applied = ApplySnapshot(c.state, list)
	if applied {
		c.logger.Debug("remote snapshot applied", logging.Int("item_count", len(list)))
		c.publish(EventSnapshot)
		return
	}
	c.logger.Info("remote snapshot parked behind unsaved changes",
		logging.Int("item_count", len(list)),
		logging.Bool("saving", c.state.Saving()))
	c.publish(EventSnapshotParked)
}

// Subscribe returns a feed of state events. The channel closes when cancel
// is called or the controller stops. Slow readers miss events rather than
// stall the loop.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}
