package device

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/hublink/internal/event"
)

// fetchAllKey is the singleflight key for whole-fleet fetches.
const fetchAllKey = "\x00all"

// Fetcher retrieves raw device payloads from the hub. Implemented by the
// hub package's Maker API client.
type Fetcher interface {
	FetchDevices(ctx context.Context) ([]RawDevice, error)
	FetchDevice(ctx context.Context, id string) (RawDevice, error)
}

// Cache holds the normalised device fleet, keyed by device id.
//
// Concurrency contract: at most one outstanding fetch per key at any time.
// A second concurrent request for the same key waits on the first and
// observes the same resolved device rather than issuing a duplicate HTTP
// call. The whole-fleet fetch is idempotent once initialised.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Cache struct {
	fetcher Fetcher
	caster  *Caster
	logger  Logger

	// entryTTL invalidates a lazily fetched entry after a period of
	// inactivity. Staleness workaround, not a correctness guarantee.
	entryTTL time.Duration

	mu          sync.RWMutex
	devices     map[string]*Device
	initialized bool
	timers      map[string]*time.Timer

	group singleflight.Group
}

// NewCache creates a device cache backed by the given fetcher.
//
// entryTTL bounds the lifetime of entries fetched lazily via FetchOne;
// zero disables expiry. A nil logger disables logging.
func NewCache(fetcher Fetcher, entryTTL time.Duration, logger Logger) *Cache {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Cache{
		fetcher:  fetcher,
		caster:   NewCaster(logger),
		logger:   logger,
		entryTTL: entryTTL,
		devices:  make(map[string]*Device),
		timers:   make(map[string]*time.Timer),
	}
}

// Initialized reports whether a whole-fleet fetch has completed.
func (c *Cache) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Len returns the number of cached devices.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// Get returns the cached device for id, or nil when absent.
// The returned pointer is the live cache entry; it is mutated in place as
// events arrive. Copy before handing it out of process.
func (c *Cache) Get(id string) *Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.devices[id]
}

// FetchAll fetches the hub's full device list in one call, normalises each
// device, and replaces the in-memory map.
//
// A call while already initialised returns immediately without refetching.
// Concurrent callers while a fetch is in flight share its outcome: exactly
// one HTTP request is issued. On failure the cache stays uninitialised so
// a later call can retry, and the error propagates to every waiter.
func (c *Cache) FetchAll(ctx context.Context) error {
	c.mu.RLock()
	done := c.initialized
	c.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := c.group.Do(fetchAllKey, func() (any, error) {
		raws, err := c.fetcher.FetchDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}

		devices := make(map[string]*Device, len(raws))
		for _, raw := range raws {
			dev := raw.Normalize(c.caster)
			if dev.ID == "" {
				c.logger.Warn("dropping device payload without id", "name", raw.Name)
				continue
			}
			devices[dev.ID] = dev
		}

		c.mu.Lock()
		c.devices = devices
		c.initialized = true
		c.stopTimersLocked()
		c.mu.Unlock()

		c.logger.Debug("device cache initialised", "count", len(devices))
		return nil, nil
	})
	return err
}

// FetchOne returns the device for id, fetching it lazily when absent.
//
// Two concurrent calls for the same id perform exactly one HTTP request
// and resolve to the same device. Lazily fetched entries are invalidated
// after the configured inactivity TTL; entries loaded by FetchAll are not.
func (c *Cache) FetchOne(ctx context.Context, id string) (*Device, error) {
	c.mu.RLock()
	dev := c.devices[id]
	c.mu.RUnlock()
	if dev != nil {
		c.touch(id)
		return dev, nil
	}

	result, err, _ := c.group.Do(id, func() (any, error) {
		// Re-check: a FetchAll may have landed while we queued.
		c.mu.RLock()
		cached := c.devices[id]
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		raw, err := c.fetcher.FetchDevice(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: device %s: %w", ErrFetchFailed, id, err)
		}

		fetched := raw.Normalize(c.caster)
		if fetched.ID == "" {
			fetched.ID = id
		}

		c.mu.Lock()
		c.devices[fetched.ID] = fetched
		c.mu.Unlock()
		c.touch(fetched.ID)

		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Device), nil
}

// touch arms or resets the inactivity timer for a lazily fetched entry.
// Once the whole fleet is cached there is nothing to expire.
func (c *Cache) touch(id string) {
	if c.entryTTL <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}

	if timer, ok := c.timers[id]; ok {
		timer.Reset(c.entryTTL)
		return
	}
	c.timers[id] = time.AfterFunc(c.entryTTL, func() {
		c.expire(id)
	})
}

// expire drops one lazily fetched entry after its TTL elapses.
func (c *Cache) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}
	delete(c.devices, id)
	delete(c.timers, id)
	c.logger.Debug("cache entry expired", "device_id", id)
}

// stopTimersLocked cancels all lazy-entry timers. Caller holds c.mu.
func (c *Cache) stopTimersLocked() {
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
}

// Update applies a device event to the cached model.
//
// Events for devices never fetched are silently ignored. Otherwise the
// attribute named by the event is mutated in place: the raw value is cast
// using the attribute's own declared data type, and both Value and the
// deprecated CurrentValue alias are updated. Subscribers holding the
// attribute pointer observe the mutation directly.
func (c *Cache) Update(ev event.Event) {
	if !ev.DeviceID.HasID() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dev, ok := c.devices[ev.DeviceID.ID]
	if !ok {
		return
	}
	attr, ok := dev.Attributes[ev.Name]
	if !ok {
		c.logger.Debug("event for unknown attribute",
			"device_id", ev.DeviceID.ID,
			"attribute", ev.Name,
		)
		return
	}

	attr.Value = c.caster.Cast(dev.ID, attr.DataType, ev.Value)
	attr.CurrentValue = attr.Value
}

// Resync rebuilds the cache after a hub restart signal and returns one
// synthesized device event per attribute whose value changed while the
// connection was down. Publishing those events is the caller's job, so
// downstream subscribers observe the same updates they would have
// received live.
func (c *Cache) Resync(ctx context.Context) ([]event.Event, error) {
	c.mu.Lock()
	previous := c.devices
	c.devices = make(map[string]*Device)
	c.initialized = false
	c.stopTimersLocked()
	c.mu.Unlock()

	if err := c.FetchAll(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var events []event.Event
	for id, dev := range c.devices {
		prev, ok := previous[id]
		if !ok {
			continue
		}
		for name, attr := range dev.Attributes {
			prevAttr, ok := prev.Attributes[name]
			if !ok || reflect.DeepEqual(prevAttr.Value, attr.Value) {
				continue
			}
			c.logger.Debug("attribute desynchronisation repaired",
				"device_id", id,
				"attribute", name,
			)
			events = append(events, event.Event{
				Name:            name,
				Value:           attr.Value,
				DeviceID:        event.Ref(id),
				DisplayName:     dev.Label,
				DescriptionText: "synthesized after hub restart",
			})
		}
	}
	return events, nil
}
