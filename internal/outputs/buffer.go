package outputs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"launchpad/internal/appsapi"
)

const (
	// DefaultInterval is how often the buffer is flushed.
	DefaultInterval = 30 * time.Second

	queueCapacity = 256
	maxRetries    = 5
	retryBaseWait = 1 * time.Second
)

// RemoteOutputs is the slice of the apps api the buffer needs: read and
// write one instance's output document.
type RemoteOutputs interface {
	GetOutputs(ctx context.Context, appID uuid.UUID) (appsapi.Outputs, error)
	UpdateOutputs(ctx context.Context, appID uuid.UUID, outputs appsapi.Outputs) error
}

// Announcement is one freshly installed app waiting to be published.
type Announcement struct {
	AppID   uuid.UUID `json:"app_id"`
	AppName string    `json:"app_name"`
}

// Buffer decouples "an app was installed" from "the parent output document
// was updated". The document lives on a remote store with no transactional
// guarantees, so announcements are batched into a single
// fetch-merge-write cycle per interval instead of racing one write per
// install. Entries survive failed cycles by being requeued; they do not
// survive a process restart (accepted at-most-once tradeoff).
type Buffer struct {
	remote   RemoteOutputs
	parentID uuid.UUID
	interval time.Duration

	queue chan Announcement

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBuffer(remote RemoteOutputs, parentID uuid.UUID, interval time.Duration) *Buffer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Buffer{
		remote:   remote,
		parentID: parentID,
		interval: interval,
		queue:    make(chan Announcement, queueCapacity),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Enqueue adds one announcement. Never blocks a request handler: when the
// queue is full the entry is dropped with a warning.
func (b *Buffer) Enqueue(appID uuid.UUID, appName string) {
	select {
	case b.queue <- Announcement{AppID: appID, AppName: appName}:
	default:
		glog.Warningf("output buffer full, dropping announcement for %s", appID)
	}
}

// Len returns the number of queued announcements.
func (b *Buffer) Len() int {
	return len(b.queue)
}

// Start launches the periodic flush loop.
func (b *Buffer) Start() {
	b.wg.Add(1)
	go b.loop()
	glog.Infof("output publish buffer started, interval %s", b.interval)
}

// Stop cancels the flush loop and waits for it to exit. No final flush is
// attempted.
func (b *Buffer) Stop() {
	b.cancel()
	b.wg.Wait()
}

func (b *Buffer) loop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if err := b.Flush(b.ctx); err != nil {
				glog.Errorf("output buffer flush failed: %v", err)
			}
		}
	}
}

// Flush drains the whole queue and publishes it to the parent output
// document in one fetch-merge-write cycle. Already-announced app ids are
// skipped. On any failure every drained entry goes back onto the queue for
// the next cycle.
func (b *Buffer) Flush(ctx context.Context) error {
	batch := b.drain()
	if len(batch) == 0 {
		return nil
	}

	doc, err := b.remote.GetOutputs(ctx, b.parentID)
	if err != nil {
		b.requeue(batch)
		return fmt.Errorf("failed to fetch parent output document: %w", err)
	}
	if len(doc) == 0 {
		// the umbrella app has not published its initial document yet;
		// nothing can be announced this cycle
		b.requeue(batch)
		return fmt.Errorf("parent output document not published yet")
	}

	merged, added := mergeAnnouncements(doc, batch)
	if added == 0 {
		glog.V(2).Infof("output buffer: all %d entries already announced", len(batch))
		return nil
	}

	if err := b.writeWithRetry(ctx, merged); err != nil {
		b.requeue(batch)
		return err
	}

	glog.Infof("announced %d new apps to the parent output document", added)
	return nil
}

func (b *Buffer) drain() []Announcement {
	var batch []Announcement
	for {
		select {
		case a := <-b.queue:
			batch = append(batch, a)
		default:
			return batch
		}
	}
}

func (b *Buffer) requeue(batch []Announcement) {
	for _, a := range batch {
		select {
		case b.queue <- a:
		default:
			glog.Warningf("output buffer full on requeue, dropping announcement for %s", a.AppID)
		}
	}
}

func (b *Buffer) writeWithRetry(ctx context.Context, doc appsapi.Outputs) error {
	var err error
	wait := retryBaseWait
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = b.remote.UpdateOutputs(ctx, b.parentID, doc); err == nil {
			return nil
		}
		glog.Warningf("output document write failed (attempt %d/%d): %v", attempt, maxRetries, err)

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("output document write exhausted %d retries: %w", maxRetries, err)
}

// mergeAnnouncements appends the batch to the document's
// installed_apps.app_list, deduplicating by app id against both the
// existing list and within the batch.
func mergeAnnouncements(doc appsapi.Outputs, batch []Announcement) (appsapi.Outputs, int) {
	section, _ := doc["installed_apps"].(map[string]interface{})
	if section == nil {
		section = map[string]interface{}{}
	}
	list, _ := section["app_list"].([]interface{})

	seen := map[string]struct{}{}
	for _, item := range list {
		if entry, ok := item.(map[string]interface{}); ok {
			if id, ok := entry["app_id"].(string); ok {
				seen[id] = struct{}{}
			}
		}
	}

	added := 0
	for _, a := range batch {
		id := a.AppID.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, map[string]interface{}{
			"app_id":   id,
			"app_name": a.AppName,
		})
		added++
	}

	section["app_list"] = list
	doc["installed_apps"] = section
	return doc, added
}
