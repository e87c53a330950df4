// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package realtime implements the reconciler that keeps the local
// catalog current between full syncs: a persistent websocket connection
// to Jellyfin delivering library-change notifications, applied as
// incremental upserts/deletes through the same store write path the
// full-sync coordinator uses.
//
// The reconciler never performs orphan detection and never recomputes
// the full catalog; the event stream does not guarantee delivery of
// every change, so periodic full syncs remain the correctness backstop.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/metrics"
	syncpkg "github.com/cinemood/cinemood/internal/sync"
)

// Options tune the reconciler's connection behavior.
type Options struct {
	// BackoffBase and BackoffMax bound the exponential reconnect delay.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// KeepAliveInterval is the period of outbound keep-alive frames.
	KeepAliveInterval time.Duration
	// ConfigRetryInterval is how long to wait before rechecking an
	// incomplete connection configuration.
	ConfigRetryInterval time.Duration
	// BatchSize bounds how many changed items are fetched from the
	// remote catalog in one bulk call.
	BatchSize int
	// ReadTimeout bounds how long a read may block; keep-alives ensure
	// traffic within this window on a healthy connection.
	ReadTimeout time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		BackoffBase:         time.Second,
		BackoffMax:          32 * time.Second,
		KeepAliveInterval:   30 * time.Second,
		ConfigRetryInterval: 10 * time.Second,
		BatchSize:           50,
		ReadTimeout:         90 * time.Second,
	}
}

// Reconciler maintains the event-stream connection and applies deltas.
type Reconciler struct {
	client  jellyfin.API
	applier *syncpkg.Applier
	opts    Options

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	// applyWg tracks in-flight change applications; message handling may
	// overlap with the read loop.
	applyWg sync.WaitGroup
}

// NewReconciler creates a realtime reconciler over the shared applier.
// A non-positive BatchSize is clamped to the default; the batching loop
// in applyChange requires it to advance.
func NewReconciler(client jellyfin.API, applier *syncpkg.Applier, opts Options) *Reconciler {
	if opts.BackoffBase <= 0 {
		opts = DefaultOptions()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Reconciler{client: client, applier: applier, opts: opts}
}

// Start launches the connect/reconnect loop in the background. Calling
// Start while already running is a no-op.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.run(ctx)
	}()
}

// Stop closes the active stream connection, halts reconnection and
// waits for in-flight change applications. Idempotent.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.closeConn()
	<-done
	r.applyWg.Wait()
}

// Serve runs the reconcile loop until ctx is canceled, satisfying
// suture.Service for supervised execution.
func (r *Reconciler) Serve(ctx context.Context) error {
	r.run(ctx)
	return ctx.Err()
}

// String names the service in supervisor logs.
func (r *Reconciler) String() string { return "realtime.Reconciler" }

// run is the connection state machine: Disconnected -> Connecting ->
// Connected, looping until ctx is canceled. Backoff escalates only
// across consecutive failures and resets once a connection is
// established.
func (r *Reconciler) run(ctx context.Context) {
	delay := newBackoff(r.opts.BackoffBase, r.opts.BackoffMax)

	for {
		if ctx.Err() != nil {
			return
		}

		wsURL, err := r.client.WebSocketURL()
		if err != nil {
			// Connection settings incomplete; recheck after a fixed
			// interval without escalating backoff.
			logging.Debug().Msg("Realtime reconciler waiting for connection settings")
			if !sleepCtx(ctx, r.opts.ConfigRetryInterval) {
				return
			}
			continue
		}

		metrics.RealtimeReconnects.Inc()
		conn, err := r.connect(ctx, wsURL)
		if err != nil {
			d := delay.Next()
			logging.Warn().Err(err).Dur("retry_in", d).Msg("Realtime connect failed")
			if !sleepCtx(ctx, d) {
				return
			}
			continue
		}

		delay.Reset()
		metrics.RealtimeConnected.Set(1)
		logging.Info().Msg("Realtime reconciler connected")

		r.serveConn(ctx, conn)

		metrics.RealtimeConnected.Set(0)
		r.closeConn()

		if ctx.Err() != nil {
			return
		}
		d := delay.Next()
		logging.Info().Dur("retry_in", d).Msg("Realtime connection lost, reconnecting")
		if !sleepCtx(ctx, d) {
			return
		}
	}
}

// connect dials the event stream and sends the session-initiation frame.
func (r *Reconciler) connect(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err := conn.WriteJSON(jellyfin.WSMessage{MessageType: "KeepAlive"}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session initiation failed: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	return conn, nil
}

// serveConn reads messages until the connection closes, with a periodic
// keep-alive writer. Returns when the connection is no longer usable.
func (r *Reconciler) serveConn(ctx context.Context, conn *websocket.Conn) {
	keepAliveDone := make(chan struct{})
	go r.keepAliveLoop(ctx, conn, keepAliveDone)
	defer close(keepAliveDone)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(r.opts.ReadTimeout)); err != nil {
			logging.Warn().Err(err).Msg("Failed to set read deadline")
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info().Msg("Realtime connection closed by server")
			} else if ctx.Err() == nil {
				logging.Warn().Err(err).Msg("Realtime read error")
			}
			return
		}

		r.handleMessage(ctx, message)
	}
}

// keepAliveLoop sends periodic keep-alive frames until the connection
// is torn down.
func (r *Reconciler) keepAliveLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(r.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(jellyfin.WSMessage{MessageType: "KeepAlive"}); err != nil {
				logging.Warn().Err(err).Msg("Keep-alive failed")
				_ = conn.Close()
				return
			}
		}
	}
}

// handleMessage parses the tagged envelope and dispatches library
// changes. All other message types are ignored for forward
// compatibility. Application runs concurrently with the read loop.
func (r *Reconciler) handleMessage(ctx context.Context, data []byte) {
	var msg jellyfin.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("Failed to parse realtime message")
		return
	}

	switch msg.MessageType {
	case "LibraryChanged":
		var change jellyfin.LibraryChanged
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			logging.Warn().Err(err).Msg("Failed to parse library change payload")
			return
		}
		r.applyWg.Add(1)
		go func() {
			defer r.applyWg.Done()
			r.applyChange(ctx, &change)
		}()

	case "KeepAlive", "ForceKeepAlive":
		// Keep-alive traffic; the write loop handles our side.

	default:
		logging.Debug().Str("type", msg.MessageType).Msg("Ignoring realtime message type")
	}
}

// applyChange applies one library-change notification: removals win
// over same-batch adds/updates, deletions reuse the full-sync delete
// path, and changed items are fetched and upserted in bounded batches.
func (r *Reconciler) applyChange(ctx context.Context, change *jellyfin.LibraryChanged) {
	removed := make(map[string]struct{}, len(change.ItemsRemoved))
	for _, id := range change.ItemsRemoved {
		removed[id] = struct{}{}
	}

	// Union of added and updated, minus anything also removed: the net
	// effect of add+remove in one batch is that the item is gone.
	changedSet := make(map[string]struct{}, len(change.ItemsAdded)+len(change.ItemsUpdated))
	for _, id := range append(append([]string{}, change.ItemsAdded...), change.ItemsUpdated...) {
		if _, gone := removed[id]; gone {
			continue
		}
		changedSet[id] = struct{}{}
	}

	for id := range removed {
		deleted, err := r.applier.RemoveByJellyfinID(ctx, id)
		if err != nil {
			logging.Warn().Err(err).Str("jellyfin_id", id).Msg("Realtime delete failed")
			continue
		}
		if deleted {
			metrics.RealtimeEvents.WithLabelValues("removed").Inc()
		}
	}

	changed := make([]string, 0, len(changedSet))
	for id := range changedSet {
		changed = append(changed, id)
	}

	for start := 0; start < len(changed); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(changed))
		r.applyBatch(ctx, changed[start:end])
	}
}

// applyBatch fetches full payloads for one batch of changed ids and
// upserts them. A batch fetch failure is logged and the batch skipped;
// the reconciler loop itself never aborts.
func (r *Reconciler) applyBatch(ctx context.Context, ids []string) {
	items, err := r.client.GetItemsByIDs(ctx, ids)
	if err != nil {
		metrics.RealtimeBatchFailures.Inc()
		logging.Warn().Err(err).Int("batch_size", len(ids)).Msg("Realtime batch fetch failed, skipping batch")
		return
	}

	for i := range items {
		if err := r.applier.ApplyRemoteItem(ctx, &items[i]); err != nil {
			metrics.RealtimeEvents.WithLabelValues("skipped").Inc()
			logging.Warn().Err(err).Str("jellyfin_id", items[i].ID).Msg("Realtime upsert failed")
			continue
		}
		metrics.RealtimeEvents.WithLabelValues("upserted").Inc()
	}
}

func (r *Reconciler) closeConn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		_ = r.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = r.conn.Close()
		r.conn = nil
	}
}

// sleepCtx waits d or until ctx is canceled; false means canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
