package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-router/eventstream"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
	streamRetention  = 16
	widgetScopeKey   = "widget"
)

// ClientMessage is sent by the canvas over the websocket. Only resize
// reports are understood.
type ClientMessage struct {
	Type     string     `json:"type"`
	WidgetID string     `json:"widgetId"`
	Size     Dimensions `json:"size"`
}

// ResizeReporter receives container measurements from connected canvases.
type ResizeReporter interface {
	Resize(ctx context.Context, widgetID string, d Dimensions) (WidgetSnapshot, error)
}

type subscriber struct {
	ch      chan WidgetEvent
	widgets map[string]struct{}
}

func (s subscriber) wants(event WidgetEvent) bool {
	if len(s.widgets) == 0 || event.WidgetID == "" {
		return true
	}
	_, ok := s.widgets[event.WidgetID]
	return ok
}

// BroadcastHook fans out widget events to in-process subscribers. Slow
// subscribers miss events rather than block the publisher.
type BroadcastHook struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	resizer ResizeReporter
	origins []string
	stream  eventstream.Stream
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]subscriber)}
}

// WithResizeReporter routes inbound websocket resize messages to r.
func (h *BroadcastHook) WithResizeReporter(r ResizeReporter) *BroadcastHook {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resizer = r
	return h
}

// WithAllowedOrigins lets browsers on the given origins open the websocket.
// Without it only same-origin upgrades are accepted. "*" allows any origin.
func (h *BroadcastHook) WithAllowedOrigins(origins ...string) *BroadcastHook {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = slices.Clone(origins)
	return h
}

// AllowedOrigins returns the cross-origin allow list.
func (h *BroadcastHook) AllowedOrigins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.origins)
}

// EventStream returns a go-router event stream mirroring every broadcast,
// scoped by widget id. It is created on first use.
func (h *BroadcastHook) EventStream() eventstream.Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream == nil {
		h.stream = eventstream.New(
			eventstream.WithMatcher(matchWidgetScope),
			eventstream.WithBufferSize(streamRetention),
		)
	}
	return h.stream
}

// WidgetScope is the event stream scope for the given widgets. Without ids it
// subscribes to every widget.
func WidgetScope(widgetIDs ...string) eventstream.Scope {
	if len(widgetIDs) == 0 {
		return eventstream.Scope{}
	}
	return eventstream.Scope{widgetScopeKey: strings.Join(widgetIDs, ",")}
}

// matchWidgetScope delivers dashboard-wide records to every subscriber.
func matchWidgetScope(subscription, published eventstream.Scope) bool {
	want, got := subscription[widgetScopeKey], published[widgetScopeKey]
	if want == "" || got == "" {
		return true
	}
	return slices.Contains(strings.Split(want, ","), got)
}

// WidgetUpdated satisfies the RefreshHook interface and broadcasts events.
func (h *BroadcastHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	if h.stream == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	name := event.Reason
	if name == "" {
		name = "widget"
	}
	scope := WidgetScope()
	if event.WidgetID != "" {
		scope = WidgetScope(event.WidgetID)
	}
	h.stream.Publish(scope, eventstream.Event{Name: name, Payload: payload})
	return nil
}

// Subscribe returns a channel of widget events and a cancel func. With widget
// ids only events of those widgets (and dashboard-wide events) are delivered.
func (h *BroadcastHook) Subscribe(widgetIDs ...string) (<-chan WidgetEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	sub := subscriber{ch: make(chan WidgetEvent, subscriberBuffer)}
	if len(widgetIDs) > 0 {
		sub.widgets = make(map[string]struct{}, len(widgetIDs))
		for _, w := range widgetIDs {
			sub.widgets[w] = struct{}{}
		}
	}
	h.subs[id] = sub
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func widgetFilter(r *http.Request) []string {
	return ParseWidgetIDs(r.URL.Query().Get("widgets"))
}

// ParseWidgetIDs splits a comma separated "widgets" filter.
func ParseWidgetIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (h *BroadcastHook) upgrader() *websocket.Upgrader {
	origins := h.AllowedOrigins()
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, origins)
		},
	}
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ServeWebSocket upgrades the request, streams widget events as JSON and reads
// resize reports from the client.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade replies to the client on failure.
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(widgetFilter(r)...)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go h.readClient(ctx, conn, stop)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (h *BroadcastHook) readClient(ctx context.Context, conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		h.mu.RLock()
		resizer := h.resizer
		h.mu.RUnlock()
		if msg.Type != "resize" || resizer == nil || msg.WidgetID == "" {
			continue
		}
		_, _ = resizer.Resize(ctx, msg.WidgetID, msg.Size)
	}
}

// ServeSSE provides a Server-Sent Events endpoint for widget events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(widgetFilter(r)...)
	defer cancel()

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.Write([]byte("event: " + event.Reason + "\ndata: "))
			if err := encoder.Encode(event); err != nil {
				return
			}
			w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
