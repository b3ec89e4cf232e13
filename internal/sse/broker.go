// Package sse streams model and export events to browsers over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeModelCreated   = "model.created"
	TypeModelUpdated   = "model.updated"
	TypeModelDeleted   = "model.deleted"
	TypeModelExported  = "model.exported"
	TypeExportFailed   = "export.failed"
	TypeCatalogUpdated = "catalog.updated"
)

// Event is one message sent to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PathData is the payload of model.* events.
type PathData struct {
	Path string `json:"path"`
}

// ExportData is the payload of model.exported.
type ExportData struct {
	Path   string `json:"path"`
	Output string `json:"output"`
	Bytes  int    `json:"bytes"`
}

// FailureData is the payload of export.failed.
type FailureData struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type message struct {
	event Event
	// touchesCatalog events are followed by a throttled catalog.updated.
	touchesCatalog bool
}

// Broker fans events out to subscribers. One goroutine owns the client set
// and the throttle clock; public methods talk to it over channels.
type Broker struct {
	catalogMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan message
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. catalog.updated is sent at most once per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		catalogMin:    throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan message, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastCatalog time.Time

	send := func(ev Event) {
		raw, err := encode(ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return
		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}
		case msg := <-b.publishCh:
			send(msg.event)
			if !msg.touchesCatalog {
				continue
			}
			if now := time.Now(); now.Sub(lastCatalog) >= b.catalogMin {
				lastCatalog = now
				send(Event{Type: TypeCatalogUpdated, Data: struct{}{}})
			}
		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) publish(msg message) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- msg:
	case <-b.stopped:
	}
}

// Publish sends ev as is.
func (b *Broker) Publish(ev Event) {
	b.publish(message{event: ev})
}

// PublishModelEvent announces a created, updated or deleted source. Other
// kinds are ignored.
func (b *Broker) PublishModelEvent(kind, path string) {
	var typ string
	switch kind {
	case "created":
		typ = TypeModelCreated
	case "updated":
		typ = TypeModelUpdated
	case "deleted":
		typ = TypeModelDeleted
	default:
		return
	}
	b.publish(message{event: Event{Type: typ, Data: PathData{Path: path}}, touchesCatalog: true})
}

// PublishExport announces a written MDL file.
func (b *Broker) PublishExport(path, output string, bytes int) {
	b.publish(message{
		event:          Event{Type: TypeModelExported, Data: ExportData{Path: path, Output: output, Bytes: bytes}},
		touchesCatalog: true,
	})
}

// PublishExportFailure announces a failed export.
func (b *Broker) PublishExportFailure(path string, err error) {
	b.publish(message{event: Event{Type: TypeExportFailed, Data: FailureData{Path: path, Error: err.Error()}}})
}

// ServeHTTP streams events until the client disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
