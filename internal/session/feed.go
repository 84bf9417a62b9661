package session

import (
	"sync"
	"time"
)

const (
	feedBacklog        = 16
	feedListenerBuffer = 16
)

type FeedKind string

const (
	FeedNotification FeedKind = "notification"
	FeedNavigate     FeedKind = "navigate"
)

// FeedItem is a one-shot message for the console's UI
type FeedItem struct {
	Kind         FeedKind      `json:"kind"`
	Notification *Notification `json:"notification,omitempty"`
	Path         string        `json:"path,omitempty"`
	At           time.Time     `json:"at"`
}

// Feed carries notifications and navigation directives of one console to its
// UI. It outlives controller resets so a redirect issued while tearing a
// controller down still reaches the browser. Items produced while nobody
// listens are kept in a bounded backlog, oldest dropped first.
type Feed struct {
	mu        sync.Mutex
	listeners map[int]chan FeedItem
	next      int
	backlog   []FeedItem
	closed    bool
}

func NewFeed() *Feed {
	return &Feed{listeners: make(map[int]chan FeedItem)}
}

// Notify implements Notifier
func (f *Feed) Notify(n Notification) {
	f.push(FeedItem{Kind: FeedNotification, Notification: &n, At: n.At})
}

// Redirect asks the UI to perform a full navigation to path
func (f *Feed) Redirect(path string) {
	f.push(FeedItem{Kind: FeedNavigate, Path: path, At: time.Now().UTC()})
}

func (f *Feed) push(item FeedItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if len(f.listeners) == 0 {
		if len(f.backlog) == feedBacklog {
			f.backlog = f.backlog[1:]
		}
		f.backlog = append(f.backlog, item)
		return
	}
	for _, ch := range f.listeners {
		select {
		case ch <- item:
		default:
		}
	}
}

// Listen attaches a listener. The backlog is replayed to it first.
func (f *Feed) Listen() (<-chan FeedItem, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan FeedItem, feedListenerBuffer+feedBacklog)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	for _, item := range f.backlog {
		ch <- item
	}
	f.backlog = nil

	id := f.next
	f.next++
	f.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if l, ok := f.listeners[id]; ok {
				delete(f.listeners, id)
				close(l)
			}
		})
	}
}

// Drain returns and forgets the backlog
func (f *Feed) Drain() []FeedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.backlog
	f.backlog = nil
	return items
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.listeners {
		delete(f.listeners, id)
		close(ch)
	}
	f.backlog = nil
}
