package testutil

import (
	"context"
	"sync"
)

// Delivery records one dispatched push.
type Delivery struct {
	Token string
	Title string
	Body  string
}

// RecordingDispatcher captures every dispatch for assertions.
type RecordingDispatcher struct {
	mu        sync.Mutex
	Delivered []Delivery
}

func (d *RecordingDispatcher) Dispatch(ctx context.Context, token, title, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Delivered = append(d.Delivered, Delivery{Token: token, Title: title, Body: body})
	return nil
}

// Count returns the number of recorded deliveries.
func (d *RecordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Delivered)
}

// Last returns the most recent delivery.
func (d *RecordingDispatcher) Last() Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Delivered[len(d.Delivered)-1]
}
