package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/quote/quotetest"
	"privatize-quote/internal/steps"
	"privatize-quote/pkg/redis"
)

// memSessions stores sessions as JSON so that callers never share a wizard.
type memSessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string][]byte{}}
}

func (m *memSessions) SaveSession(_ context.Context, id string, w *steps.Wizard) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[id] = b
	m.mu.Unlock()
	return nil
}

func (m *memSessions) GetSession(_ context.Context, id string) (*steps.Wizard, error) {
	m.mu.Lock()
	b, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrSessionNotFound)
	}
	// widen the window for lost updates when callers are not serialized
	time.Sleep(time.Millisecond)
	var w steps.Wizard
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	w.Model.Normalize()
	return &w, nil
}

func (m *memSessions) DropSession(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

type memQuotes struct {
	saved []*quote.PriceBreakdown
	err   error
}

func (m *memQuotes) SaveQuote(_ context.Context, _ *quote.SelectionModel, b *quote.PriceBreakdown) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, b)
	return fmt.Sprintf("Q-TEST%04d", len(m.saved)), nil
}

type stubDistance struct {
	km    float64
	err   error
	calls int
}

func (s *stubDistance) ResolveDistanceKm(context.Context, string) (float64, error) {
	s.calls++
	return s.km, s.err
}

type recordingNotifier struct {
	got []quote.Submission
}

func (r *recordingNotifier) NotifyQuote(_ context.Context, s quote.Submission) {
	r.got = append(r.got, s)
}

type fakeProvider struct {
	data  quote.CatalogData
	err   error
	calls int
	mu    sync.Mutex
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{data: quotetest.CatalogData()}
}

func (f *fakeProvider) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeProvider) ListProducts(_ context.Context, c quote.Category) ([]quote.Product, error) {
	f.hit()
	if f.err != nil {
		return nil, f.err
	}
	var out []quote.Product
	for _, p := range f.data.Products {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProvider) GetOptionTree(_ context.Context, id int64) ([]quote.Option, error) {
	f.hit()
	return f.data.Options[id], nil
}

func (f *fakeProvider) GetBeverageSizes(_ context.Context, id int64) ([]quote.BeverageSize, error) {
	f.hit()
	var out []quote.BeverageSize
	for _, sz := range f.data.Sizes {
		if sz.ProductID == id {
			out = append(out, sz)
		}
	}
	return out, nil
}

type memCache struct {
	data    map[string][]byte
	readErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) GetJSON(_ context.Context, key string, v any) error {
	if m.readErr != nil {
		return m.readErr
	}
	b, ok := m.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(b, v)
}

func (m *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

var errBoom = errors.New("boom")
