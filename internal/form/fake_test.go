package form

import (
	"context"
	"sync"

	"citydesk/pkg/domain"
)

type call struct {
	Method string
	ID     int64
	City   domain.City
}

// fakeBackend records every call and serves a scripted collection.
type fakeBackend struct {
	mu        sync.Mutex
	calls     []call
	list      []domain.City
	nextID    int64
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	onList    func(n int) ([]domain.City, error)
	listCount int
}

func (f *fakeBackend) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeBackend) count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ListCities(context.Context) ([]domain.City, error) {
	f.record(call{Method: "list"})
	f.mu.Lock()
	f.listCount++
	n, hook, err := f.listCount, f.onList, f.listErr
	list := domain.CloneCities(f.list)
	f.mu.Unlock()
	if hook != nil {
		return hook(n)
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeBackend) CreateCity(_ context.Context, city domain.City) (domain.City, error) {
	f.record(call{Method: "create", City: city.Clone()})
	if f.createErr != nil {
		return domain.City{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	city.ID = f.nextID
	f.list = append(f.list, city.Clone())
	return city, nil
}

func (f *fakeBackend) UpdateCity(_ context.Context, id int64, city domain.City) (domain.City, error) {
	f.record(call{Method: "update", ID: id, City: city.Clone()})
	if f.updateErr != nil {
		return domain.City{}, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i] = city.Clone()
		}
	}
	return city, nil
}

func (f *fakeBackend) DeleteCity(_ context.Context, id int64) error {
	f.record(call{Method: "delete", ID: id})
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.list[:0]
	for _, c := range f.list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.list = kept
	return nil
}

type notification struct {
	Severity Severity
	Title    string
	Detail   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []notification
}

func (r *recordingNotifier) Notify(severity Severity, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, notification{severity, title, detail})
}

func (r *recordingNotifier) All() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.seen...)
}

type scriptedConfirmer struct {
	answer   bool
	err      error
	messages []string
}

func (s *scriptedConfirmer) Confirm(_ context.Context, message string) (bool, error) {
	s.messages = append(s.messages, message)
	return s.answer, s.err
}
