package pipeline_test

import (
	"context"
	"sync"
	"time"

	"ept-positioning/internal/models"
	"ept-positioning/internal/repository"
)

// fakeEventStore 仅用于单元测试（内存活动表 + 写入记录）
type fakeEventStore struct {
	mu        sync.Mutex
	events    []*models.Event
	activeErr error
	addErr    map[string]error
	added     map[string][][]models.EstimatedPosition
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	return &fakeEventStore{
		events: events,
		addErr: make(map[string]error),
		added:  make(map[string][][]models.EstimatedPosition),
	}
}

func (f *fakeEventStore) GetActiveEvents(ctx context.Context, now time.Time) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.activeErr != nil {
		return nil, f.activeErr
	}

	var active []*models.Event
	for _, event := range f.events {
		if !event.StartDate.After(now) && !event.EndDate.Before(now) {
			active = append(active, event)
		}
	}
	return active, nil
}

func (f *fakeEventStore) AddDevicePositions(ctx context.Context, eventID string, positions []models.EstimatedPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.addErr[eventID]; err != nil {
		return err
	}
	f.added[eventID] = append(f.added[eventID], positions)
	return nil
}

func (f *fakeEventStore) addedBatches(eventID string) [][]models.EstimatedPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.added[eventID]
}

// fakeSensorLinker 仅用于单元测试（内存别名表）
type fakeSensorLinker struct {
	links map[string]string
}

func newFakeSensorLinker() *fakeSensorLinker {
	return &fakeSensorLinker{links: make(map[string]string)}
}

func (f *fakeSensorLinker) link(markerID, mac string) {
	f.links[markerID] = mac
}

func (f *fakeSensorLinker) GetMacAddress(ctx context.Context, markerID string) (string, error) {
	mac, ok := f.links[markerID]
	if !ok {
		return "", repository.ErrLinkNotFound
	}
	return mac, nil
}
