package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
)

// FakeRemoteStore is an in-memory fieldlog.RemoteStore for testing. It
// assigns sequential period ids, deduplicates creates on client key, and
// supports one-shot error injection per operation.
type FakeRemoteStore struct {
	mu     sync.Mutex
	nextID int

	Periods        map[string]*model.TimePeriod
	Breaks         map[string][]model.Break
	UsedFleet      map[string][]model.UsedFleetEntry
	MobilisedFleet map[string][]model.MobilisedFleetEntry
	RevisionRows   []model.RevisionRecord

	// One-shot injected errors: the next matching call fails and the field
	// clears itself.
	CreateErr    error
	UpdateErr    error
	GetErr       error
	ListErr      error
	BreaksErr    error
	RevisionsErr error

	// CreateErrByKey fails CreateTimePeriod once for a specific client key,
	// letting one entry of a batch fail while the rest commit.
	CreateErrByKey map[string]error

	CreateCalls int
}

var _ fieldlog.RemoteStore = (*FakeRemoteStore)(nil)

// NewFakeRemoteStore creates an empty FakeRemoteStore.
func NewFakeRemoteStore() *FakeRemoteStore {
	return &FakeRemoteStore{
		Periods:        make(map[string]*model.TimePeriod),
		Breaks:         make(map[string][]model.Break),
		UsedFleet:      make(map[string][]model.UsedFleetEntry),
		MobilisedFleet: make(map[string][]model.MobilisedFleetEntry),
		CreateErrByKey: make(map[string]error),
	}
}

func takeErr(slot *error) error {
	err := *slot
	*slot = nil
	return err
}

// SeedPeriod stores a period as already committed, assigning an id if the
// period has none.
func (f *FakeRemoteStore) SeedPeriod(period *model.TimePeriod) *model.TimePeriod {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := *period
	if p.ID == "" {
		f.nextID++
		p.ID = fmt.Sprintf("period-%d", f.nextID)
	}
	f.Periods[p.ID] = &p
	return &p
}

func (f *FakeRemoteStore) CreateTimePeriod(_ context.Context, period *model.TimePeriod) (*model.TimePeriod, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	if err := takeErr(&f.CreateErr); err != nil {
		return nil, false, err
	}
	if err, ok := f.CreateErrByKey[period.ClientKey]; ok {
		delete(f.CreateErrByKey, period.ClientKey)
		return nil, false, err
	}

	if period.ClientKey != "" {
		for _, p := range f.Periods {
			if p.ClientKey == period.ClientKey {
				existing := *p
				return &existing, true, nil
			}
		}
	}

	f.nextID++
	p := *period
	p.ID = fmt.Sprintf("period-%d", f.nextID)
	f.Periods[p.ID] = &p

	created := p
	return &created, false, nil
}

func (f *FakeRemoteStore) UpdateTimePeriod(_ context.Context, period *model.TimePeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := takeErr(&f.UpdateErr); err != nil {
		return err
	}
	if _, ok := f.Periods[period.ID]; !ok {
		return fmt.Errorf("period %s not found", period.ID)
	}
	p := *period
	f.Periods[p.ID] = &p
	return nil
}

func (f *FakeRemoteStore) GetTimePeriod(_ context.Context, id string) (*model.TimePeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := takeErr(&f.GetErr); err != nil {
		return nil, err
	}
	p, ok := f.Periods[id]
	if !ok {
		return nil, nil
	}
	found := *p
	return &found, nil
}

func (f *FakeRemoteStore) ListTimePeriods(_ context.Context, userID, workDate string) ([]model.TimePeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := takeErr(&f.ListErr); err != nil {
		return nil, err
	}

	var out []model.TimePeriod
	for _, p := range f.Periods {
		if p.UserID == userID && p.WorkDate == workDate {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *FakeRemoteStore) ReplaceBreaks(_ context.Context, periodID string, breaks []model.Break) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := takeErr(&f.BreaksErr); err != nil {
		return err
	}
	f.Breaks[periodID] = append([]model.Break(nil), breaks...)
	return nil
}

func (f *FakeRemoteStore) ReplaceUsedFleet(_ context.Context, periodID string, entries []model.UsedFleetEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UsedFleet[periodID] = append([]model.UsedFleetEntry(nil), entries...)
	return nil
}

func (f *FakeRemoteStore) ReplaceMobilisedFleet(_ context.Context, periodID string, entries []model.MobilisedFleetEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.MobilisedFleet[periodID] = append([]model.MobilisedFleetEntry(nil), entries...)
	return nil
}

func (f *FakeRemoteStore) InsertRevisions(_ context.Context, records []model.RevisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := takeErr(&f.RevisionsErr); err != nil {
		return err
	}
	f.RevisionRows = append(f.RevisionRows, records...)
	return nil
}

func (f *FakeRemoteStore) ListRevisions(_ context.Context, periodID string) ([]model.RevisionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.RevisionRecord
	for _, r := range f.RevisionRows {
		if r.TimePeriodID == periodID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RevisionNumber != out[j].RevisionNumber {
			return out[i].RevisionNumber < out[j].RevisionNumber
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out, nil
}

// StubProbe reports a settable reachability state.
type StubProbe struct {
	mu     sync.Mutex
	online bool
}

var _ fieldlog.Probe = (*StubProbe)(nil)

// NewStubProbe creates a StubProbe in the given initial state.
func NewStubProbe(online bool) *StubProbe {
	return &StubProbe{online: online}
}

func (p *StubProbe) Online(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// SetOnline changes the reported state.
func (p *StubProbe) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

// StubIdentity returns a fixed user.
type StubIdentity struct {
	User *model.User
	Err  error
}

var _ fieldlog.Identity = (*StubIdentity)(nil)

// FieldWorker returns a StubIdentity for a plain field worker.
func FieldWorker(id string) *StubIdentity {
	return &StubIdentity{User: &model.User{ID: id, Role: model.RoleFieldWorker}}
}

func (s *StubIdentity) CurrentUser(_ context.Context) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.User, nil
}
