// ABOUTME: Repository implementation over a generic key-value store.
// ABOUTME: Used by the Badger and Charm backends; a mutex makes compare-and-set atomic.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/harperreed/runlog/internal/models"
)

// KV is the minimal key-value contract a KVStore needs. Get returns an error
// matching ErrNotFound for a missing key.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys(prefix []byte) ([][]byte, error)
	Close() error
}

// Mutation is one write in a batch. A nil Value deletes Key.
type Mutation struct {
	Key   []byte
	Value []byte
}

// Batcher is implemented by KVs that can apply several mutations atomically.
type Batcher interface {
	Apply(muts []Mutation) error
}

// Key prefixes. Every key is <prefix><user_id>:<id>.
const (
	RunPrefix    = "run:"
	RecordPrefix = "record:"
	StreakPrefix = "streak:"
	ShoePrefix   = "shoe:"
	GoalPrefix   = "goal:"
)

// KVStore implements Repository on top of a KV.
type KVStore struct {
	kv KV
	mu sync.Mutex
}

var _ Repository = (*KVStore)(nil)

// NewKVStore wraps kv as a Repository.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func userKey(prefix, userID, id string) []byte {
	return []byte(prefix + userID + ":" + id)
}

func (s *KVStore) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.kv.Set(key, data)
}

func getJSON[T any](kv KV, key []byte) (*T, error) {
	data, err := kv.Get(key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return &v, nil
}

func listJSON[T any](kv KV, prefix []byte) ([]*T, error) {
	keys, err := kv.Keys(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		v, err := getJSON[T](kv, k)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveKey finds the single key under prefix+userID: whose ID starts with idOrPrefix.
func (s *KVStore) resolveKey(prefix, userID, idOrPrefix string) ([]byte, error) {
	search := userKey(prefix, userID, idOrPrefix)
	if isFullUUID(idOrPrefix) {
		return search, nil
	}
	keys, err := s.kv.Keys(search)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: %w", idOrPrefix, ErrNotFound)
	}
	if len(keys) > 1 {
		return nil, fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}
	return keys[0], nil
}

// CreateRun stores a new run.
func (s *KVStore) CreateRun(r *models.Run) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(userKey(RunPrefix, r.UserID, r.ID.String()), r); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID or ID prefix.
func (s *KVStore) GetRun(userID, idOrPrefix string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, err := s.resolveKey(RunPrefix, userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	r, err := getJSON[models.Run](s.kv, key)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", idOrPrefix, err)
	}
	return r, nil
}

// ListRuns retrieves a user's runs, most recent first.
func (s *KVStore) ListRuns(userID string, filter RunFilter) ([]*models.Run, error) {
	s.mu.Lock()
	all, err := listJSON[models.Run](s.kv, []byte(RunPrefix+userID+":"))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := all[:0]
	for _, r := range all {
		if filter.matches(r.Date) {
			runs = append(runs, r)
		}
	}
	sortRunsNewestFirst(runs)
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

// DeleteRun removes a run.
func (s *KVStore) DeleteRun(userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(RunPrefix, userID, id.String())
	if _, err := s.kv.Get(key); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if err := s.kv.Delete(key); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// GetRecords returns the user's personal records in category order.
func (s *KVStore) GetRecords(userID string) ([]*models.PersonalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := listJSON[models.PersonalRecord](s.kv, []byte(RecordPrefix+userID+":"))
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	return sortRecords(recs), nil
}

// UpsertRecord writes rec if the stored value still equals expected.
func (s *KVStore) UpsertRecord(rec *models.PersonalRecord, expected *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(RecordPrefix, rec.UserID, string(rec.RecordType))
	cur, err := getJSON[models.PersonalRecord](s.kv, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("upsert record: %w", err)
	}

	conflict := &ConflictError{Entity: "record", Key: rec.UserID + "/" + string(rec.RecordType)}
	switch {
	case expected == nil && cur != nil:
		return conflict
	case expected != nil && (cur == nil || cur.Value != *expected):
		return conflict
	}

	if err := s.put(key, rec); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// ReplaceRecords swaps the user's records for recs.
func (s *KVStore) ReplaceRecords(userID string, recs []*models.PersonalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make(map[string]any, len(recs))
	for _, rec := range recs {
		rec.UserID = userID
		entries[string(userKey(RecordPrefix, userID, string(rec.RecordType)))] = rec
	}
	if err := s.replacePrefix(RecordPrefix+userID+":", entries); err != nil {
		return fmt.Errorf("replace records: %w", err)
	}
	return nil
}

// GetActiveStreak returns the user's open streak or ErrNotFound.
func (s *KVStore) GetActiveStreak(userID string) (*models.RunningStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streaks, err := listJSON[models.RunningStreak](s.kv, []byte(StreakPrefix+userID+":"))
	if err != nil {
		return nil, fmt.Errorf("get active streak: %w", err)
	}
	for _, st := range streaks {
		if st.IsActive {
			return st, nil
		}
	}
	return nil, fmt.Errorf("active streak for %s: %w", userID, ErrNotFound)
}

// ListStreaks returns all of the user's streaks, oldest first.
func (s *KVStore) ListStreaks(userID string) ([]*models.RunningStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streaks, err := listJSON[models.RunningStreak](s.kv, []byte(StreakPrefix+userID+":"))
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	sort.Slice(streaks, func(i, j int) bool { return streaks[i].StartDate.Before(streaks[j].StartDate) })
	return streaks, nil
}

// UpsertStreak inserts or updates a streak if its version still matches.
func (s *KVStore) UpsertStreak(st *models.RunningStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(StreakPrefix, st.UserID, st.ID.String())
	cur, err := getJSON[models.RunningStreak](s.kv, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("upsert streak: %w", err)
	}

	conflict := &ConflictError{Entity: "streak", Key: st.ID.String()}
	if st.Version == 0 {
		if cur != nil {
			return conflict
		}
		if st.IsActive {
			others, err := listJSON[models.RunningStreak](s.kv, []byte(StreakPrefix+st.UserID+":"))
			if err != nil {
				return fmt.Errorf("upsert streak: %w", err)
			}
			for _, o := range others {
				if o.IsActive {
					return conflict
				}
			}
		}
	} else if cur == nil || cur.Version != st.Version {
		return conflict
	}

	next := *st
	next.Version++
	if err := s.put(key, &next); err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	st.Version = next.Version
	return nil
}

// ReplaceStreaks swaps all of the user's streaks.
func (s *KVStore) ReplaceStreaks(userID string, streaks []*models.RunningStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make(map[string]any, len(streaks))
	for _, st := range streaks {
		st.UserID = userID
		st.Version++
		entries[string(userKey(StreakPrefix, userID, st.ID.String()))] = st
	}
	if err := s.replacePrefix(StreakPrefix+userID+":", entries); err != nil {
		return fmt.Errorf("replace streaks: %w", err)
	}
	return nil
}

// CreateShoe stores a new shoe.
func (s *KVStore) CreateShoe(sh *models.Shoe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(userKey(ShoePrefix, sh.UserID, sh.ID.String()), sh); err != nil {
		return fmt.Errorf("create shoe: %w", err)
	}
	return nil
}

// GetShoe retrieves a shoe by ID or ID prefix.
func (s *KVStore) GetShoe(userID, idOrPrefix string) (*models.Shoe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, err := s.resolveKey(ShoePrefix, userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	sh, err := getJSON[models.Shoe](s.kv, key)
	if err != nil {
		return nil, fmt.Errorf("get shoe %s: %w", idOrPrefix, err)
	}
	return sh, nil
}

// ListShoes returns the user's shoes, highest mileage first.
func (s *KVStore) ListShoes(userID string, includeRetired bool) ([]*models.Shoe, error) {
	s.mu.Lock()
	all, err := listJSON[models.Shoe](s.kv, []byte(ShoePrefix+userID+":"))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}

	shoes := all[:0]
	for _, sh := range all {
		if includeRetired || !sh.Retired {
			shoes = append(shoes, sh)
		}
	}
	sort.SliceStable(shoes, func(i, j int) bool {
		if shoes[i].TotalDistanceKm != shoes[j].TotalDistanceKm {
			return shoes[i].TotalDistanceKm > shoes[j].TotalDistanceKm
		}
		return shoes[i].CreatedAt.Before(shoes[j].CreatedAt)
	})
	return shoes, nil
}

// AdjustShoeDistance adds deltaKm to the shoe's mileage, flooring at zero.
func (s *KVStore) AdjustShoeDistance(userID string, id uuid.UUID, deltaKm float64) error {
	return s.updateShoe(userID, id, "adjust shoe distance", func(sh *models.Shoe) {
		sh.TotalDistanceKm += deltaKm
		if sh.TotalDistanceKm < 0 {
			sh.TotalDistanceKm = 0
		}
	})
}

// RetireShoe marks a shoe as retired.
func (s *KVStore) RetireShoe(userID string, id uuid.UUID) error {
	return s.updateShoe(userID, id, "retire shoe", func(sh *models.Shoe) {
		sh.Retired = true
	})
}

func (s *KVStore) updateShoe(userID string, id uuid.UUID, op string, fn func(*models.Shoe)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(ShoePrefix, userID, id.String())
	sh, err := getJSON[models.Shoe](s.kv, key)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	fn(sh)
	if err := s.put(key, sh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func goalKey(userID string, month civil.Date) []byte {
	return userKey(GoalPrefix, userID, fmt.Sprintf("%04d-%02d", month.Year, int(month.Month)))
}

// SetGoal creates or replaces the goal for the goal's month.
func (s *KVStore) SetGoal(g *models.Goal) error {
	g.Month = models.FirstOfMonth(g.Month)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(goalKey(g.UserID, g.Month), g); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// GetGoal returns the goal for the month containing month.
func (s *KVStore) GetGoal(userID string, month civil.Date) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := getJSON[models.Goal](s.kv, goalKey(userID, month))
	if err != nil {
		return nil, fmt.Errorf("goal for %s: %w", models.FirstOfMonth(month), err)
	}
	return g, nil
}

// GetAllData retrieves every user's data for export.
func (s *KVStore) GetAllData() (*ExportData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := newExportData()
	var err error
	if data.Shoes, err = listJSON[models.Shoe](s.kv, []byte(ShoePrefix)); err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	if data.Runs, err = listJSON[models.Run](s.kv, []byte(RunPrefix)); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if data.Records, err = listJSON[models.PersonalRecord](s.kv, []byte(RecordPrefix)); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if data.Streaks, err = listJSON[models.RunningStreak](s.kv, []byte(StreakPrefix)); err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	if data.Goals, err = listJSON[models.Goal](s.kv, []byte(GoalPrefix)); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	sort.SliceStable(data.Runs, func(i, j int) bool {
		if data.Runs[i].Date != data.Runs[j].Date {
			return data.Runs[i].Date.Before(data.Runs[j].Date)
		}
		return data.Runs[i].CreatedAt.Before(data.Runs[j].CreatedAt)
	})
	return data, nil
}

// ImportData imports data from an export file.
func (s *KVStore) ImportData(data *ExportData) error {
	return importInto(s, data)
}

// Close closes the underlying KV.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Close()
}

// replacePrefix makes entries the only values under prefix. Everything is
// marshaled before the first write. A Batcher applies the change in one
// transaction; any other KV gets the new values before stale keys are pruned,
// so an interrupted replace never leaves the prefix empty.
func (s *KVStore) replacePrefix(prefix string, entries map[string]any) error {
	muts := make([]Mutation, 0, len(entries))
	for key, v := range entries {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		muts = append(muts, Mutation{Key: []byte(key), Value: data})
	}
	existing, err := s.kv.Keys([]byte(prefix))
	if err != nil {
		return err
	}
	for _, k := range existing {
		if _, ok := entries[string(k)]; !ok {
			muts = append(muts, Mutation{Key: k})
		}
	}

	if b, ok := s.kv.(Batcher); ok {
		return b.Apply(muts)
	}
	for _, m := range muts {
		if m.Value == nil {
			err = s.kv.Delete(m.Key)
		} else {
			err = s.kv.Set(m.Key, m.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func sortRunsNewestFirst(runs []*models.Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Date != runs[j].Date {
			return runs[i].Date.After(runs[j].Date)
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
