package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeStudents struct {
	rows map[int64]models.Student
}

func newFakeStudents(people ...models.Person) *fakeStudents {
	f := &fakeStudents{rows: map[int64]models.Student{}}
	for _, p := range people {
		f.rows[p.ID] = models.Student{Person: p}
	}
	return f
}

func (f *fakeStudents) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := f.rows[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range f.rows {
		if s.UserID != nil && *s.UserID == userID {
			s := s
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudents) Names(ctx context.Context, ids []int64) ([]models.Person, error) {
	var out []models.Person
	for _, id := range ids {
		if s, ok := f.rows[id]; ok {
			out = append(out, s.Person)
		}
	}
	return out, nil
}

func (f *fakeStudents) ListAll(ctx context.Context) ([]models.Person, error) {
	out := make([]models.Person, 0, len(f.rows))
	for _, s := range f.rows {
		out = append(out, s.Person)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeLecturers struct {
	rows map[int64]models.Lecturer
}

func newFakeLecturers(people ...models.Person) *fakeLecturers {
	f := &fakeLecturers{rows: map[int64]models.Lecturer{}}
	for _, p := range people {
		f.rows[p.ID] = models.Lecturer{Person: p}
	}
	return f
}

func (f *fakeLecturers) FindByID(ctx context.Context, id int64) (*models.Lecturer, error) {
	if l, ok := f.rows[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLecturers) FindByUserID(ctx context.Context, userID string) (*models.Lecturer, error) {
	for _, l := range f.rows {
		if l.UserID != nil && *l.UserID == userID {
			l := l
			return &l, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLecturers) Names(ctx context.Context, ids []int64) ([]models.Person, error) {
	var out []models.Person
	for _, id := range ids {
		if l, ok := f.rows[id]; ok {
			out = append(out, l.Person)
		}
	}
	return out, nil
}

func (f *fakeLecturers) ListAll(ctx context.Context) ([]models.Person, error) {
	out := make([]models.Person, 0, len(f.rows))
	for _, l := range f.rows {
		out = append(out, l.Person)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCourses struct {
	rows map[int64]models.Course
}

func newFakeCourses(courses ...models.Course) *fakeCourses {
	f := &fakeCourses{rows: map[int64]models.Course{}}
	for _, c := range courses {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := f.rows[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeCacheRepo struct {
	mu       sync.Mutex
	values   map[string][]byte
	deleted  []string
	patterns []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{values: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = raw
	return nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
	for k := range f.values {
		if ok, _ := path.Match(pattern, k); ok {
			delete(f.values, k)
			f.deleted = append(f.deleted, k)
		}
	}
	return nil
}

func (f *fakeCacheRepo) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

func (f *fakeCacheRepo) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func person(id int64, first, last string) models.Person {
	return models.Person{ID: id, FirstName: first, LastName: last}
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }
