package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"jobflow-backend/internal/models"
	"jobflow-backend/internal/nas"
	"jobflow-backend/internal/repositories"
)

type moveCall struct {
	Source      string
	Files       []string
	Destination string
}

// fakeFS is an in-memory NAS tree: folder path -> file names
type fakeFS struct {
	mu        sync.Mutex
	folders   map[string]bool
	files     map[string]map[string]bool
	moves     []moveCall
	creates   []string
	moveErrs  []error // returned by successive Move calls before succeeding
	createErr error
	lists     int
}

func newFakeFS() *fakeFS {
	return &fakeFS{folders: map[string]bool{"/Production": true}, files: map[string]map[string]bool{}}
}

func (f *fakeFS) addFiles(dir string, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files[dir] == nil {
		f.files[dir] = map[string]bool{}
	}
	for _, n := range names {
		f.files[dir][n] = true
	}
}

func (f *fakeFS) filesIn(dir string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for n := range f.files[dir] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *fakeFS) List(ctx context.Context, dir string) ([]nas.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []nas.FileInfo
	for n := range f.files[dir] {
		out = append(out, nas.FileInfo{Name: n})
	}
	for folder := range f.folders {
		if parent, name, ok := cutLast(folder); ok && parent == dir {
			out = append(out, nas.FileInfo{Name: name, IsFolder: true})
		}
	}
	return out, nil
}

func (f *fakeFS) CreateFolder(ctx context.Context, parent, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	full := parent + "/" + name
	f.creates = append(f.creates, full)
	f.folders[full] = true
	return nil
}

func (f *fakeFS) Move(ctx context.Context, srcDir string, files []string, destDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, moveCall{Source: srcDir, Files: append([]string(nil), files...), Destination: destDir})
	if len(f.moveErrs) > 0 {
		err := f.moveErrs[0]
		f.moveErrs = f.moveErrs[1:]
		return err
	}
	if !f.folders[destDir] {
		return &nas.RemoteError{Status: nas.StatusNotFound, Message: "destination missing", Context: "move"}
	}
	if f.files[destDir] == nil {
		f.files[destDir] = map[string]bool{}
	}
	for _, n := range files {
		delete(f.files[srcDir], n)
		f.files[destDir][n] = true
	}
	return nil
}

func cutLast(p string) (string, string, bool) {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "", "", false
	}
	return p[:i], p[i+1:], true
}

type fakeEmployees struct {
	byID map[int]*models.Employee
}

func newFakeEmployees(emps ...*models.Employee) *fakeEmployees {
	f := &fakeEmployees{byID: map[int]*models.Employee{}}
	for _, e := range emps {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEmployees) Get(ctx context.Context, id int) (*models.Employee, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, repositories.ErrEmployeeNotFound
}

func (f *fakeEmployees) GetByUserID(ctx context.Context, userID int) (*models.Employee, error) {
	for _, e := range f.byID {
		if e.UserID == userID && e.IsActive {
			return e, nil
		}
	}
	return nil, repositories.ErrEmployeeNotFound
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.JobEvent
}

func (f *fakeEvents) Create(ctx context.Context, e *models.JobEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.EventType+":"+e.FileName)
	}
	return out
}

// conflictOnceStore fails the first Save with a version conflict after
// letting another writer change the stored order.
type conflictOnceStore struct {
	*repositories.MemoryOrderStore
	interfere func()
	fired     bool
}

func (c *conflictOnceStore) Save(ctx context.Context, order *models.Order) error {
	if !c.fired {
		c.fired = true
		c.interfere()
	}
	return c.MemoryOrderStore.Save(ctx, order)
}

// failingSaveStore always fails to save
type failingSaveStore struct {
	*repositories.MemoryOrderStore
	err error
}

func (f *failingSaveStore) Save(ctx context.Context, order *models.Order) error {
	return f.err
}
