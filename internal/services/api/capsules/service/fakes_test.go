package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit/repokit"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/store"
	"timecapsule/internal/services/api/capsules/domain"
	"timecapsule/internal/services/api/capsules/repo"
)

// memRepo is an in-memory repo.Repo shared by every Bind
type memRepo struct {
	mu      sync.Mutex
	caps    map[string]domain.Capsule
	marks   int
	markErr error
	// dbNow plays the database clock behind the unlock_at guard when set
	dbNow *time.Time
	// onLock runs inside GetForUpdate before the row is read
	onLock func(c *domain.Capsule)
}

func newMemRepo() *memRepo { return &memRepo{caps: map[string]domain.Capsule{}} }

func (m *memRepo) Bind(repokit.Queryer) repo.Repo { return m }

func (m *memRepo) put(c domain.Capsule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Media == nil {
		c.Media = []domain.MediaItem{}
	}
	m.caps[c.ID] = c
}

func (m *memRepo) Create(_ context.Context, c domain.Capsule) (domain.Capsule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Media == nil {
		c.Media = []domain.MediaItem{}
	}
	m.caps[c.ID] = c
	return c, nil
}

func (m *memRepo) Get(_ context.Context, id string) (domain.Capsule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caps[id]
	if !ok {
		return domain.Capsule{}, perr.NotFoundf("capsule not found")
	}
	return c, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id string) (domain.Capsule, error) {
	if m.onLock != nil {
		m.mu.Lock()
		c := m.caps[id]
		m.onLock(&c)
		m.caps[id] = c
		m.mu.Unlock()
	}
	return m.Get(ctx, id)
}

func (m *memRepo) ListByOwner(_ context.Context, owner string) ([]domain.Capsule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Capsule
	for _, c := range m.caps {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockAt.Before(out[j].UnlockAt) })
	return out, nil
}

func (m *memRepo) MarkUnlocked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	c := m.caps[id]
	if c.IsUnlocked || (m.dbNow != nil && c.UnlockAt.After(*m.dbNow)) {
		return false, nil
	}
	m.marks++
	c.IsUnlocked = true
	m.caps[id] = c
	return true, nil
}

func (m *memRepo) AppendMedia(_ context.Context, id string, items []domain.MediaItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.caps[id]
	c.Media = append(append([]domain.MediaItem{}, c.Media...), items...)
	c.Revision++
	m.caps[id] = c
	return c.Revision, nil
}

// fakeTx runs fn inline with itself as the Queryer
type fakeTx struct{ txs int }

func (f *fakeTx) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, errors.New("fakeTx: exec not supported")
}

func (f *fakeTx) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("fakeTx: query not supported")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (f *fakeTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error {
	f.txs++
	return fn(f)
}

// memBlobs is an in-memory blob.Store
type memBlobs struct {
	mu      sync.Mutex
	objs    map[string]string
	deleted []string
	failOn  int // 1-based Put call that fails; 0 never
	puts    int
}

func newMemBlobs() *memBlobs { return &memBlobs{objs: map[string]string{}} }

func (b *memBlobs) Put(_ context.Context, folder, name, contentType string, body io.Reader) (blob.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.failOn == b.puts {
		return blob.Object{}, perr.Storage(errors.New("bucket unreachable"), "put")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return blob.Object{}, err
	}
	key := fmt.Sprintf("%s/%s/%d-%s", blob.RootFolder, folder, b.puts, name)
	b.objs[key] = string(data)
	sum, _, _ := blob.Checksum(strings.NewReader(string(data)))
	return blob.Object{Key: key, URL: "https://media.test/" + key, ContentType: contentType, Size: int64(len(data)), Checksum: sum}, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objs, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objs)
}

// recSink records events
type recSink struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recSink) Record(_ context.Context, evs ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
}

func (r *recSink) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.evs))
	for i, e := range r.evs {
		out[i] = e.Kind
	}
	return out
}

func upload(name, contentType, body string) domain.Upload {
	return domain.Upload{
		File: admission.File{Name: name, ContentType: contentType, Size: int64(len(body))},
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func uploads(n int, kind, contentType string) []domain.Upload {
	out := make([]domain.Upload, n)
	for i := range out {
		out[i] = upload(fmt.Sprintf("%s-%d", kind, i), contentType, kind)
	}
	return out
}

func media(kind admission.Kind, n int) []domain.MediaItem {
	out := make([]domain.MediaItem, n)
	for i := range out {
		out[i] = domain.MediaItem{Kind: kind, StorageID: fmt.Sprintf("pre-%s-%d", kind, i)}
	}
	return out
}
