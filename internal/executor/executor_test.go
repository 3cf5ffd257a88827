package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/repo"
)

// --- Fakes ---

type publishCall struct {
	content  string
	options  []string
	duration int
	ownerID  int64
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) PublishPost(_ context.Context, content string, ownerID int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{content: content, ownerID: ownerID})
	if p.err != nil {
		return "", p.err
	}
	return "tweet-1", nil
}

func (p *fakePublisher) PublishPoll(_ context.Context, question string, options []string, duration int, ownerID int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{content: question, options: options, duration: duration, ownerID: ownerID})
	if p.err != nil {
		return "", p.err
	}
	return "poll-1", nil
}

type fakeEnhancer struct {
	options []string
	calls   int
}

func (e *fakeEnhancer) ExtractOptions(context.Context, string, int64) []string {
	e.calls++
	return e.options
}

type statusWrite struct {
	status   domain.PostStatus
	errMsg   string
	postedAt *time.Time
}

type fakeStore struct {
	mu     sync.Mutex
	posts  map[int64]*domain.Post
	writes map[int64][]statusWrite
	err    error
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:  make(map[int64]*domain.Post),
		writes: make(map[int64][]statusWrite),
	}
}

// add сохраняет копию записи и возвращает переданный указатель.
func (w *fakeStore) add(post *domain.Post) *domain.Post {
	w.mu.Lock()
	defer w.mu.Unlock()
	stored := *post
	w.posts[post.ID] = &stored
	return post
}

func (w *fakeStore) Get(_ context.Context, id int64) (*domain.Post, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.getErr != nil {
		return nil, w.getErr
	}
	post, ok := w.posts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (w *fakeStore) SetStatus(_ context.Context, id int64, status domain.PostStatus, errMsg string, postedAt *time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return false, w.err
	}
	w.writes[id] = append(w.writes[id], statusWrite{status: status, errMsg: errMsg, postedAt: postedAt})
	if post, ok := w.posts[id]; ok {
		post.Status = status
	}
	return true, nil
}

type fakeEvents struct {
	published []int64
	failed    []int64
}

func (e *fakeEvents) PostPublished(_ context.Context, post *domain.Post, _ string) error {
	e.published = append(e.published, post.ID)
	return nil
}

func (e *fakeEvents) PostFailed(_ context.Context, post *domain.Post) error {
	e.failed = append(e.failed, post.ID)
	return errors.New("broker down")
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestExecutor(pub *fakePublisher, enh ContentEnhancer, store *fakeStore, events Events) *Executor {
	return newTestExecutorWithLocker(pub, enh, store, events, nil)
}

func newTestExecutorWithLocker(pub *fakePublisher, enh ContentEnhancer, store *fakeStore, events Events, locker Locker) *Executor {
	return New(Config{
		Store:    store,
		Registry: NewRegistry(pub, enh),
		Locker:   locker,
		Events:   events,
		Now:      func() time.Time { return testNow },
	})
}

func pollPost(id int64, meta *domain.PollMetadata) *domain.Post {
	return &domain.Post{
		ID:       id,
		OwnerID:  7,
		Content:  "Best editor?",
		Kind:     domain.KindPoll,
		Status:   domain.PostStatusPending,
		Metadata: domain.Metadata{Poll: meta},
	}
}

// --- Tests ---

func TestProcess_PlainSuccess(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	events := &fakeEvents{}
	exec := newTestExecutor(pub, nil, store, events)

	post := store.add(&domain.Post{ID: 1, OwnerID: 7, Content: "hello", Kind: domain.KindPlain, Status: domain.PostStatusPending})
	outcome, err := exec.Process(context.Background(), post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.PostStatusPosted || outcome.ReceiptID != "tweet-1" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	if len(pub.calls) != 1 || pub.calls[0].content != "hello" || pub.calls[0].ownerID != 7 {
		t.Fatalf("publisher calls: %+v", pub.calls)
	}

	writes := store.writes[1]
	if len(writes) != 1 {
		t.Fatalf("expected exactly one status write, got %d", len(writes))
	}
	if writes[0].status != domain.PostStatusPosted || writes[0].postedAt == nil || writes[0].errMsg != "" {
		t.Errorf("unexpected status write: %+v", writes[0])
	}
	if len(events.published) != 1 {
		t.Errorf("expected post.posted event, got %v", events.published)
	}
}

func TestProcess_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("rate limited")}
	store := newFakeStore()
	events := &fakeEvents{}
	exec := newTestExecutor(pub, nil, store, events)

	post := store.add(&domain.Post{ID: 2, OwnerID: 7, Content: "hello", Kind: domain.KindPlain, Status: domain.PostStatusPending})
	outcome, err := exec.Process(context.Background(), post)
	if err != nil {
		t.Fatalf("publish errors must not be returned: %v", err)
	}
	if outcome.Status != domain.PostStatusFailed || !errors.Is(outcome.Err, domain.ErrPublish) {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	writes := store.writes[2]
	if len(writes) != 1 || writes[0].status != domain.PostStatusFailed || writes[0].postedAt != nil {
		t.Fatalf("unexpected status writes: %+v", writes)
	}
	if writes[0].errMsg == "" {
		t.Error("failed write must carry the error message")
	}
	// Ошибка события не меняет итог
	if len(events.failed) != 1 {
		t.Errorf("expected post.failed event, got %v", events.failed)
	}
}

func TestProcess_PollUsesStoredOptions(t *testing.T) {
	pub := &fakePublisher{}
	enh := &fakeEnhancer{options: []string{"x", "y"}}
	store := newFakeStore()
	exec := newTestExecutor(pub, enh, store, nil)

	post := store.add(pollPost(3, &domain.PollMetadata{Options: []string{"A", "B", "C"}}))
	outcome, err := exec.Process(context.Background(), post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.PostStatusPosted {
		t.Fatalf("expected posted, got %+v", outcome)
	}
	if enh.calls != 0 {
		t.Error("enhancer must not be called when options are stored")
	}

	call := pub.calls[0]
	if len(call.options) != 3 || call.options[0] != "A" || call.options[2] != "C" {
		t.Errorf("expected stored options, got %v", call.options)
	}
	if call.duration != domain.DefaultPollDuration {
		t.Errorf("expected default duration, got %d", call.duration)
	}
}

func TestProcess_PollPrefersPreviewOptions(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	exec := newTestExecutor(pub, &fakeEnhancer{}, store, nil)

	post := store.add(pollPost(4, &domain.PollMetadata{
		Options:         []string{"A", "B"},
		PreviewOptions:  []string{"P1", "P2", "P3"},
		DurationMinutes: 60,
	}))
	if _, err := exec.Process(context.Background(), post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := pub.calls[0]
	if len(call.options) != 3 || call.options[0] != "P1" {
		t.Errorf("expected preview options, got %v", call.options)
	}
	if call.duration != 60 {
		t.Errorf("expected duration 60, got %d", call.duration)
	}
}

func TestProcess_PollGeneratesOptions(t *testing.T) {
	pub := &fakePublisher{}
	enh := &fakeEnhancer{options: []string{"Vim", "Emacs", "VS Code"}}
	store := newFakeStore()
	exec := newTestExecutor(pub, enh, store, nil)

	outcome, err := exec.Process(context.Background(), store.add(pollPost(5, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.PostStatusPosted {
		t.Fatalf("expected posted, got %+v", outcome)
	}
	if enh.calls != 1 {
		t.Errorf("expected one ExtractOptions call, got %d", enh.calls)
	}
	if got := pub.calls[0].options; len(got) != 3 || got[1] != "Emacs" {
		t.Errorf("expected generated options, got %v", got)
	}
}

func TestProcess_PollInvalidOptionCount(t *testing.T) {
	tests := []struct {
		name    string
		options []string
	}{
		{"one option", []string{"only"}},
		{"five options", []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			store := newFakeStore()
			exec := newTestExecutor(pub, &fakeEnhancer{}, store, nil)

			outcome, err := exec.Process(context.Background(), store.add(pollPost(6, &domain.PollMetadata{Options: tt.options})))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.Status != domain.PostStatusFailed || !errors.Is(outcome.Err, domain.ErrValidation) {
				t.Errorf("expected validation failure, got %+v", outcome)
			}
			if len(pub.calls) != 0 {
				t.Error("publisher must not be called")
			}
			if w := store.writes[6]; len(w) != 1 || w[0].status != domain.PostStatusFailed {
				t.Errorf("expected failed write, got %+v", w)
			}
		})
	}
}

func TestProcess_UnknownKind(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(&fakePublisher{}, nil, store, nil)

	post := store.add(&domain.Post{ID: 8, Kind: domain.PostKind("video"), Status: domain.PostStatusPending})
	outcome, err := exec.Process(context.Background(), post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.PostStatusFailed || !errors.Is(outcome.Err, domain.ErrValidation) {
		t.Errorf("expected validation failure, got %+v", outcome)
	}
}

func TestProcess_StorageErrorReturned(t *testing.T) {
	store := newFakeStore()
	store.err = domain.ErrStorage
	exec := newTestExecutor(&fakePublisher{}, nil, store, nil)

	post := store.add(&domain.Post{ID: 9, Kind: domain.KindPlain, Content: "x", Status: domain.PostStatusPending})
	if _, err := exec.Process(context.Background(), post); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestProcess_LockedPostSkipped(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	locker := NewLocalLocker()
	exec := New(Config{Store: store, Registry: NewRegistry(pub, nil), Locker: locker})

	unlock, err := locker.Lock(context.Background(), lockKey(10))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock(context.Background())

	outcome, err := exec.Process(context.Background(), &domain.Post{ID: 10, Kind: domain.KindPlain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Skipped || len(pub.calls) != 0 || len(store.writes) != 0 {
		t.Errorf("locked post must be skipped untouched: %+v", outcome)
	}
}

func TestProcess_CancelledAfterSnapshotSkipped(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	exec := newTestExecutor(pub, nil, store, nil)

	snapshot := store.add(&domain.Post{ID: 11, Kind: domain.KindPlain, Content: "x", Status: domain.PostStatusPending})
	store.posts[11].Status = domain.PostStatusCancelled

	outcome, err := exec.Process(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Skipped {
		t.Errorf("cancelled post must be skipped: %+v", outcome)
	}
	if len(pub.calls) != 0 || len(store.writes[11]) != 0 {
		t.Errorf("cancelled post must not be published or written: calls=%v writes=%v", pub.calls, store.writes[11])
	}
}

func TestProcess_DeletedPostSkipped(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	exec := newTestExecutor(pub, nil, store, nil)

	outcome, err := exec.Process(context.Background(), &domain.Post{ID: 12, Kind: domain.KindPlain, Status: domain.PostStatusPending})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Skipped || len(pub.calls) != 0 {
		t.Errorf("missing post must be skipped: %+v, calls=%v", outcome, pub.calls)
	}
}

func TestProcess_RescheduledPostSkipped(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	exec := newTestExecutor(pub, nil, store, nil)

	snapshot := store.add(&domain.Post{ID: 13, Kind: domain.KindPlain, Content: "x", Status: domain.PostStatusPending})
	store.posts[13].ScheduledAt = testNow.Add(time.Hour)

	outcome, err := exec.Process(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Skipped || len(pub.calls) != 0 {
		t.Errorf("post moved to the future must be skipped: %+v", outcome)
	}
}

func TestProcess_PublishesStoredContent(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	exec := newTestExecutor(pub, nil, store, nil)

	snapshot := store.add(&domain.Post{ID: 14, OwnerID: 7, Kind: domain.KindPlain, Content: "old", Status: domain.PostStatusPending})
	store.posts[14].Content = "edited"

	if _, err := exec.Process(context.Background(), snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0].content != "edited" {
		t.Fatalf("expected stored content to be published, got %+v", pub.calls)
	}
	if snapshot.Status != domain.PostStatusPosted || snapshot.Content != "edited" {
		t.Errorf("caller's post must reflect the published record: %+v", snapshot)
	}
}

func TestProcess_StaleSnapshotPublishedOnce(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	locker := NewLocalLocker()
	first := newTestExecutorWithLocker(pub, nil, store, nil, locker)
	second := newTestExecutorWithLocker(pub, nil, store, nil, locker)

	store.add(&domain.Post{ID: 15, Kind: domain.KindPlain, Content: "x", Status: domain.PostStatusPending})
	stale, _ := store.Get(context.Background(), 15)

	if _, err := first.Process(context.Background(), &domain.Post{ID: 15, Kind: domain.KindPlain, Content: "x", Status: domain.PostStatusPending}); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	outcome, err := second.Process(context.Background(), stale)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if !outcome.Skipped {
		t.Errorf("stale snapshot must be skipped: %+v", outcome)
	}
	if len(pub.calls) != 1 {
		t.Errorf("expected exactly one publish, got %d", len(pub.calls))
	}
	if w := store.writes[15]; len(w) != 1 || w[0].status != domain.PostStatusPosted {
		t.Errorf("expected a single posted write, got %+v", w)
	}
}

func TestProcess_ReloadErrorReturned(t *testing.T) {
	store := newFakeStore()
	store.getErr = domain.ErrStorage
	pub := &fakePublisher{}
	exec := newTestExecutor(pub, nil, store, nil)

	if _, err := exec.Process(context.Background(), &domain.Post{ID: 16, Kind: domain.KindPlain}); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Error("publisher must not be called when the record cannot be read")
	}
}
