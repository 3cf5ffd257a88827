package posts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/repo"
)

// --- Test helpers ---

type fakePublisher struct {
	err   error
	posts []string
	polls [][]string
}

func (p *fakePublisher) PublishPost(_ context.Context, content string, _ int64) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.posts = append(p.posts, content)
	return "tweet-1", nil
}

func (p *fakePublisher) PublishPoll(_ context.Context, _ string, options []string, _ int, _ int64) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.polls = append(p.polls, options)
	return "poll-1", nil
}

type fakeEnhancer struct {
	enhanced string
	err      error
	options  []string
}

func (e *fakeEnhancer) EnhanceContent(context.Context, string, int64) (string, error) {
	return e.enhanced, e.err
}

func (e *fakeEnhancer) ExtractOptions(context.Context, string, int64) []string {
	return e.options
}

type fakeEvents struct {
	scheduled []int64
	cancelled []int64
	published []int64
}

func (e *fakeEvents) PostScheduled(_ context.Context, post *domain.Post) error {
	e.scheduled = append(e.scheduled, post.ID)
	return nil
}

func (e *fakeEvents) PostCancelled(_ context.Context, post *domain.Post) error {
	e.cancelled = append(e.cancelled, post.ID)
	return nil
}

func (e *fakeEvents) PostPublished(_ context.Context, post *domain.Post, _ string) error {
	e.published = append(e.published, post.ID)
	return nil
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	svc      *Service
	store    *repo.SQLiteRepo
	pub      *fakePublisher
	enhancer *fakeEnhancer
	events   *fakeEvents
	owner    int64
	other    int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	store, err := repo.OpenSQLite(ctx, "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pub := &fakePublisher{}
	enh := &fakeEnhancer{enhanced: "Enhanced!", options: []string{"Go", "Rust", "Zig"}}
	events := &fakeEvents{}
	clock := func() time.Time { return now }

	exec := executor.New(executor.Config{
		Store:    store,
		Registry: executor.NewRegistry(pub, enh),
		Now:      clock,
	})

	svc := NewService(Config{
		Store:     store,
		Publisher: exec,
		Enhancer:  enh,
		Events:    events,
		Now:       clock,
	})

	e := &env{svc: svc, store: store, pub: pub, enhancer: enh, events: events}
	e.owner = e.createOwner(t, "alice")
	e.other = e.createOwner(t, "bob")
	return e
}

func (e *env) createOwner(t *testing.T, name string) int64 {
	t.Helper()
	owner, err := e.svc.CreateOwner(context.Background(), name)
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	return owner.ID
}

func (e *env) schedule(t *testing.T, req ScheduleRequest) *domain.Post {
	t.Helper()
	if req.OwnerID == 0 {
		req.OwnerID = e.owner
	}
	if req.Content == "" {
		req.Content = "hello"
	}
	if req.ScheduledAt.IsZero() {
		req.ScheduledAt = now.Add(time.Hour)
	}
	post, err := e.svc.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return post
}

// --- Schedule ---

func TestSchedule(t *testing.T) {
	e := newEnv(t)
	post := e.schedule(t, ScheduleRequest{Content: "hello world", ScheduledAt: now.Add(time.Minute)})

	if post.ID == 0 || post.Status != domain.PostStatusPending || post.Kind != domain.KindPlain {
		t.Fatalf("unexpected post %+v", post)
	}

	stored, err := e.svc.Get(context.Background(), post.ID, e.owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Content != "hello world" || !stored.ScheduledAt.Equal(now.Add(time.Minute)) {
		t.Errorf("unexpected stored post %+v", stored)
	}
	if len(e.events.scheduled) != 1 || e.events.scheduled[0] != post.ID {
		t.Errorf("expected post.scheduled event, got %v", e.events.scheduled)
	}
}

func TestSchedule_Poll(t *testing.T) {
	e := newEnv(t)
	post := e.schedule(t, ScheduleRequest{
		Kind:            domain.KindPoll,
		Content:         "Tabs or spaces?",
		Options:         []string{"Tabs", "Spaces"},
		DurationMinutes: 60,
	})

	stored, _ := e.svc.Get(context.Background(), post.ID, e.owner)
	meta := stored.Metadata.PollMeta()
	if len(meta.Options) != 2 || meta.DurationMinutes != 60 {
		t.Errorf("unexpected poll metadata %+v", meta)
	}
}

func TestSchedule_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		req  ScheduleRequest
	}{
		{"past time", ScheduleRequest{Content: "x", ScheduledAt: now.Add(-time.Minute)}},
		{"now is not future", ScheduleRequest{Content: "x", ScheduledAt: now}},
		{"blank content", ScheduleRequest{Content: "   ", ScheduledAt: now.Add(time.Hour)}},
		{"unknown kind", ScheduleRequest{Content: "x", Kind: "thread", ScheduledAt: now.Add(time.Hour)}},
		{"one option", ScheduleRequest{Content: "x", Kind: domain.KindPoll, Options: []string{"a"}, ScheduledAt: now.Add(time.Hour)}},
		{"five options", ScheduleRequest{Content: "x", Kind: domain.KindPoll, Options: []string{"a", "b", "c", "d", "e"}, ScheduledAt: now.Add(time.Hour)}},
		{"long option", ScheduleRequest{Content: "x", Kind: domain.KindPoll, Options: []string{"a", strings.Repeat("b", 26)}, ScheduledAt: now.Add(time.Hour)}},
		{"short duration", ScheduleRequest{Content: "x", Kind: domain.KindPoll, DurationMinutes: 4, ScheduledAt: now.Add(time.Hour)}},
		{"long duration", ScheduleRequest{Content: "x", Kind: domain.KindPoll, DurationMinutes: 10081, ScheduledAt: now.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.OwnerID = e.owner
			if _, err := e.svc.Schedule(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	if counts, _ := e.svc.Stats(context.Background(), e.owner); counts.Total() != 0 {
		t.Errorf("invalid requests must not create records, got %d", counts.Total())
	}
}

func TestSchedule_Enhance(t *testing.T) {
	e := newEnv(t)

	post := e.schedule(t, ScheduleRequest{Content: "raw", Enhance: true})
	if post.Content != "Enhanced!" {
		t.Errorf("expected enhanced content, got %q", post.Content)
	}

	e.enhancer.err = errors.New("quota exceeded")
	post = e.schedule(t, ScheduleRequest{Content: "raw", Enhance: true})
	if post.Content != "raw" {
		t.Errorf("enhance failure must keep original content, got %q", post.Content)
	}
}

func TestSchedule_EnhanceFailureStripsTimestamp(t *testing.T) {
	e := newEnv(t)
	e.enhancer.err = errors.New("quota exceeded")

	post := e.schedule(t, ScheduleRequest{Content: "Hello world — 10:30:15 AM", Enhance: true})

	stored, err := e.store.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Content != "Hello world" {
		t.Errorf("expected timestamp stripped, got %q", stored.Content)
	}

	// Без Enhance текст сохраняется как есть.
	post = e.schedule(t, ScheduleRequest{Content: "Hello world — 10:30:15 AM"})
	if post.Content != "Hello world — 10:30:15 AM" {
		t.Errorf("content without enhance must not change, got %q", post.Content)
	}
}

func TestPreview_EnhanceFailureStripsTimestamp(t *testing.T) {
	e := newEnv(t)
	e.enhancer.err = errors.New("down")

	res, err := e.svc.Preview(context.Background(), PreviewRequest{OwnerID: e.owner, Content: "Good morning — 9:15:02 AM"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.Enhanced || res.Content != "Good morning" {
		t.Errorf("expected stripped original, got %+v", res)
	}
}

// --- Edit ---

func TestEdit_PreservesIdentity(t *testing.T) {
	e := newEnv(t)
	post := e.schedule(t, ScheduleRequest{Kind: domain.KindPoll, Content: "Q?", Options: []string{"A", "B"}})

	edited, err := e.svc.Edit(context.Background(), post.ID, e.owner, EditRequest{
		Content:     "New question?",
		ScheduledAt: now.Add(2 * time.Hour),
		Options:     []string{"A", "B", "C"},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if edited.ID != post.ID || edited.OwnerID != e.owner || edited.Kind != domain.KindPoll {
		t.Errorf("edit changed identity: %+v", edited)
	}
	if edited.Content != "New question?" || len(edited.Metadata.PollMeta().Options) != 3 {
		t.Errorf("edit not applied: %+v", edited)
	}
	if !edited.ScheduledAt.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("unexpected scheduled_at %v", edited.ScheduledAt)
	}
}

func TestEdit_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	post := e.schedule(t, ScheduleRequest{})
	valid := EditRequest{Content: "x", ScheduledAt: now.Add(time.Hour)}

	if _, err := e.svc.Edit(ctx, post.ID, e.other, valid); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner: expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.Edit(ctx, 9999, e.owner, valid); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
	if _, err := e.svc.Edit(ctx, post.ID, e.owner, EditRequest{Content: "x", ScheduledAt: now.Add(-time.Hour)}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("past time: expected ErrValidation, got %v", err)
	}

	immediate, err := e.svc.PostNow(ctx, PostNowRequest{OwnerID: e.owner, Content: "now"})
	if err != nil {
		t.Fatalf("post now: %v", err)
	}
	if _, err := e.svc.Edit(ctx, immediate.ID, e.owner, valid); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("immediate: expected ErrInvalidState, got %v", err)
	}
}

func TestEdit_ResetFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	failed := &domain.Post{
		OwnerID:      e.owner,
		Content:      "broken",
		Kind:         domain.KindPlain,
		ScheduledAt:  now.Add(-time.Hour),
		Status:       domain.PostStatusFailed,
		ErrorMessage: "rate limited",
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	if _, err := e.store.Create(ctx, failed); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := EditRequest{Content: "fixed", ScheduledAt: now.Add(time.Hour)}
	if _, err := e.svc.Edit(ctx, failed.ID, e.owner, req); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("failed without reset: expected ErrInvalidState, got %v", err)
	}

	req.ResetToPending = true
	edited, err := e.svc.Edit(ctx, failed.ID, e.owner, req)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if edited.Status != domain.PostStatusPending || edited.ErrorMessage != "" || edited.PostedAt != nil {
		t.Errorf("reset must return a clean pending record, got %+v", edited)
	}
}

// --- Cancel / Delete ---

func TestCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	post := e.schedule(t, ScheduleRequest{})

	if _, err := e.svc.Cancel(ctx, post.ID, e.other); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner: expected ErrForbidden, got %v", err)
	}

	changed, err := e.svc.Cancel(ctx, post.ID, e.owner)
	if err != nil || !changed {
		t.Fatalf("first cancel: changed=%v err=%v", changed, err)
	}
	changed, err = e.svc.Cancel(ctx, post.ID, e.owner)
	if err != nil || changed {
		t.Errorf("second cancel must be a no-op: changed=%v err=%v", changed, err)
	}

	if len(e.events.cancelled) != 1 {
		t.Errorf("expected one post.cancelled event, got %v", e.events.cancelled)
	}

	immediate, _ := e.svc.PostNow(ctx, PostNowRequest{OwnerID: e.owner, Content: "now"})
	if _, err := e.svc.Cancel(ctx, immediate.ID, e.owner); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("posted: expected ErrInvalidState, got %v", err)
	}
}

func TestDeletePermanently(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pending := e.schedule(t, ScheduleRequest{})
	if err := e.svc.DeletePermanently(ctx, pending.ID, e.other); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner: expected ErrForbidden, got %v", err)
	}
	if err := e.svc.DeletePermanently(ctx, pending.ID, e.owner); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	if _, err := e.svc.Get(ctx, pending.ID, e.owner); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("deleted record must be gone, got %v", err)
	}

	cancelled := e.schedule(t, ScheduleRequest{})
	e.svc.Cancel(ctx, cancelled.ID, e.owner)
	if err := e.svc.DeletePermanently(ctx, cancelled.ID, e.owner); err != nil {
		t.Errorf("delete cancelled: %v", err)
	}

	posted, _ := e.svc.PostNow(ctx, PostNowRequest{OwnerID: e.owner, Content: "now"})
	if err := e.svc.DeletePermanently(ctx, posted.ID, e.owner); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("posted: expected ErrInvalidState, got %v", err)
	}
}

// --- PostNow / Preview ---

func TestPostNow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	post, err := e.svc.PostNow(ctx, PostNowRequest{OwnerID: e.owner, Content: "right now"})
	if err != nil {
		t.Fatalf("post now: %v", err)
	}
	if !post.IsImmediate || post.Status != domain.PostStatusPosted || post.PostedAt == nil {
		t.Errorf("expected immediate posted record, got %+v", post)
	}
	if len(e.pub.posts) != 1 || e.pub.posts[0] != "right now" {
		t.Errorf("unexpected published posts %v", e.pub.posts)
	}
	if len(e.events.published) != 1 {
		t.Errorf("expected post.posted event")
	}

	// Мгновенная запись не попадает в выборку сканера.
	due, err := e.store.GetDue(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("immediate record must never be due, got %d", len(due))
	}
}

func TestPostNow_GeneratedPollOptionsStored(t *testing.T) {
	e := newEnv(t)

	post, err := e.svc.PostNow(context.Background(), PostNowRequest{OwnerID: e.owner, Content: "Best lang?", Kind: domain.KindPoll})
	if err != nil {
		t.Fatalf("post now: %v", err)
	}
	if got := post.Metadata.PollMeta().Options; len(got) != 3 {
		t.Errorf("expected generated options in history, got %v", got)
	}
	if len(e.pub.polls) != 1 {
		t.Errorf("expected one poll published")
	}
}

func TestPostNow_PublishFailure(t *testing.T) {
	e := newEnv(t)
	e.pub.err = errors.New("HTTP 503")

	if _, err := e.svc.PostNow(context.Background(), PostNowRequest{OwnerID: e.owner, Content: "x"}); !errors.Is(err, domain.ErrPublish) {
		t.Errorf("expected ErrPublish, got %v", err)
	}

	posts, err := e.svc.List(context.Background(), e.owner, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("failed publish must not be recorded, got %d", len(posts))
	}
}

func TestPreview(t *testing.T) {
	e := newEnv(t)
	e.enhancer.options = []string{"1", "2", "3", "4", "5", strings.Repeat("x", 30)}

	res, err := e.svc.Preview(context.Background(), PreviewRequest{OwnerID: e.owner, Content: "raw", Kind: domain.KindPoll})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !res.Enhanced || res.Content != "Enhanced!" {
		t.Errorf("unexpected preview %+v", res)
	}
	if len(res.Options) != domain.MaxPollOptions {
		t.Errorf("expected options capped to %d, got %v", domain.MaxPollOptions, res.Options)
	}

	e.enhancer.err = errors.New("down")
	res, err = e.svc.Preview(context.Background(), PreviewRequest{OwnerID: e.owner, Content: "raw"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.Enhanced || res.Content != "raw" || res.Options != nil {
		t.Errorf("expected original content without options, got %+v", res)
	}
}

// --- Reads / owners ---

func TestListAndStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.schedule(t, ScheduleRequest{Content: "a"})
	b := e.schedule(t, ScheduleRequest{Content: "b"})
	e.svc.Cancel(ctx, b.ID, e.owner)
	e.svc.PostNow(ctx, PostNowRequest{OwnerID: e.owner, Content: "c"})
	e.schedule(t, ScheduleRequest{OwnerID: e.other, Content: "other"})

	all, err := e.svc.List(ctx, e.owner, ListOptions{View: "all"})
	if err != nil || len(all) != 3 {
		t.Fatalf("all: %d posts, err=%v", len(all), err)
	}
	immediate, _ := e.svc.List(ctx, e.owner, ListOptions{View: "immediate"})
	if len(immediate) != 1 || immediate[0].Content != "c" {
		t.Errorf("unexpected immediate view %+v", immediate)
	}
	if _, err := e.svc.List(ctx, e.owner, ListOptions{View: "bogus"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown view: expected ErrValidation, got %v", err)
	}

	counts, err := e.svc.Stats(ctx, e.owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts.Pending != 1 || counts.Cancelled != 1 || counts.Posted != 1 || counts.Total() != 3 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestGet_OtherOwner(t *testing.T) {
	e := newEnv(t)
	post := e.schedule(t, ScheduleRequest{})
	if _, err := e.svc.Get(context.Background(), post.ID, e.other); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.CreateOwner(ctx, " "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank username: expected ErrValidation, got %v", err)
	}
	if _, err := e.svc.CreateOwner(ctx, "alice"); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Errorf("duplicate username: expected ErrAlreadyExists, got %v", err)
	}
}
