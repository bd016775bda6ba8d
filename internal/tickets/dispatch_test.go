package tickets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

type stubUploader struct {
	calls int
	urls  []string
	err   error
}

func (u *stubUploader) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	u.calls++
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if u.err != nil {
		return "", u.err
	}
	url := "https://cdn.example.com/tickets/" + name
	u.urls = append(u.urls, url)
	return url, nil
}

type stubSyncer struct {
	detail     *TicketDetail
	refreshes  int
	refreshErr error
}

func (s *stubSyncer) Snapshot() *TicketDetail { return s.detail }

func (s *stubSyncer) Refresh(ctx context.Context) error {
	s.refreshes++
	return s.refreshErr
}

func newActiveSession(t *testing.T, store *memoryStore) *Session {
	t.Helper()
	session := newTestSession(t, store, time.Hour, nil)
	if err := session.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return session
}

func newTestDispatcher(t *testing.T, store Store, uploads AttachmentStore, session Syncer) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Store:          store,
		Attachments:    uploads,
		Session:        session,
		MaxAttachments: 3,
		Logger:         testLogger(),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func TestSendClearsDraftAndAppendsMessage(t *testing.T) {
	store := newMemoryStore(1, 2)
	session := newActiveSession(t, store)
	d := newTestDispatcher(t, store, nil, session)

	draft := d.NewDraft()
	draft.SetContent("已处理")
	if err := d.Send(context.Background(), draft); err != nil {
		t.Fatalf("send: %v", err)
	}
	if draft.Content() != "" || len(draft.Attachments()) != 0 {
		t.Fatal("draft should be cleared after a successful send")
	}

	snap := session.Snapshot()
	assertIDs(t, snap, 1, 2, 3)
	if last := snap.Messages[2]; last.Content != "已处理" {
		t.Fatalf("expected sent message appended, got %q", last.Content)
	}
	if got := store.fetchCount(); got != 2 {
		t.Fatalf("expected activation plus one refresh, got %d fetches", got)
	}
}

func TestSendRejectsEmptyMessageLocally(t *testing.T) {
	store := newMemoryStore(1)
	syncer := &stubSyncer{detail: detail(enums.TicketStatusOpen, messages(1))}
	d := newTestDispatcher(t, store, nil, syncer)

	draft := d.NewDraft()
	draft.SetContent("   ")
	err := d.Send(context.Background(), draft)
	if !pkgerrors.Is(err, pkgerrors.CodeEmptyMessage) {
		t.Fatalf("expected empty message error, got %v", err)
	}
	if store.sends != 0 || syncer.refreshes != 0 {
		t.Fatal("empty message must not reach the network")
	}
}

func TestSubmitRejectsTooManyAttachments(t *testing.T) {
	store := newMemoryStore(1)
	syncer := &stubSyncer{detail: detail(enums.TicketStatusOpen, messages(1))}
	d := newTestDispatcher(t, store, nil, syncer)

	refs := []string{
		"https://cdn.example.com/a.png",
		"https://cdn.example.com/b.png",
		"https://cdn.example.com/c.png",
		"https://cdn.example.com/d.png",
	}
	err := d.Submit(context.Background(), "see screenshots", refs)
	if !pkgerrors.Is(err, pkgerrors.CodeTooManyAttachments) {
		t.Fatalf("expected too many attachments, got %v", err)
	}
	if store.sends != 0 {
		t.Fatal("oversized message must not be sent")
	}
}

func TestUploadRefusedWhenDraftFull(t *testing.T) {
	store := newMemoryStore(1)
	uploads := &stubUploader{}
	d := newTestDispatcher(t, store, uploads, &stubSyncer{detail: detail(enums.TicketStatusOpen, messages(1))})

	draft := d.NewDraft()
	for i := 0; i < 3; i++ {
		if _, err := d.Upload(context.Background(), draft, "shot.png", strings.NewReader("png")); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
	_, err := d.Upload(context.Background(), draft, "fourth.png", strings.NewReader("png"))
	if !pkgerrors.Is(err, pkgerrors.CodeTooManyAttachments) {
		t.Fatalf("expected too many attachments, got %v", err)
	}
	if uploads.calls != 3 {
		t.Fatalf("fourth upload must not start, got %d calls", uploads.calls)
	}
	if err := draft.Stage("https://cdn.example.com/x.png"); !pkgerrors.Is(err, pkgerrors.CodeTooManyAttachments) {
		t.Fatalf("stage beyond cap should fail, got %v", err)
	}
}

func TestSendDropsFailedUploadSlot(t *testing.T) {
	store := newMemoryStore(1)
	session := newActiveSession(t, store)
	uploads := &stubUploader{}
	d := newTestDispatcher(t, store, uploads, session)

	draft := d.NewDraft()
	draft.SetContent("账号无法登录")
	if _, err := d.Upload(context.Background(), draft, "a.png", strings.NewReader("a")); err != nil {
		t.Fatalf("upload a: %v", err)
	}
	uploads.err = errors.New("upload failed")
	if _, err := d.Upload(context.Background(), draft, "b.png", strings.NewReader("b")); err == nil {
		t.Fatal("expected upload error")
	}
	uploads.err = nil
	if _, err := d.Upload(context.Background(), draft, "c.png", strings.NewReader("c")); err != nil {
		t.Fatalf("upload c: %v", err)
	}
	if got := len(draft.Attachments()); got != 3 {
		t.Fatalf("expected 3 staged slots, got %d", got)
	}

	if err := d.Send(context.Background(), draft); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := []string{"https://cdn.example.com/tickets/a.png", "https://cdn.example.com/tickets/c.png"}
	if len(store.lastSend) != 2 || store.lastSend[0] != want[0] || store.lastSend[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, store.lastSend)
	}
}

func TestSendFailureKeepsDraft(t *testing.T) {
	store := newMemoryStore(1)
	store.sendErr = pkgerrors.New(pkgerrors.CodeRejected, "工单状态不允许回复")
	syncer := &stubSyncer{detail: detail(enums.TicketStatusOpen, messages(1))}
	d := newTestDispatcher(t, store, nil, syncer)

	draft := d.NewDraft()
	draft.SetContent("还没处理")
	if err := draft.Stage("https://cdn.example.com/a.png"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	err := d.Send(context.Background(), draft)
	if !pkgerrors.Is(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if draft.Content() != "还没处理" || len(draft.Attachments()) != 1 {
		t.Fatal("draft must survive a failed send")
	}
	if syncer.refreshes != 0 {
		t.Fatal("failed send should not refresh")
	}
}

func TestSendRefreshFailureIsNotReturned(t *testing.T) {
	store := newMemoryStore(1)
	syncer := &stubSyncer{
		detail:     detail(enums.TicketStatusOpen, messages(1)),
		refreshErr: pkgerrors.New(pkgerrors.CodeTransport, "store unreachable"),
	}
	syncer.detail.ID = store.detail.ID
	d := newTestDispatcher(t, store, nil, syncer)

	draft := d.NewDraft()
	draft.SetContent("ok")
	if err := d.Send(context.Background(), draft); err != nil {
		t.Fatalf("send should succeed despite refresh failure: %v", err)
	}
	if draft.Content() != "" {
		t.Fatal("draft should be cleared")
	}
	if syncer.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", syncer.refreshes)
	}
}

func TestSendToClosedTicketRejected(t *testing.T) {
	store := newMemoryStore(1)
	syncer := &stubSyncer{detail: detail(enums.TicketStatusClosed, messages(1))}
	d := newTestDispatcher(t, store, nil, syncer)

	err := d.Submit(context.Background(), "hello", nil)
	if !pkgerrors.Is(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if store.sends != 0 {
		t.Fatal("closed ticket must not be written")
	}
}

func TestCloseTicketRefreshesLog(t *testing.T) {
	store := newMemoryStore(1)
	session := newActiveSession(t, store)
	d := newTestDispatcher(t, store, nil, session)

	if err := d.CloseTicket(context.Background(), " 问题已解决 "); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.closedFor != "问题已解决" {
		t.Fatalf("unexpected close reason %q", store.closedFor)
	}
	snap := session.Snapshot()
	if !snap.Closed() {
		t.Fatalf("expected closed ticket, got %s", snap.Status)
	}
	assertIDs(t, snap, 1, 2)
}

func TestFilterAttachments(t *testing.T) {
	in := []string{
		"",
		"  ",
		"https://cdn.example.com/a.png",
		"not a url",
		"/relative/path.png",
		"ftp://cdn.example.com/b.png",
		" http://cdn.example.com/c.png ",
	}
	got := FilterAttachments(in)
	if len(got) != 2 || got[0] != "https://cdn.example.com/a.png" || got[1] != "http://cdn.example.com/c.png" {
		t.Fatalf("unexpected filtered attachments %v", got)
	}
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	if _, err := NewDispatcher(DispatcherParams{Session: &stubSyncer{}, Logger: testLogger()}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewDispatcher(DispatcherParams{Store: newMemoryStore(), Logger: testLogger()}); err == nil {
		t.Fatal("expected error without session")
	}
}
