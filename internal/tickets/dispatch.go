package tickets

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
)

// DefaultMaxAttachments caps the attachment slots of one message.
const DefaultMaxAttachments = 3

// Draft is the compose state of a ticket screen: the text being typed and
// the staged attachment slots. A slot is empty when its upload failed.
type Draft struct {
	mu      sync.Mutex
	limit   int
	content string
	slots   []string
}

// NewDraft returns an empty draft accepting at most limit attachment slots.
func NewDraft(limit int) *Draft {
	if limit <= 0 {
		limit = DefaultMaxAttachments
	}
	return &Draft{limit: limit}
}

// SetContent replaces the text being composed.
func (d *Draft) SetContent(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
}

// Content returns the text being composed.
func (d *Draft) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// Attachments returns a copy of the staged slots.
func (d *Draft) Attachments() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.slots...)
}

// Remaining reports how many slots can still be staged.
func (d *Draft) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limit - len(d.slots)
}

// Stage adds an attachment slot. It refuses once the cap is reached.
func (d *Draft) Stage(ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.slots) >= d.limit {
		return tooManyAttachments(d.limit)
	}
	d.slots = append(d.slots, strings.TrimSpace(ref))
	return nil
}

// Unstage removes the slot at index i.
func (d *Draft) Unstage(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.slots) {
		return
	}
	d.slots = append(d.slots[:i], d.slots[i+1:]...)
}

// Clear resets content and slots.
func (d *Draft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = ""
	d.slots = nil
}

// Syncer is the part of a Session the dispatcher needs.
type Syncer interface {
	Snapshot() *TicketDetail
	Refresh(ctx context.Context) error
}

// DispatcherParams configure a Dispatcher.
type DispatcherParams struct {
	Store          Store
	Attachments    AttachmentStore
	Session        Syncer
	MaxAttachments int
	Logger         *logger.Logger
}

// Dispatcher submits messages and close requests for the ticket a session
// follows.
type Dispatcher struct {
	store          Store
	attachments    AttachmentStore
	session        Syncer
	maxAttachments int
	logg           *logger.Logger
}

// NewDispatcher validates params and returns a dispatcher bound to the
// session's ticket.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("ticket store required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("ticket session required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxAttachments := params.MaxAttachments
	if maxAttachments <= 0 {
		maxAttachments = DefaultMaxAttachments
	}
	return &Dispatcher{
		store:          params.Store,
		attachments:    params.Attachments,
		session:        params.Session,
		maxAttachments: maxAttachments,
		logg:           params.Logger,
	}, nil
}

// NewDraft returns a draft sized to the dispatcher's cap.
func (d *Dispatcher) NewDraft() *Draft {
	return NewDraft(d.maxAttachments)
}

// Upload sends an image to the attachment store and stages its URL. The cap
// is checked before uploading. A failed upload stages an empty slot, which
// Send drops, and returns the upload error.
func (d *Dispatcher) Upload(ctx context.Context, draft *Draft, name string, r io.Reader) (string, error) {
	if d.attachments == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "attachment store not configured")
	}
	if draft.Remaining() <= 0 {
		return "", tooManyAttachments(d.maxAttachments)
	}
	ref, err := d.attachments.UploadImage(ctx, name, r)
	if err != nil {
		if stageErr := draft.Stage(""); stageErr != nil {
			return "", stageErr
		}
		d.logg.Warn(d.logg.WithField(ctx, "file", name), "attachment upload failed")
		return "", err
	}
	if err := draft.Stage(ref); err != nil {
		return "", err
	}
	return ref, nil
}

// Send submits the draft. On success the draft is cleared before the
// follow-up refresh; a refresh failure is only logged. On failure the draft
// is left untouched.
func (d *Dispatcher) Send(ctx context.Context, draft *Draft) error {
	if err := d.Submit(ctx, draft.Content(), draft.Attachments()); err != nil {
		return err
	}
	draft.Clear()
	d.refresh(ctx)
	return nil
}

// Submit validates and sends one message without touching any draft.
// Validation failures never reach the ticket store.
func (d *Dispatcher) Submit(ctx context.Context, content string, attachments []string) error {
	if len(attachments) > d.maxAttachments {
		return tooManyAttachments(d.maxAttachments)
	}
	refs := FilterAttachments(attachments)
	content = strings.TrimSpace(content)
	if content == "" && len(refs) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyMessage, "message has no content or attachments")
	}

	detail, err := d.currentTicket()
	if err != nil {
		return err
	}
	ctx = d.logg.WithTicketNumber(ctx, detail.TicketNumber)
	if err := d.store.SendMessage(ctx, detail.ID, content, refs); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "send ticket message failed")
		return err
	}
	return nil
}

// CloseTicket asks the store to close the ticket and refreshes the log.
func (d *Dispatcher) CloseTicket(ctx context.Context, reason string) error {
	detail, err := d.currentTicket()
	if err != nil {
		return err
	}
	ctx = d.logg.WithTicketNumber(ctx, detail.TicketNumber)
	if err := d.store.CloseTicket(ctx, detail.ID, strings.TrimSpace(reason)); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "close ticket failed")
		return err
	}
	d.refresh(ctx)
	return nil
}

func (d *Dispatcher) currentTicket() (*TicketDetail, error) {
	detail := d.session.Snapshot()
	if detail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket not loaded")
	}
	if detail.Closed() {
		return nil, pkgerrors.New(pkgerrors.CodeRejected, "工单已关闭")
	}
	return detail, nil
}

func (d *Dispatcher) refresh(ctx context.Context) {
	if err := d.session.Refresh(ctx); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "refresh after dispatch failed")
	}
}

// FilterAttachments drops empty slots and anything that is not an absolute
// http(s) URL, keeping the order of the rest.
func FilterAttachments(attachments []string) []string {
	out := make([]string, 0, len(attachments))
	for _, ref := range attachments {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		u, err := url.Parse(ref)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func tooManyAttachments(limit int) error {
	return pkgerrors.New(pkgerrors.CodeTooManyAttachments, fmt.Sprintf("at most %d attachments per message", limit)).
		WithDetails(map[string]any{"max": limit})
}
