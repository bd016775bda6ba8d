package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/internal/tickets"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

func TestRenderTicketListsMessages(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	detail := &tickets.TicketDetail{
		ID:           uuid.New(),
		TicketNumber: "TK20260310000001",
		Status:       enums.TicketStatusOpen,
		Messages: []*tickets.Message{
			{ID: 1, SenderType: enums.SenderTypeSystem, Content: "dispute opened", CreatedAt: now.Add(-time.Hour)},
			{ID: 2, SenderType: enums.SenderTypeBuyer, Content: "see photo", Attachments: []string{"https://cdn.example.com/a.png"}, CreatedAt: now},
		},
	}

	var buf bytes.Buffer
	renderTicket(&buf, detail, now)
	out := buf.String()

	for _, want := range []string{"TK20260310000001", "[待处理]", "系统", "买家", "dispute opened", "see photo", "https://cdn.example.com/a.png", "14:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ticket is closed") {
		t.Fatalf("open ticket rendered as closed")
	}
}

func TestRenderTicketClosed(t *testing.T) {
	var buf bytes.Buffer
	renderTicket(&buf, &tickets.TicketDetail{TicketNumber: "TK1", Status: enums.TicketStatusClosed}, time.Now())
	if !strings.Contains(buf.String(), "ticket is closed") {
		t.Fatalf("expected closed notice, got %s", buf.String())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		cmd  string
		arg  string
	}{
		{"hello there", "", "hello there"},
		{"/close resolved by chat", "close", "resolved by chat"},
		{"/attach  ./shot.png ", "attach", "./shot.png"},
		{"/refresh", "refresh", ""},
		{"/unstage 2", "unstage", "2"},
		{"  /QUIT", "quit", ""},
	}
	for _, tt := range tests {
		cmd, arg := parseCommand(tt.line)
		if cmd != tt.cmd || arg != tt.arg {
			t.Fatalf("%q: got (%q, %q) want (%q, %q)", tt.line, cmd, arg, tt.cmd, tt.arg)
		}
	}
}

func TestUnstageDropsSlot(t *testing.T) {
	draft := tickets.NewDraft(3)
	for _, ref := range []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"} {
		if err := draft.Stage(ref); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}

	if err := unstage(draft, "1"); err != nil {
		t.Fatalf("unstage: %v", err)
	}
	got := draft.Attachments()
	if len(got) != 1 || got[0] != "https://cdn.example.com/b.png" {
		t.Fatalf("unexpected slots %v", got)
	}

	for _, arg := range []string{"", "0", "2", "x"} {
		if err := unstage(draft, arg); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q: expected VALIDATION, got %v", arg, err)
		}
	}
	if len(draft.Attachments()) != 1 {
		t.Fatalf("invalid index changed the draft")
	}
}

func TestDescribeErrorMarksRetryable(t *testing.T) {
	if got := describeError(pkgerrors.New(pkgerrors.CodeTransport, "store unreachable")); !strings.HasSuffix(got, "(retry possible)") {
		t.Fatalf("expected retry hint, got %q", got)
	}
	if got := describeError(pkgerrors.New(pkgerrors.CodeValidation, "消息内容不能为空")); strings.Contains(got, "retry") {
		t.Fatalf("unexpected retry hint %q", got)
	}
}
