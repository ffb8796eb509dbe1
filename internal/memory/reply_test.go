package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rcliao/layered-memory/internal/model"
)

func replyTo(author, username, content string) *StaticMessage {
	return &StaticMessage{
		Author:  "U10",
		Guild:   "G10",
		Channel: "C10",
		RefID:   "M1",
		Ref:     &StaticMessage{Author: author, Username: username, Text: content},
	}
}

func TestReplyFromSameUser(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("U10", "SameUser", "Original question about rogue BiS on Sargeras"), "BOT1", nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Role != model.RoleUser {
		t.Errorf("expected user role, got %s", got[0].Role)
	}
	if !strings.HasPrefix(got[0].Content, "[Reply Context]") || !strings.Contains(got[0].Content, "rogue BiS") {
		t.Errorf("unexpected content %q", got[0].Content)
	}
}

func TestReplyFromBot(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("BOT42", "", "Here are BiS recommendations for Rogue Mythic+"), "BOT42", nil)
	if len(got) != 1 || got[0].Role != model.RoleAssistant {
		t.Fatalf("expected one assistant entry, got %+v", got)
	}
	if !strings.Contains(got[0].Content, "BiS recommendations") {
		t.Errorf("unexpected content %q", got[0].Content)
	}
}

func TestReplyFromThirdParty(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("U21", "AnotherUser", "I play a rogue on Sargeras and prefer Mythic+"), "BOT99", nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Role != model.RoleSystem {
		t.Errorf("expected system role, got %s", got[0].Role)
	}
	text := got[0].Content
	if !strings.Contains(text, "AnotherUser") {
		t.Errorf("expected author named, got %q", text)
	}
	if !strings.Contains(strings.ToLower(text), "topical context only") {
		t.Errorf("expected topical-only framing, got %q", text)
	}
	if !strings.Contains(text, "Sargeras") {
		t.Errorf("expected referenced content, got %q", text)
	}
}

func TestReplyThirdPartyWithoutUsername(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("U21", "", "hello"), "BOT", nil)
	if len(got) != 1 || !strings.Contains(got[0].Content, "<@U21>") {
		t.Errorf("expected mention fallback, got %+v", got)
	}
}

func TestReplyWithoutBotIDIsNeverAssistant(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("", "", "orphan"), "", nil)
	if len(got) != 1 || got[0].Role != model.RoleSystem {
		t.Errorf("expected system entry for unknown author, got %+v", got)
	}
}

func TestReplyStripsThinkBlocks(t *testing.T) {
	got := ResolveReply(context.Background(), replyTo("BOT", "", "<think>internal plan</think> Final answer"), "BOT", nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if strings.Contains(got[0].Content, "internal plan") {
		t.Errorf("expected think block stripped, got %q", got[0].Content)
	}
	if got[0].Content != "[Reply Context] Final answer" {
		t.Errorf("unexpected content %q", got[0].Content)
	}

	if empty := ResolveReply(context.Background(), replyTo("BOT", "", "<think>only</think>  "), "BOT", nil); len(empty) != 0 {
		t.Errorf("expected no entry for empty content, got %+v", empty)
	}
}

func TestReplyNoReferenceOrFetchError(t *testing.T) {
	ctx := context.Background()
	if got := ResolveReply(ctx, &StaticMessage{Author: "U1", Channel: "C1"}, "BOT", nil); got != nil {
		t.Errorf("expected nil without reference, got %+v", got)
	}

	failing := &StaticMessage{Author: "U1", Channel: "C1", RefID: "M9", RefErr: errors.New("unknown message")}
	if got := ResolveReply(ctx, failing, "BOT", nil); got != nil {
		t.Errorf("expected nil on fetch error, got %+v", got)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"  plain  ":                           "plain",
		"<think>a\nb</think>answer":           "answer",
		"x<think>1</think>y<think>2</think>z": "xyz",
		"<think>unterminated":                 "<think>unterminated",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
