package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/layered-memory/internal/model"
)

func guildMessage() *StaticMessage {
	return &StaticMessage{Author: "U123", Guild: "G999", Channel: "C777"}
}

func TestPrepareLayeredContext(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	seed(t, st, UserResourceID("U123"), model.UserProfile{
		Type:           model.TypeUser,
		Aliases:        []string{"Bez"},
		AliasesByGuild: map[string][]string{"G999": {"B"}},
		CharactersByGuild: map[string][]model.CharacterBinding{
			"G999": {{Name: "Bezvoker", Realm: "korgath", Region: "US", Class: "Evoker", Spec: "Devastation", Role: "dps"}},
		},
		BlizzardBattleTag: "Bez#1234",
	})
	seed(t, st, ScopeResourceID(model.ScopeGuild, "G999"), model.ScopeMemory{
		Type: model.ScopeGuild, RollingSummary: "Guild sum", Topics: []string{"raid"}, ExpiresAt: time.Now().Add(time.Hour),
	})
	seed(t, st, ScopeResourceID(model.ScopeChannel, "C777"), model.ScopeMemory{
		Type: model.ScopeChannel, RollingSummary: "Channel sum", Topics: []string{"mythic+"}, ExpiresAt: time.Now().Add(time.Hour),
	})

	got := NewAssembler(st, DefaultConfig()).Prepare(ctx, guildMessage())

	if got.ResourceKey != "discord:user:U123" {
		t.Errorf("resource key = %q", got.ResourceKey)
	}
	if got.ThreadKey != "discord:G999:C777:u:U123" {
		t.Errorf("thread key = %q", got.ThreadKey)
	}
	if len(got.Context) != 1 || got.Context[0].Role != model.RoleSystem {
		t.Fatalf("expected a single system entry, got %+v", got.Context)
	}
	text := got.Context[0].Content
	for _, want := range []string{
		"User Profile", "Bez#1234", "Aliases: Bez, B", "WoW Characters",
		"Bezvoker (Evoker Devastation) - US-korgath",
		"Guild Context", "Guild sum", "Channel Context", "Channel sum", "mythic+", "raid",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("system context missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Thread Context") {
		t.Errorf("unexpected thread section for non-thread channel:\n%s", text)
	}
	if strings.Index(text, "Guild Context") > strings.Index(text, "Channel Context") {
		t.Errorf("expected guild section before channel section:\n%s", text)
	}
}

func TestPrepareEmptyMemoryHasNoSystemBlock(t *testing.T) {
	got := NewAssembler(newTestStore(t), DefaultConfig()).Prepare(context.Background(), guildMessage())
	if len(got.Context) != 0 {
		t.Errorf("expected no context, got %+v", got.Context)
	}
	if got.Context == nil {
		t.Error("expected non-nil context slice")
	}
}

func TestPrepareDirectMessageThreadKey(t *testing.T) {
	msg := &StaticMessage{Author: "U1", Channel: "D1"}
	got := NewAssembler(newTestStore(t), DefaultConfig()).Prepare(context.Background(), msg)
	if got.ThreadKey != "discord:dm:D1:u:U1" {
		t.Errorf("thread key = %q", got.ThreadKey)
	}
}

func TestRememberUpdatesGuildAndChannel(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := NewAssembler(st, DefaultConfig())

	err := a.Remember(ctx, guildMessage(), "I prefer Mythic+ and BiS for my rogue", "Sure, here are BiS pointers.")
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	for _, scope := range []model.ScopeType{model.ScopeGuild, model.ScopeChannel} {
		id := "G999"
		if scope == model.ScopeChannel {
			id = "C777"
		}
		mem := scopeDoc(t, st, scope, id)
		if !strings.Contains(mem.RollingSummary, "User: I prefer Mythic+ and BiS for my rogue") {
			t.Errorf("%s summary missing user text: %q", scope, mem.RollingSummary)
		}
		if !strings.Contains(mem.RollingSummary, "Assistant: Sure, here are BiS pointers.") {
			t.Errorf("%s summary missing assistant text: %q", scope, mem.RollingSummary)
		}
		for _, topic := range []string{"mythic+", "bis", "rogue"} {
			if !contains(mem.Topics, topic) {
				t.Errorf("%s topics %v missing %q", scope, mem.Topics, topic)
			}
		}
		if !mem.ExpiresAt.After(time.Now()) {
			t.Errorf("%s expiry not in the future: %v", scope, mem.ExpiresAt)
		}
	}

	if res, _ := st.GetResource(ctx, ScopeResourceID(model.ScopeThread, "C777")); res != nil {
		t.Error("expected no thread record for a non-thread channel")
	}
}

func TestRememberThenPrepareThread(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := NewAssembler(st, DefaultConfig())
	msg := &StaticMessage{Author: "U1", Guild: "G1", Channel: "T1", Thread: true}

	if err := a.Remember(ctx, msg, "Thread talks Mythic+", "<think>hmm</think>ack"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	thread := scopeDoc(t, st, model.ScopeThread, "T1")
	if !strings.Contains(thread.RollingSummary, "User: Thread talks Mythic+") {
		t.Errorf("thread summary = %q", thread.RollingSummary)
	}
	if strings.Contains(thread.RollingSummary, "hmm") {
		t.Errorf("expected think block stripped, got %q", thread.RollingSummary)
	}
	if !contains(thread.Topics, "mythic+") {
		t.Errorf("thread topics = %v", thread.Topics)
	}

	got := a.Prepare(ctx, msg)
	if got.ThreadKey != "discord:G1:T1:u:U1" {
		t.Errorf("thread key = %q", got.ThreadKey)
	}
	if len(got.Context) == 0 || !strings.Contains(got.Context[0].Content, "Thread Context") {
		t.Errorf("expected thread section, got %+v", got.Context)
	}
}

func TestExpiredScopeExcludedFromContext(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, UserResourceID("U3"), model.UserProfile{Type: model.TypeUser, Aliases: []string{"A"}})
	seed(t, st, ScopeResourceID(model.ScopeChannel, "C3"), model.ScopeMemory{
		Type: model.ScopeChannel, RollingSummary: "stale", Topics: []string{"raid"}, ExpiresAt: time.Now().Add(-10 * time.Second),
	})

	got := NewAssembler(st, DefaultConfig()).Prepare(context.Background(), &StaticMessage{Author: "U3", Guild: "G3", Channel: "C3"})
	for _, e := range got.Context {
		if strings.Contains(e.Content, "stale") || strings.Contains(e.Content, "Channel Context") {
			t.Errorf("expired channel memory leaked into context: %q", e.Content)
		}
	}
	if len(got.Context) != 1 {
		t.Errorf("expected profile-only system block, got %+v", got.Context)
	}
}

func TestPrepareAppendsReplyAfterSystemBlock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	cfg := DefaultConfig()
	cfg.BotUserID = "BOT99"
	a := NewAssembler(st, cfg)

	a.Profiles().AddAlias(ctx, "U20", "Speaker", "G20")
	msg := &StaticMessage{
		Author: "U20", Guild: "G20", Channel: "C20", RefID: "M789",
		Ref: &StaticMessage{Author: "U21", Username: "AnotherUser", Text: "I play a rogue on Sargeras"},
	}

	got := a.Prepare(ctx, msg)
	if len(got.Context) != 2 {
		t.Fatalf("expected system block and reply, got %+v", got.Context)
	}
	if got.Context[0].Role != model.RoleSystem || !strings.Contains(got.Context[0].Content, "Speaker") {
		t.Errorf("expected profile block first, got %+v", got.Context[0])
	}
	reply := got.Context[1]
	if reply.Role != model.RoleSystem || !strings.Contains(reply.Content, "AnotherUser") {
		t.Errorf("expected third-party system note, got %+v", reply)
	}
	if strings.Contains(got.Context[0].Content, "Sargeras") {
		t.Error("third-party details must not appear in the speaker's profile block")
	}
}

func TestRememberWriteFailureDoesNotStopOtherScopes(t *testing.T) {
	bs := &brokenStore{}
	a := NewAssembler(bs, DefaultConfig())
	msg := &StaticMessage{Author: "U1", Guild: "G1", Channel: "T1", Thread: true}

	err := a.Remember(context.Background(), msg, "hi", "yo")
	if !errors.Is(err, errBroken) {
		t.Errorf("expected joined store error, got %v", err)
	}
	if bs.writes != 3 {
		t.Errorf("expected all 3 scopes attempted, got %d", bs.writes)
	}

	if got := a.Prepare(context.Background(), msg); len(got.Context) != 0 {
		t.Errorf("expected empty context on read failure, got %+v", got.Context)
	}
}

func TestSerializedWritesKeepEveryTurn(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	cfg := DefaultConfig()
	cfg.SerializeWrites = true
	a := NewAssembler(st, cfg)
	msg := &StaticMessage{Author: "U1", Channel: "C1"}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Remember(ctx, msg, fmt.Sprintf("turn-%d", i), "")
		}(i)
	}
	wg.Wait()

	sum := scopeDoc(t, st, model.ScopeChannel, "C1").RollingSummary
	for i := 0; i < n; i++ {
		if !strings.Contains(sum, fmt.Sprintf("User: turn-%d", i)) {
			t.Errorf("turn %d lost from summary:\n%s", i, sum)
		}
	}
}

func TestConcurrentRememberAcrossChannels(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := NewAssembler(st, DefaultConfig())

	const n = 40
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := &StaticMessage{Author: fmt.Sprintf("U%d", i), Guild: "G1", Channel: fmt.Sprintf("C%d", i)}
			errs[i] = a.Remember(ctx, msg, fmt.Sprintf("turn-%d", i), "ok")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("remember %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		sum := scopeDoc(t, st, model.ScopeChannel, fmt.Sprintf("C%d", i)).RollingSummary
		if !strings.Contains(sum, fmt.Sprintf("User: turn-%d", i)) {
			t.Errorf("channel C%d summary = %q", i, sum)
		}
	}
	if scopeDoc(t, st, model.ScopeGuild, "G1").RollingSummary == "" {
		t.Error("expected guild summary to be written")
	}
}

func TestFormatCharacter(t *testing.T) {
	if got := formatCharacter(model.CharacterBinding{Name: "Magebe", Realm: "Area52", Region: "US"}); got != "Magebe - US-Area52" {
		t.Errorf("got %q", got)
	}
	if got := formatCharacter(model.CharacterBinding{Name: "X", Realm: "r", Region: "EU", Spec: "Frost"}); got != "X (Frost) - EU-r" {
		t.Errorf("got %q", got)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
