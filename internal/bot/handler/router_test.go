package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"referral-gate-bot/internal/broadcast"
	"referral-gate-bot/internal/channel"
	contentdomain "referral-gate-bot/internal/content/domain"
	contentrepo "referral-gate-bot/internal/content/repository"
	contentservice "referral-gate-bot/internal/content/service"
	"referral-gate-bot/internal/gate"
	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/ingestion"
	"referral-gate-bot/internal/keyboard"
	membershipdomain "referral-gate-bot/internal/membership/domain"
	"referral-gate-bot/internal/metrics"
	settingsrepo "referral-gate-bot/internal/platformsettings/repository"
	"referral-gate-bot/internal/policy/engine"
	referral "referral-gate-bot/internal/referral/service"
	userrepo "referral-gate-bot/internal/user/repository"
	userservice "referral-gate-bot/internal/user/service"
)

const adminID = 1000

type call struct {
	kind   string // send, edit, copy, answer
	chatID int64
	from   int64
	msgID  int
	text   string
	alert  bool
	kb     gateway.Keyboard
}

type fakeGateway struct {
	mu         sync.Mutex
	calls      []call
	failSendTo map[int64]bool
	failCopy   bool
}

func (f *fakeGateway) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeGateway) SendText(ctx context.Context, chatID int64, text string, kb gateway.Keyboard) error {
	f.mu.Lock()
	fail := f.failSendTo[chatID]
	f.mu.Unlock()
	if fail {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	f.record(call{kind: "send", chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeGateway) EditText(ctx context.Context, chatID int64, messageID int, text string, kb gateway.Keyboard) error {
	f.record(call{kind: "edit", chatID: chatID, msgID: messageID, text: text, kb: kb})
	return nil
}

func (f *fakeGateway) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error {
	if f.failCopy {
		return errors.New("Bad Request: message to copy not found")
	}
	f.record(call{kind: "copy", chatID: toChatID, from: fromChatID, msgID: messageID, text: caption})
	return nil
}

func (f *fakeGateway) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	f.record(call{kind: "answer", text: text, alert: alert})
	return nil
}

func (f *fakeGateway) ChatMember(ctx context.Context, channel string, userID int64) (membershipdomain.ChatMember, error) {
	return membershipdomain.ChatMember{Status: membershipdomain.StatusMember}, nil
}

func (f *fakeGateway) of(kind string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGateway) last(t *testing.T, kind string) call {
	t.Helper()
	cs := f.of(kind)
	if len(cs) == 0 {
		t.Fatalf("no %s calls recorded", kind)
	}
	return cs[len(cs)-1]
}

func (f *fakeGateway) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeMembers struct {
	mu     sync.Mutex
	joined map[int64]bool
}

func (m *fakeMembers) IsJoined(ctx context.Context, channels []string, userID int64) bool {
	if len(channels) == 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined[userID]
}

func (m *fakeMembers) join(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.joined[id] = true
	}
}

type harness struct {
	router  *Router
	gw      *fakeGateway
	ledger  *userservice.Ledger
	catalog *contentservice.Catalog
	members *fakeMembers
}

func newHarness(t *testing.T, debit bool, channels channel.Admin) *harness {
	t.Helper()
	ctx := context.Background()
	gw := &fakeGateway{failSendTo: map[int64]bool{}}
	ledger := userservice.NewLedger(userrepo.NewMemoryRepository(), nil)
	catalog := contentservice.NewCatalog(contentrepo.NewMemoryRepository(), nil)
	members := &fakeMembers{joined: map[int64]bool{}}
	policy, err := engine.NewOPAEvaluator(ctx, "", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if channels == nil {
		channels = channel.NewStatic([]string{"@news"})
	}
	g := gate.New(gate.Options{AdminID: adminID, Threshold: 50, Debit: debit}, channels, members, ledger, policy, nil)
	r := NewRouter(Deps{
		Gateway:     gw,
		Gate:        g,
		Referrals:   referral.NewEngine(ledger, NewNotifier(gw), 10, nil, nil),
		Ledger:      ledger,
		Catalog:     catalog,
		Ingestion:   ingestion.NewWorkflow(adminID, ingestion.NewSessionStore(0), catalog, nil),
		Broadcaster: broadcast.NewDispatcher(gw, broadcast.Options{Concurrency: 4}, nil, nil),
		Channels:    channels,
		Metrics:     metrics.NewCollector("test"),
		BotUsername: "GateBot",
	}, nil)
	return &harness{router: r, gw: gw, ledger: ledger, catalog: catalog, members: members}
}

func (h *harness) send(t *testing.T, m *gateway.Message) error {
	t.Helper()
	if m.ChatID == 0 {
		m.ChatID = m.From.ID
	}
	return h.router.Handle(context.Background(), gateway.Update{Message: m})
}

func (h *harness) start(t *testing.T, userID int64, token string) {
	t.Helper()
	text := "/start"
	if token != "" {
		text += " " + token
	}
	if err := h.send(t, &gateway.Message{ID: 1, From: gateway.User{ID: userID, FirstName: "User"}, Text: text}); err != nil {
		t.Fatalf("start %d: %v", userID, err)
	}
}

func (h *harness) tap(t *testing.T, userID int64, data string) error {
	t.Helper()
	return h.router.Handle(context.Background(), gateway.Update{Callback: &gateway.Callback{
		ID: "cb", From: gateway.User{ID: userID}, ChatID: userID, MessageID: 5, Data: data,
	}})
}

func (h *harness) admin(t *testing.T, text string) {
	t.Helper()
	if err := h.send(t, &gateway.Message{ID: 10, From: gateway.User{ID: adminID}, Text: text}); err != nil {
		t.Fatalf("admin %q: %v", text, err)
	}
}

func (h *harness) balance(t *testing.T, id int64) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), id)
	if err != nil {
		t.Fatalf("Balance(%d): %v", id, err)
	}
	return b
}

func (h *harness) addTextItem(t *testing.T, title, body string) *contentdomain.Item {
	t.Helper()
	it, err := h.catalog.Create(context.Background(), title, contentdomain.TextPayload(body), adminID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return it
}

func TestStart_NotJoinedShowsJoinPrompt(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 2, "")

	c := h.gw.last(t, "send")
	if c.chatID != 2 || !strings.HasPrefix(c.text, textJoinPrompt) {
		t.Fatalf("send = %+v, want join prompt to 2", c)
	}
	if c.kb[0][0].URL != "https://t.me/news" {
		t.Errorf("first button = %+v, want channel link", c.kb[0][0])
	}
	if c.kb[len(c.kb)-1][0].Data != keyboard.ActionCheckJoin {
		t.Errorf("last button = %+v, want check_join", c.kb[len(c.kb)-1][0])
	}
}

func TestStart_PrivateChannelNamedInPrompt(t *testing.T) {
	h := newHarness(t, false, channel.NewStatic([]string{"@news", "-100123"}))
	h.start(t, 2, "")

	c := h.gw.last(t, "send")
	if !strings.Contains(c.text, "• @news") {
		t.Errorf("prompt = %q, want the public channel listed", c.text)
	}
	if !strings.Contains(c.text, "Private channel -100123") {
		t.Errorf("prompt = %q, want the private channel named", c.text)
	}
	if len(c.kb) != 2 || c.kb[0][0].Text != "Join @news" {
		t.Errorf("keyboard = %+v, want one link row and the re-check row", c.kb)
	}
}

func TestStart_JoinedShowsMainMenu(t *testing.T) {
	h := newHarness(t, false, nil)
	h.members.join(2)
	h.start(t, 2, "")

	c := h.gw.last(t, "send")
	if !strings.HasPrefix(c.text, "Welcome, User!") {
		t.Errorf("text = %q, want welcome", c.text)
	}
	if c.kb[0][0].Data != keyboard.ActionViewCatalog {
		t.Errorf("keyboard = %+v, want main menu", c.kb)
	}
}

func TestStart_ReferralCreditsOnceAndNotifies(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 1, "")
	h.start(t, 2, "1")
	h.start(t, 2, "1") // replay

	if got := h.balance(t, 1); got != 10 {
		t.Errorf("referrer balance = %d, want 10", got)
	}
	notices := 0
	for _, c := range h.gw.of("send") {
		if c.chatID == 1 && strings.Contains(c.text, "New referral") {
			notices++
			if !strings.Contains(c.text, "10 points") {
				t.Errorf("notice = %q, want new balance", c.text)
			}
		}
	}
	if notices != 1 {
		t.Errorf("referral notices = %d, want 1", notices)
	}
}

func TestStart_NotificationFailureKeepsCredit(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 1, "")
	h.gw.failSendTo[1] = true
	h.start(t, 2, "1")

	if got := h.balance(t, 1); got != 10 {
		t.Errorf("referrer balance = %d, want 10", got)
	}
}

func TestCheckJoin(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 2, "")

	if err := h.tap(t, 2, keyboard.ActionCheckJoin); err != nil {
		t.Fatalf("tap: %v", err)
	}
	a := h.gw.last(t, "answer")
	if a.text != textNotJoined || !a.alert {
		t.Errorf("answer = %+v, want not-joined alert", a)
	}
	if len(h.gw.of("edit")) != 0 {
		t.Error("denied check must not change the screen")
	}

	h.members.join(2)
	if err := h.tap(t, 2, keyboard.ActionCheckJoin); err != nil {
		t.Fatalf("tap: %v", err)
	}
	e := h.gw.last(t, "edit")
	if e.kb[0][0].Data != keyboard.ActionViewCatalog {
		t.Errorf("edit keyboard = %+v, want main menu", e.kb)
	}
}

func TestCallbacks_RequireMembership(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 2, "")
	it := h.addTextItem(t, "Guide", "secret")

	for _, data := range []string{keyboard.ActionViewCatalog, keyboard.ActionMyReferrals, keyboard.UnlockData(it.ID), keyboard.ActionMainMenu} {
		h.gw.reset()
		if err := h.tap(t, 2, data); err != nil {
			t.Fatalf("tap %s: %v", data, err)
		}
		if e := h.gw.last(t, "edit"); !strings.HasPrefix(e.text, textJoinPrompt) {
			t.Errorf("%s: edit = %q, want join prompt", data, e.text)
		}
		if len(h.gw.of("send")) != 0 {
			t.Errorf("%s: content sent to non-member", data)
		}
	}
}

func TestViewCatalog(t *testing.T) {
	h := newHarness(t, false, nil)
	h.members.join(2)
	h.start(t, 2, "")

	if err := h.tap(t, 2, keyboard.ActionViewCatalog); err != nil {
		t.Fatalf("tap: %v", err)
	}
	if e := h.gw.last(t, "edit"); e.text != textEmptyCatalog || len(e.kb) != 1 {
		t.Errorf("empty catalog edit = %+v", e)
	}

	a := h.addTextItem(t, "First", "1")
	b := h.addTextItem(t, "Second", "2")
	if err := h.tap(t, 2, keyboard.ActionViewCatalog); err != nil {
		t.Fatalf("tap: %v", err)
	}
	e := h.gw.last(t, "edit")
	if len(e.kb) != 3 || e.kb[0][0].Data != keyboard.UnlockData(a.ID) || e.kb[1][0].Data != keyboard.UnlockData(b.ID) {
		t.Errorf("catalog keyboard = %+v", e.kb)
	}
	if !strings.Contains(e.text, "needs 50 points") {
		t.Errorf("catalog text = %q", e.text)
	}
}

func TestMyReferrals(t *testing.T) {
	h := newHarness(t, false, nil)
	h.members.join(2)
	h.start(t, 2, "")
	h.start(t, 3, "2")

	if err := h.tap(t, 2, keyboard.ActionMyReferrals); err != nil {
		t.Fatalf("tap: %v", err)
	}
	e := h.gw.last(t, "edit")
	for _, want := range []string{"referrals: 1", "points: 10", "https://t.me/GateBot?start=2"} {
		if !strings.Contains(e.text, want) {
			t.Errorf("referral screen %q missing %q", e.text, want)
		}
	}
}

func TestUnlock_ThresholdPolicy(t *testing.T) {
	h := newHarness(t, false, nil)
	h.members.join(2)
	h.start(t, 2, "")
	it := h.addTextItem(t, "Guide", "the secret")

	if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err != nil {
		t.Fatalf("tap: %v", err)
	}
	a := h.gw.last(t, "answer")
	if !a.alert || !strings.Contains(a.text, "need 50 more points") {
		t.Errorf("answer = %+v, want shortfall alert", a)
	}

	if _, err := h.ledger.Credit(context.Background(), 2, 50); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err != nil {
			t.Fatalf("tap: %v", err)
		}
		if s := h.gw.last(t, "send"); s.text != "Guide\n\nthe secret" {
			t.Errorf("delivered %q", s.text)
		}
	}
	if got := h.balance(t, 2); got != 50 {
		t.Errorf("balance = %d, want 50 (threshold policy spends nothing)", got)
	}
}

func TestUnlock_DebitPolicy(t *testing.T) {
	h := newHarness(t, true, nil)
	h.members.join(2)
	h.start(t, 2, "")
	it := h.addTextItem(t, "Guide", "body")
	if _, err := h.ledger.Credit(context.Background(), 2, 120); err != nil {
		t.Fatal(err)
	}

	for _, want := range []int64{70, 20} {
		if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err != nil {
			t.Fatalf("tap: %v", err)
		}
		if got := h.balance(t, 2); got != want {
			t.Errorf("balance = %d, want %d", got, want)
		}
		if a := h.gw.last(t, "answer"); a.text != "✅ Unlocked! 50 points spent." {
			t.Errorf("answer = %q", a.text)
		}
	}

	if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err != nil {
		t.Fatalf("tap: %v", err)
	}
	if a := h.gw.last(t, "answer"); !strings.Contains(a.text, "need 30 more points (you have 20 of 50)") {
		t.Errorf("answer = %q, want shortfall 30", a.text)
	}
	if got := h.balance(t, 2); got != 20 {
		t.Errorf("balance after denial = %d, want 20", got)
	}
}

func TestUnlock_DeliveryFailureRefunds(t *testing.T) {
	h := newHarness(t, true, nil)
	h.members.join(2)
	h.start(t, 2, "")
	it, err := h.catalog.Create(context.Background(), "Clip", contentdomain.MediaPayload(adminID, 77, "watch"), adminID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.ledger.Credit(context.Background(), 2, 60); err != nil {
		t.Fatal(err)
	}
	h.gw.failCopy = true

	if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err == nil {
		t.Error("failed delivery should be reported")
	}
	if got := h.balance(t, 2); got != 60 {
		t.Errorf("balance = %d, want 60 after refund", got)
	}
	if a := h.gw.last(t, "answer"); a.text != textDeliveryFailed {
		t.Errorf("answer = %q", a.text)
	}
}

func TestUnlock_MediaCopiedByReference(t *testing.T) {
	h := newHarness(t, false, nil)
	h.members.join(2)
	h.start(t, 2, "")
	it, err := h.catalog.Create(context.Background(), "Clip", contentdomain.MediaPayload(adminID, 77, "watch"), adminID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.ledger.Credit(context.Background(), 2, 50); err != nil {
		t.Fatal(err)
	}
	if err := h.tap(t, 2, keyboard.UnlockData(it.ID)); err != nil {
		t.Fatalf("tap: %v", err)
	}
	c := h.gw.last(t, "copy")
	if c.chatID != 2 || c.from != adminID || c.msgID != 77 || c.text != "watch" {
		t.Errorf("copy = %+v", c)
	}
}

func TestUnlock_MissingItem(t *testing.T) {
	h := newHarness(t, true, nil)
	h.members.join(2)
	h.start(t, 2, "")
	if _, err := h.ledger.Credit(context.Background(), 2, 60); err != nil {
		t.Fatal(err)
	}
	if err := h.tap(t, 2, keyboard.UnlockData("does-not-exist")); err != nil {
		t.Fatalf("tap: %v", err)
	}
	if a := h.gw.last(t, "answer"); a.text != textUnavailable {
		t.Errorf("answer = %q, want unavailable", a.text)
	}
	if got := h.balance(t, 2); got != 60 {
		t.Errorf("balance = %d, missing item must not be charged", got)
	}
}

func TestUnlock_AdminBypass(t *testing.T) {
	h := newHarness(t, true, nil)
	h.members.join(adminID)
	h.start(t, adminID, "")
	it := h.addTextItem(t, "Guide", "body")

	if err := h.tap(t, adminID, keyboard.UnlockData(it.ID)); err != nil {
		t.Fatalf("tap: %v", err)
	}
	if a := h.gw.last(t, "answer"); a.text != "✅ Unlocked!" {
		t.Errorf("answer = %q, want free unlock", a.text)
	}
}

func TestAdminCommands_IgnoredForUsers(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 2, "")
	h.gw.reset()

	for _, text := range []string{"/addcontent", "/broadcast hi", "/stats", "/addchannel @x", "/channels", "hello"} {
		if err := h.send(t, &gateway.Message{ID: 3, From: gateway.User{ID: 2}, Text: text}); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}
	if n := len(h.gw.of("send")); n != 0 {
		t.Errorf("non-admin got %d replies, want none", n)
	}
}

func TestIngestionFlow(t *testing.T) {
	h := newHarness(t, false, nil)

	h.admin(t, "/addcontent")
	if s := h.gw.last(t, "send"); s.text != textAddContentStart {
		t.Errorf("reply = %q", s.text)
	}
	if err := h.send(t, &gateway.Message{ID: 11, From: gateway.User{ID: adminID}, HasMedia: true}); err != nil {
		t.Fatal(err)
	}
	if s := h.gw.last(t, "send"); s.text != textTitleRejected {
		t.Errorf("empty title reply = %q", s.text)
	}
	h.admin(t, "Guide")
	if s := h.gw.last(t, "send"); !strings.Contains(s.text, `"Guide"`) {
		t.Errorf("title reply = %q", s.text)
	}
	if err := h.send(t, &gateway.Message{ID: 77, From: gateway.User{ID: adminID}, HasMedia: true, Caption: "watch"}); err != nil {
		t.Fatal(err)
	}
	if s := h.gw.last(t, "send"); s.text != createdText("Guide") {
		t.Errorf("created reply = %q", s.text)
	}

	items, err := h.catalog.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	p := items[0].Payload
	if p.Kind != contentdomain.PayloadMedia || p.ChatID != adminID || p.MessageID != 77 || p.Caption != "watch" {
		t.Errorf("payload = %+v", p)
	}

	// Back to idle: plain admin text is not workflow input.
	h.gw.reset()
	h.admin(t, "just chatting")
	if n := len(h.gw.of("send")); n != 0 {
		t.Errorf("idle admin message got %d replies", n)
	}
}

func TestIngestionCancel(t *testing.T) {
	h := newHarness(t, false, nil)
	h.admin(t, "/cancel")
	if s := h.gw.last(t, "send"); s.text != textNothingToCancel {
		t.Errorf("reply = %q", s.text)
	}
	h.admin(t, "/addcontent")
	h.admin(t, "Title")
	h.admin(t, "/cancel")
	if s := h.gw.last(t, "send"); s.text != textCancelled {
		t.Errorf("reply = %q", s.text)
	}
	h.admin(t, "body")
	if n, _ := h.catalog.Count(context.Background()); n != 0 {
		t.Errorf("catalog size = %d after cancel, want 0", n)
	}
}

func TestBroadcast(t *testing.T) {
	h := newHarness(t, false, nil)
	for id := int64(2); id <= 6; id++ {
		h.start(t, id, "")
	}
	h.gw.failSendTo[4] = true
	h.gw.reset()

	h.admin(t, "/broadcast hello all")
	if s := h.gw.last(t, "send"); s.chatID != adminID || s.text != "Broadcast finished: 4 delivered, 1 failed." {
		t.Errorf("summary = %+v", s)
	}
	delivered := 0
	for _, c := range h.gw.of("send") {
		if c.text == "hello all" {
			delivered++
		}
	}
	if delivered != 4 {
		t.Errorf("delivered = %d, want 4", delivered)
	}

	h.gw.reset()
	if err := h.send(t, &gateway.Message{ID: 12, From: gateway.User{ID: adminID}, Text: "/broadcast", ReplyTo: &gateway.Message{ID: 99}}); err != nil {
		t.Fatal(err)
	}
	copies := h.gw.of("copy")
	if len(copies) != 5 || copies[0].from != adminID || copies[0].msgID != 99 {
		t.Errorf("copies = %+v", copies)
	}

	h.gw.reset()
	h.admin(t, "/broadcast")
	if s := h.gw.last(t, "send"); s.text != textBroadcastUsage {
		t.Errorf("usage reply = %q", s.text)
	}
}

func TestChannelAdmin_Static(t *testing.T) {
	h := newHarness(t, false, nil)
	h.admin(t, "/addchannel @more")
	if s := h.gw.last(t, "send"); s.text != textStaticChannels {
		t.Errorf("reply = %q", s.text)
	}
	h.admin(t, "/channels")
	if s := h.gw.last(t, "send"); s.text != "Required channels:\n@news" {
		t.Errorf("reply = %q", s.text)
	}
}

func TestChannelAdmin_Dynamic(t *testing.T) {
	h := newHarness(t, false, channel.NewDynamic(settingsrepo.NewMemoryRepository(), nil))

	h.admin(t, "/channels")
	if s := h.gw.last(t, "send"); s.text != textNoChannels {
		t.Errorf("reply = %q", s.text)
	}

	// No channels: everyone passes membership.
	h.start(t, 2, "")
	if s := h.gw.last(t, "send"); !strings.HasPrefix(s.text, "Welcome") {
		t.Errorf("start with no channels = %q, want main menu", s.text)
	}

	h.admin(t, "/addchannel @news")
	if s := h.gw.last(t, "send"); s.text != "Required channels:\n@news" {
		t.Errorf("add reply = %q", s.text)
	}
	h.admin(t, "/addchannel @news")
	if s := h.gw.last(t, "send"); s.text != "@news is already required." {
		t.Errorf("duplicate add reply = %q", s.text)
	}
	h.admin(t, "/removechannel @gone")
	if s := h.gw.last(t, "send"); s.text != "@gone is not a required channel." {
		t.Errorf("remove missing reply = %q", s.text)
	}
	h.admin(t, "/addchannel not a channel")
	if s := h.gw.last(t, "send"); s.text != "Usage: /addchannel @username or numeric chat id." {
		t.Errorf("invalid reply = %q", s.text)
	}

	// The new requirement applies on the next check.
	h.start(t, 2, "")
	if s := h.gw.last(t, "send"); !strings.HasPrefix(s.text, textJoinPrompt) {
		t.Errorf("start after add = %q, want join prompt", s.text)
	}

	h.admin(t, "/removechannel @news")
	if s := h.gw.last(t, "send"); s.text != textNoChannels {
		t.Errorf("remove reply = %q", s.text)
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t, false, nil)
	h.start(t, 2, "")
	h.start(t, 3, "")
	h.addTextItem(t, "Guide", "body")

	h.admin(t, "/stats")
	if s := h.gw.last(t, "send"); s.text != "📊 Users: 2\n📚 Items: 1\n📢 Required channels: 1" {
		t.Errorf("stats = %q", s.text)
	}
}

func TestHandle_EmptyUpdate(t *testing.T) {
	h := newHarness(t, false, nil)
	if err := h.router.Handle(context.Background(), gateway.Update{ID: 1}); err != nil {
		t.Errorf("Handle(empty) = %v", err)
	}
}

func TestUnknownCallbackIsAcknowledged(t *testing.T) {
	h := newHarness(t, false, nil)
	if err := h.tap(t, 2, "view_methods"); err != nil {
		t.Fatal(err)
	}
	if a := h.gw.last(t, "answer"); a.text != "" || a.alert {
		t.Errorf("answer = %+v, want silent ack", a)
	}
}
