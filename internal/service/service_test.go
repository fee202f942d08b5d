package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"TgDrive/internal/repo"
	"TgDrive/internal/telegram"

	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// newTestDB открывает in-memory SQLite с уникальным на тест именем
// и применяет миграции.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

// fakeClient — управляемая реализация telegram.Client для тестов сервисов.
type fakeClient struct {
	mu       sync.Mutex
	identity telegram.Identity
	opts     telegram.Options

	connected   bool
	connects    int
	disconnects int

	// логин
	codeSent       string
	expectCode     string
	expectPassword string
	passwordNeeded bool
	passwordOK     bool
	session        string
	me             telegram.Me
	signInHook     func() // вызывается внутри SignIn до проверки кода

	// каналы и сообщения
	chats         map[string]*telegram.Chat // ключ — алиас вида @name
	nextMessageID int64
	sent          []telegram.Media
	sentTo        []telegram.ChatRef
	createdTitles []string
	addedMembers  []string
	promoted      []string
	sendErr       error
	resolveErr    error
}

func newFakeClient(identity telegram.Identity, opts telegram.Options) *fakeClient {
	return &fakeClient{
		identity:      identity,
		opts:          opts,
		expectCode:    "12345",
		session:       "session-string",
		me:            telegram.Me{ID: 7, Username: "tester"},
		chats:         map[string]*telegram.Chat{},
		nextMessageID: 100,
	}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.connects++
	return nil
}

func (f *fakeClient) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
	return nil
}

func (f *fakeClient) SendCode(ctx context.Context, phone string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeSent = phone
	return "hash-" + phone, nil
}

func (f *fakeClient) SignIn(ctx context.Context, phone, code, phoneCodeHash string) error {
	f.mu.Lock()
	hook := f.signInHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if code != f.expectCode {
		return errors.New("invalid confirmation code")
	}
	if f.passwordNeeded && !f.passwordOK {
		return telegram.ErrPasswordNeeded
	}
	return nil
}

func (f *fakeClient) CheckPassword(ctx context.Context, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if password != f.expectPassword {
		return errors.New("invalid password")
	}
	f.passwordOK = true
	return nil
}

func (f *fakeClient) ExportSession(ctx context.Context) (string, error) {
	return f.session, nil
}

func (f *fakeClient) Me(ctx context.Context) (*telegram.Me, error) {
	me := f.me
	return &me, nil
}

func (f *fakeClient) GetChat(ctx context.Context, ref telegram.ChatRef) (*telegram.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if c, ok := f.chats[ref.String()]; ok {
		out := *c
		return &out, nil
	}
	return nil, errors.New("chat not found")
}

func (f *fakeClient) SendMedia(ctx context.Context, ref telegram.ChatRef, media telegram.Media) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, media)
	f.sentTo = append(f.sentTo, ref)
	f.nextMessageID++
	return f.nextMessageID, nil
}

func (f *fakeClient) DownloadMessage(ctx context.Context, ref telegram.ChatRef, messageID int64) ([]byte, error) {
	return nil, errors.New("not supported in fake")
}

func (f *fakeClient) CreateChannel(ctx context.Context, title, about string) (*telegram.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdTitles = append(f.createdTitles, title)
	return &telegram.Chat{ID: -100900, Title: title}, nil
}

func (f *fakeClient) AddChatMember(ctx context.Context, ref telegram.ChatRef, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedMembers = append(f.addedMembers, username)
	return nil
}

func (f *fakeClient) PromoteChatMember(ctx context.Context, ref telegram.ChatRef, username string, rights telegram.MemberRights) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoted = append(f.promoted, username)
	return nil
}

// fakeFactory запоминает созданные клиенты по идентичности.
type fakeFactory struct {
	mu      sync.Mutex
	created map[telegram.Identity][]*fakeClient
	prepare func(c *fakeClient)
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: map[telegram.Identity][]*fakeClient{}}
}

func (f *fakeFactory) factory() telegram.Factory {
	return func(identity telegram.Identity, opts telegram.Options) (telegram.Client, error) {
		c := newFakeClient(identity, opts)
		f.mu.Lock()
		if f.prepare != nil {
			f.prepare(c)
		}
		f.created[identity] = append(f.created[identity], c)
		f.mu.Unlock()
		return c, nil
	}
}

func (f *fakeFactory) last(identity telegram.Identity) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs := f.created[identity]
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func (f *fakeFactory) count(identity telegram.Identity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created[identity])
}

// staticSessions — неизменный источник сессии для менеджера в тестах.
type staticSessions struct {
	s   string
	err error
}

func (s staticSessions) SessionString(ctx context.Context) (string, error) {
	return s.s, s.err
}
