package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// fakeClient — программируемая реализация Client для тестов пакета.
type fakeClient struct {
	mu sync.Mutex

	identity Identity
	opts     Options

	connects    int32
	disconnects int32

	// download: ответы по строковому адресу; отсутствие ключа — ошибка
	downloads map[string][]byte
	attempts  []string // журнал адресов в порядке обращения

	sendErr error
	sent    []Media
	nextMsg int64

	session string
	needPwd bool
}

func newFakeClient(identity Identity, opts Options) *fakeClient {
	return &fakeClient{identity: identity, opts: opts, downloads: map[string][]byte{}, nextMsg: 100}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	atomic.AddInt32(&f.connects, 1)
	return nil
}

func (f *fakeClient) Disconnect(ctx context.Context) error {
	atomic.AddInt32(&f.disconnects, 1)
	return nil
}

func (f *fakeClient) SendCode(ctx context.Context, phone string) (string, error) {
	return "hash-" + phone, nil
}

func (f *fakeClient) SignIn(ctx context.Context, phone, code, phoneCodeHash string) error {
	if f.needPwd {
		return ErrPasswordNeeded
	}
	if code != "12345" {
		return errors.New("invalid code")
	}
	return nil
}

func (f *fakeClient) CheckPassword(ctx context.Context, password string) error {
	if password != "secret" {
		return errors.New("invalid password")
	}
	return nil
}

func (f *fakeClient) ExportSession(ctx context.Context) (string, error) {
	if f.session == "" {
		return "session-string", nil
	}
	return f.session, nil
}

func (f *fakeClient) Me(ctx context.Context) (*Me, error) {
	return &Me{ID: 7, Username: "tester", Phone: "+100"}, nil
}

func (f *fakeClient) GetChat(ctx context.Context, ref ChatRef) (*Chat, error) {
	if ref.IsAlias() {
		return &Chat{ID: -100999, Title: "resolved", Username: ref.Username}, nil
	}
	return &Chat{ID: ref.ID, Title: "by-id"}, nil
}

func (f *fakeClient) SendMedia(ctx context.Context, ref ChatRef, media Media) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, media)
	f.nextMsg++
	return f.nextMsg, nil
}

func (f *fakeClient) DownloadMessage(ctx context.Context, ref ChatRef, messageID int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ref.String()
	f.attempts = append(f.attempts, key)
	if data, ok := f.downloads[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("message %d not reachable via %s", messageID, key)
}

func (f *fakeClient) CreateChannel(ctx context.Context, title, about string) (*Chat, error) {
	return &Chat{ID: -100555, Title: title}, nil
}

func (f *fakeClient) AddChatMember(ctx context.Context, ref ChatRef, username string) error {
	return nil
}

func (f *fakeClient) PromoteChatMember(ctx context.Context, ref ChatRef, username string, rights MemberRights) error {
	return nil
}

var _ Client = (*fakeClient)(nil)

// fakeFactory запоминает созданные клиенты по идентичности.
type fakeFactory struct {
	mu      sync.Mutex
	created map[Identity][]*fakeClient
	err     error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: map[Identity][]*fakeClient{}}
}

func (ff *fakeFactory) factory() Factory {
	return func(identity Identity, opts Options) (Client, error) {
		ff.mu.Lock()
		defer ff.mu.Unlock()
		if ff.err != nil {
			return nil, ff.err
		}
		c := newFakeClient(identity, opts)
		ff.created[identity] = append(ff.created[identity], c)
		return c, nil
	}
}

func (ff *fakeFactory) last(identity Identity) *fakeClient {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	list := ff.created[identity]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (ff *fakeFactory) count(identity Identity) int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.created[identity])
}

// staticSessions — источник сессии с фиксированным значением.
type staticSessions struct {
	session string
	err     error
}

func (s staticSessions) SessionString(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.session, nil
}
