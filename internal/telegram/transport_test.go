package telegram

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTransport(ff *fakeFactory, sessions SessionSource) *Transport {
	m := NewManager(ff.factory(), Options{BotToken: "t"}, sessions)
	return NewTransport(m, nil, zap.NewNop().Sugar())
}

func TestPickIdentity_Threshold(t *testing.T) {
	assert.Equal(t, IdentityBot, PickIdentity(0))
	assert.Equal(t, IdentityBot, PickIdentity(UploadThreshold))
	assert.Equal(t, IdentityUser, PickIdentity(UploadThreshold+1))
}

func TestChannelTarget_IdentifiersAliasFirst(t *testing.T) {
	withAlias := ChannelTarget{ID: -100123, Username: "@drive"}
	refs := withAlias.Identifiers()
	require.Len(t, refs, 2)
	assert.True(t, refs[0].IsAlias())
	assert.Equal(t, "@drive", refs[0].Username)
	assert.Equal(t, int64(-100123), refs[1].ID)

	noAlias := ChannelTarget{ID: -100123}
	refs = noAlias.Identifiers()
	require.Len(t, refs, 1)
	assert.Equal(t, int64(-100123), refs[0].ID)
}

func TestTransport_UploadSmallUsesBot(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})

	ref, identity, err := tr.Upload(context.Background(),
		ChannelTarget{ID: -100123}, []byte("small payload"), "a.bin", "application/octet-stream", "")
	require.NoError(t, err)

	assert.Equal(t, IdentityBot, identity)
	assert.Equal(t, int64(-100123), ref.ChannelID)
	assert.NotZero(t, ref.MessageID)
	assert.Equal(t, 0, ff.count(IdentityUser), "privileged identity must stay idle for small uploads")

	sent := ff.last(IdentityBot).sent
	require.Len(t, sent, 1)
	doc, ok := sent[0].(Document)
	require.True(t, ok)
	assert.Equal(t, "a.bin", doc.FileName)
}

func TestTransport_UploadLargeRequiresUser(t *testing.T) {
	ff := newFakeFactory()
	payload := bytes.Repeat([]byte("x"), UploadThreshold+1)

	// без сессии крупная загрузка невозможна
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})
	_, identity, err := tr.Upload(context.Background(),
		ChannelTarget{ID: -1}, payload, "big.bin", "application/octet-stream", "")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, IdentityUser, identity)

	// с сессией — уходит через привилегированную идентичность
	ff2 := newFakeFactory()
	tr2 := newTestTransport(ff2, staticSessions{session: "s"})
	_, identity, err = tr2.Upload(context.Background(),
		ChannelTarget{ID: -1}, payload, "big.bin", "application/octet-stream", "")
	require.NoError(t, err)
	assert.Equal(t, IdentityUser, identity)
	assert.Equal(t, 0, ff2.count(IdentityBot))
}

func TestTransport_UploadMediaFraming(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})
	ctx := context.Background()
	target := ChannelTarget{ID: -1}

	_, _, err := tr.Upload(ctx, target, []byte("img"), "p.png", "image/png", "cap")
	require.NoError(t, err)
	_, _, err = tr.Upload(ctx, target, []byte("aud"), "s.mp3", "audio/mpeg", "")
	require.NoError(t, err)
	_, _, err = tr.Upload(ctx, target, []byte("txt"), "n.txt", "text/plain", "")
	require.NoError(t, err)

	sent := ff.last(IdentityBot).sent
	require.Len(t, sent, 3)
	assert.IsType(t, Photo{}, sent[0])
	assert.IsType(t, Audio{}, sent[1])
	assert.IsType(t, Document{}, sent[2])
}

func TestTransport_VideoProbeFailureDegradesSilently(t *testing.T) {
	ff := newFakeFactory()
	m := NewManager(ff.factory(), Options{}, staticSessions{err: ErrNoSession})
	// заведомо отсутствующие бинарники — проба обязана тихо деградировать
	prober := &Prober{FFprobe: "definitely-missing-ffprobe", FFmpeg: "definitely-missing-ffmpeg", Timeout: 1}
	tr := NewTransport(m, prober, zap.NewNop().Sugar())

	_, _, err := tr.Upload(context.Background(),
		ChannelTarget{ID: -1}, []byte("vid"), "m.mp4", "video/mp4", "")
	require.NoError(t, err)

	sent := ff.last(IdentityBot).sent
	require.Len(t, sent, 1)
	v, ok := sent[0].(Video)
	require.True(t, ok)
	assert.Zero(t, v.Duration)
	assert.Nil(t, v.Thumb)
}

func TestTransport_DownloadAliasFirstSucceeds(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})
	ctx := context.Background()

	// прогреем бот-клиента и положим данные под алиасом
	_, _, err := tr.Upload(ctx, ChannelTarget{ID: -1}, []byte("x"), "x", "", "")
	require.NoError(t, err)
	bot := ff.last(IdentityBot)
	bot.downloads["@drive"] = []byte("payload")

	data, err := tr.Download(ctx, ChannelTarget{ID: -1, Username: "@drive"}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	// алиас сработал первым — численный id не пробовался
	assert.Equal(t, []string{"@drive"}, bot.attempts)
}

func TestTransport_DownloadFallsBackToNumericID(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})
	ctx := context.Background()

	_, _, err := tr.Upload(ctx, ChannelTarget{ID: -100123}, []byte("x"), "x", "", "")
	require.NoError(t, err)
	bot := ff.last(IdentityBot)
	bot.downloads[ChatRef{ID: -100123}.String()] = []byte("payload")

	data, err := tr.Download(ctx, ChannelTarget{ID: -100123, Username: "@gone"}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	require.Len(t, bot.attempts, 2)
	assert.Equal(t, "@gone", bot.attempts[0])
}

func TestTransport_DownloadFallsBackToSecondIdentity(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{session: "s"})
	ctx := context.Background()

	data, err := tr.Download(ctx, ChannelTarget{ID: -1, Username: "@drive"}, 5, 10)
	assert.Error(t, err) // пока данных нет нигде

	// у бота данных нет, у пользователя есть
	user := ff.last(IdentityUser)
	require.NotNil(t, user)
	user.downloads["@drive"] = []byte("payload")

	data, err = tr.Download(ctx, ChannelTarget{ID: -1, Username: "@drive"}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	// у каждой идентичности каждый адрес пробуется не более одного раза
	// за операцию: повтор — только альтернативная адресация
	bot := ff.last(IdentityBot)
	assert.Equal(t, []string{"@drive", ChatRef{ID: -1}.String(), "@drive", ChatRef{ID: -1}.String()}, bot.attempts)
}

func TestTransport_DownloadLargePrefersUserIdentity(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{session: "s"})
	ctx := context.Background()

	_, err := tr.Download(ctx, ChannelTarget{ID: -1}, 5, UploadThreshold+1)
	assert.Error(t, err)

	user := ff.last(IdentityUser)
	require.NotNil(t, user)
	user.downloads[ChatRef{ID: -1}.String()] = []byte("big")

	data, err := tr.Download(ctx, ChannelTarget{ID: -1}, 5, UploadThreshold+1)
	require.NoError(t, err)
	assert.Equal(t, []byte("big"), data)
	// привилегированная идентичность шла первой
	assert.NotEmpty(t, user.attempts)
}

func TestTransport_DownloadExhaustedWrapsCause(t *testing.T) {
	ff := newFakeFactory()
	tr := newTestTransport(ff, staticSessions{err: ErrNoSession})

	_, err := tr.Download(context.Background(), ChannelTarget{ID: -1}, 5, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestChecksum(t *testing.T) {
	sum, err := Checksum(strings.NewReader("hello"))
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	sum2, err := Checksum(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, sum, sum2)
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindImage, DetectKind("image/png"))
	assert.Equal(t, KindVideo, DetectKind("video/mp4"))
	assert.Equal(t, KindAudio, DetectKind("audio/ogg"))
	assert.Equal(t, KindDocument, DetectKind("application/pdf"))
	assert.Equal(t, KindDocument, DetectKind(""))
}
