package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Media — закрытое множество форм отправки: бэкенд строит превью по типу
// вложения, поэтому форма выбирается один раз перед отправкой.
type Media interface {
	isMedia()
}

// Photo — изображение с превью на стороне бэкенда.
type Photo struct {
	Data    []byte
	Caption string
}

// Video — видео; метаданные и постер заполняются по возможности.
type Video struct {
	Data     []byte
	Caption  string
	Duration int // секунды, 0 — неизвестно
	Width    int
	Height   int
	Thumb    []byte // постер-кадр, nil — нет
}

// Audio — аудиовложение.
type Audio struct {
	Data     []byte
	FileName string
	Caption  string
}

// Document — универсальная форма для любых остальных типов.
type Document struct {
	Data     []byte
	FileName string
	Caption  string
}

func (Photo) isMedia()    {}
func (Video) isMedia()    {}
func (Audio) isMedia()    {}
func (Document) isMedia() {}

// Kind — вид формы отправки.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
	KindVideo
	KindAudio
)

// DetectKind выбирает форму по MIME-типу.
func DetectKind(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	default:
		return KindDocument
	}
}

// VideoMeta — длительность и размеры, извлечённые внешним инструментом.
type VideoMeta struct {
	Duration int
	Width    int
	Height   int
}

// Prober извлекает метаданные и постер-кадр видео через внешние
// ffprobe/ffmpeg. Все операции ограничены таймаутом и best-effort:
// ошибка пробы не должна ронять загрузку.
type Prober struct {
	FFprobe string
	FFmpeg  string
	Timeout time.Duration
}

// NewProber создаёт пробер с стандартными именами бинарей.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{FFprobe: "ffprobe", FFmpeg: "ffmpeg", Timeout: timeout}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// VideoMeta извлекает длительность и размеры первого видеопотока.
func (p *Prober) VideoMeta(ctx context.Context, data []byte) (*VideoMeta, error) {
	path, cleanup, err := writeTemp(data, "probe-*.bin")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.FFprobe,
		"-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("ffprobe output: %w", err)
	}

	meta := &VideoMeta{}
	if d := parsed.Format.Duration; d != "" {
		var sec float64
		if _, err := fmt.Sscanf(d, "%f", &sec); err == nil {
			meta.Duration = int(sec)
		}
	}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			meta.Width = s.Width
			meta.Height = s.Height
			break
		}
	}
	return meta, nil
}

// Thumbnail извлекает один кадр с первой секунды видео.
func (p *Prober) Thumbnail(ctx context.Context, data []byte) ([]byte, error) {
	path, cleanup, err := writeTemp(data, "thumb-src-*.bin")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	thumbPath := path + "_thumb.jpg"
	defer os.Remove(thumbPath)

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.FFmpeg,
		"-i", path, "-ss", "00:00:01", "-vframes", "1",
		"-f", "image2", "-y", thumbPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	thumb, err := os.ReadFile(thumbPath)
	if err != nil {
		return nil, err
	}
	return thumb, nil
}

func writeTemp(data []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
