package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/motionpreview/internal/timeline"
)

// ErrNoSource is returned for assets that carry no pixel data
var ErrNoSource = errors.New("asset has no decodable source")

// Loader turns an asset reference into decoded pixels. It may block and is
// never called from the render path.
type Loader interface {
	Load(ctx context.Context, asset timeline.Asset) (image.Image, error)
}

// FileLoader reads local files, file:// and http(s):// references.
// PDFs render their first page; videos use the thumbnail or the first frame.
type FileLoader struct {
	client     *http.Client
	ffmpegPath string
	dpi        int
	logger     zerolog.Logger
}

func NewFileLoader(ffmpegPath string, dpi int, logger zerolog.Logger) *FileLoader {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
		if path, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = path
		}
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FileLoader{
		client:     http.DefaultClient,
		ffmpegPath: ffmpegPath,
		dpi:        dpi,
		logger:     logger,
	}
}

func (l *FileLoader) Load(ctx context.Context, asset timeline.Asset) (image.Image, error) {
	switch asset.Kind {
	case timeline.KindImage:
		return l.decode(ctx, asset.Source)

	case timeline.KindVideo:
		if asset.Thumbnail != "" {
			img, err := l.decode(ctx, asset.Thumbnail)
			if err == nil {
				return img, nil
			}
			l.logger.Warn().Err(err).Str("asset", asset.ID).Msg("video thumbnail unavailable, extracting first frame")
		}
		return l.firstFrame(ctx, asset.Source)

	default:
		return nil, ErrNoSource
	}
}

func (l *FileLoader) decode(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrNoSource
	}
	if strings.HasSuffix(strings.ToLower(ref), ".pdf") && !isRemote(ref) {
		return l.renderPDF(localPath(ref))
	}

	rc, err := l.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

func (l *FileLoader) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !isRemote(ref) {
		return os.Open(localPath(ref))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	return resp.Body, nil
}

func (l *FileLoader) renderPDF(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%s: document has no pages", path)
	}
	return doc.ImageDPI(0, float64(l.dpi))
}

// firstFrame asks ffmpeg for a single PNG frame on stdout
func (l *FileLoader) firstFrame(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrNoSource
	}
	cmd := exec.CommandContext(ctx, l.ffmpegPath,
		"-v", "error",
		"-i", localPath(ref),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg first frame %s: %w: %s", ref, err, strings.TrimSpace(stderr.String()))
	}
	return png.Decode(&out)
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func localPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}
