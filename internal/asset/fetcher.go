// Package asset loads zone icons from local files or http(s) locations.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	// Register decoders for the formats OpenCV may be built without.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/ayusman/pointerzone/internal/log"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrAssetUnavailable is returned when an icon cannot be read or decoded.
var ErrAssetUnavailable = errors.New("asset unavailable")

// MaxDownloadSize limits the body of a remote icon.
const MaxDownloadSize = 8 << 20

// DefaultTimeout bounds a single remote download.
const DefaultTimeout = 10 * time.Second

// remotePattern accepts http and https locators with optional port, path, query and fragment.
var remotePattern = regexp.MustCompile(`^(?:((?:https?):)//)([^:/\s]+)(?::(\d*))?(?:/([^\s?#]+)?([?][^?#]*)?(#.*)?)?$`)

// IsRemote reports whether uri is an http(s) locator the fetcher will download.
func IsRemote(uri string) bool {
	return remotePattern.MatchString(uri)
}

// Fetcher loads icons as decoded Mats, keeping their alpha channel.
// Remote icons are downloaded into a private temporary directory and removed
// once decoded.
type Fetcher struct {
	client  *http.Client
	maxSize int64

	mu  sync.Mutex
	dir string
}

// NewFetcher creates a Fetcher whose downloads time out after timeout.
// A timeout less than or equal to 0 uses DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxSize: MaxDownloadSize}
}

// Load implements zone.IconLoader. Local files are tried first; anything
// else must be an http(s) locator.
func (f *Fetcher) Load(ctx context.Context, uri, zoneID, variant string) (gocv.Mat, error) {
	if uri == "" {
		return gocv.NewMat(), fmt.Errorf("%w: empty uri", ErrAssetUnavailable)
	}

	if info, err := os.Stat(uri); err == nil && !info.IsDir() {
		return readFile(uri)
	}

	if !IsRemote(uri) {
		return gocv.NewMat(), fmt.Errorf("%w: %q is neither a file nor an http(s) uri", ErrAssetUnavailable, uri)
	}

	path, err := f.download(ctx, uri, zoneID+variant)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer os.Remove(path)

	return readFile(path)
}

// Dir returns the download directory, or "" if nothing was downloaded yet.
func (f *Fetcher) Dir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dir
}

// Close removes the download directory.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}

func (f *Fetcher) tempDir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir != "" {
		return f.dir, nil
	}
	dir, err := os.MkdirTemp("", "pointerzone-")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	f.dir = dir
	return dir, nil
}

func (f *Fetcher) download(ctx context.Context, uri, name string) (string, error) {
	dir, err := f.tempDir()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	req.Header.Set("User-Agent", "pointerzone/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", ErrAssetUnavailable, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d from %s", ErrAssetUnavailable, resp.StatusCode, uri)
	}

	path := filepath.Join(dir, sanitize(name)+".png")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	// One byte past the limit tells an oversized body from one that fits.
	n, err := io.Copy(out, io.LimitReader(resp.Body, f.maxSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > f.maxSize {
		err = fmt.Errorf("larger than %d bytes", f.maxSize)
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: reading %s: %v", ErrAssetUnavailable, uri, err)
	}

	log.Debug("downloaded %s (%d bytes) to %s", uri, n, path)
	return path, nil
}

// readFile decodes an image file with OpenCV, falling back to the Go decoders.
func readFile(path string) (gocv.Mat, error) {
	m := gocv.IMRead(path, gocv.IMReadUnchanged)
	if !m.Empty() {
		return m, nil
	}
	m.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	return Decode(data)
}

// Decode turns encoded image bytes into a Mat. OpenCV is tried first; formats
// it cannot read (webp, bmp, gif depending on the build) go through image.Decode
// and come back as 4-channel BGRA.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty image data", ErrAssetUnavailable)
	}

	if m, err := gocv.IMDecode(data, gocv.IMReadUnchanged); err == nil && !m.Empty() {
		return m, nil
	} else if err == nil {
		m.Close()
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: decoding image: %v", ErrAssetUnavailable, err)
	}
	log.Debug("decoded %s icon with Go decoder", format)
	return ImageToBGRA(img)
}

// ImageToBGRA converts any image to a 4-channel BGRA Mat with straight alpha.
func ImageToBGRA(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	if b.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", ErrAssetUnavailable)
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	buf := make([]byte, b.Dx()*b.Dy()*4)
	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			i := y*b.Dx()*4 + x*4
			buf[i+0] = row[x*4+2]
			buf[i+1] = row[x*4+1]
			buf[i+2] = row[x*4+0]
			buf[i+3] = row[x*4+3]
		}
	}

	view, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	defer view.Close()
	return view.Clone(), nil
}

// sanitize keeps a zone id usable as a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
