package source

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"fhirgen/internal/definitions"
)

// Archive downloads a zipped definitions package and reads the listed
// member files from it.
type Archive struct {
	url      string
	members  []string
	version  string
	cacheDir string
	client   *retryablehttp.Client
	log      zerolog.Logger
}

// ArchiveOptions configures an Archive.
type ArchiveOptions struct {
	URL      string   // Location of the zip archive
	Members  []string // Member files to read, in order
	Version  string   // Optional version, used to separate cache entries
	CacheDir string   // Keeps the download between runs; a temp dir when empty
}

// NewArchive creates an Archive source.
func NewArchive(opts ArchiveOptions, log zerolog.Logger) *Archive {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	client.Logger = retryLogger{log: log}

	return &Archive{
		url:      opts.URL,
		members:  opts.Members,
		version:  opts.Version,
		cacheDir: opts.CacheDir,
		client:   client,
		log:      log,
	}
}

// Resources fetches the archive if it is not cached yet and decodes every
// member in order.
func (a *Archive) Resources(ctx context.Context) ([]definitions.Resource, error) {
	u, err := url.Parse(a.url)
	if err != nil {
		return nil, fmt.Errorf("parsing archive url: %w", err)
	}
	name := path.Base(u.Path)
	if u.Path == "" || name == "/" || name == "." {
		return nil, fmt.Errorf("archive url %q has no file name", a.url)
	}

	dir := a.cacheDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "fhirgen-")
		if err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	if a.version != "" {
		dir = filepath.Join(dir, a.version)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	file := filepath.Join(dir, name)
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		if err := a.download(ctx, file); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking cache: %w", err)
	} else {
		a.log.Debug().Str("file", file).Msg("using cached archive")
	}

	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	var resources []definitions.Resource
	for _, member := range a.members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decoded, err := decodeFile(zr, member)
		if err != nil {
			return nil, err
		}
		a.log.Debug().Str("member", member).Int("resources", len(decoded)).Msg("loaded definitions")
		resources = append(resources, decoded...)
	}

	return resources, nil
}

// download writes the archive to file, through a temporary file so an
// interrupted download never poisons the cache.
func (a *Archive) download(ctx context.Context, file string) error {
	a.log.Info().Str("url", a.url).Msg("downloading definitions")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", a.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", a.url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(file), ".download-*")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}

	return os.Rename(tmp.Name(), file)
}

// retryLogger routes retryablehttp's leveled logging into zerolog.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{}) { l.log.Warn().Fields(kv).Msg(msg) }
func (l retryLogger) Info(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }
