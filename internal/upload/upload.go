package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/transport"
)

// TicketPath creates upload tickets for the authenticated user.
const TicketPath = "/me/videos"

// statusResumeIncomplete is the status the upload server answers progress
// checks with.
const statusResumeIncomplete = http.StatusPermanentRedirect

// Dispatcher issues authenticated API requests. Relative URLs are resolved
// against the API root by the implementation.
type Dispatcher interface {
	Post(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error)
	Put(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error)
	Delete(ctx context.Context, url string, opts ...transport.Option) (*http.Response, error)
}

// Uploader performs resumable streaming uploads:
//
//  1. POST /me/videos (type=streaming) returns an upload link and a
//     completion URI.
//  2. PUT the remaining bytes to the upload link with a Content-Range header.
//  3. PUT an empty body with "Content-Range: bytes */*"; the server replies
//     308 with a Range header naming the bytes it holds, or 200 once it
//     holds everything.
//  4. Repeat 2-3 from the verified offset until all bytes arrived or the
//     attempt budget is spent.
//  5. DELETE the completion URI; the Location header names the new video.
type Uploader struct {
	dispatcher  Dispatcher
	maxAttempts int
	contentType string
	logger      *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithMaxAttempts sets how many PUT attempts an upload may use. Values below
// one are ignored.
func WithMaxAttempts(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxAttempts = n
		}
	}
}

// WithContentType sets the Content-Type of uploaded bytes.
func WithContentType(contentType string) Option {
	return func(u *Uploader) {
		u.contentType = contentType
	}
}

// WithLogger sets the logger for progress reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// New creates an Uploader.
func New(dispatcher Dispatcher, opts ...Option) *Uploader {
	u := &Uploader{
		dispatcher:  dispatcher,
		maxAttempts: 5,
		contentType: "video/mp4",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Error reports a failed upload step.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrIncomplete is returned when the server still lacks bytes after all
// attempts were used.
var ErrIncomplete = errors.New("upload incomplete")

// ticket is the response to an upload ticket request.
type ticket struct {
	URI              string `json:"uri"`
	TicketID         string `json:"ticket_id"`
	UploadLink       string `json:"upload_link"`
	UploadLinkSecure string `json:"upload_link_secure"`
	CompleteURI      string `json:"complete_uri"`
}

func (t ticket) link() string {
	if t.UploadLinkSecure != "" {
		return t.UploadLinkSecure
	}
	return t.UploadLink
}

// UploadFile uploads the file at path and returns the URI of the new video.
func (u *Uploader) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	return u.Upload(ctx, f, info.Size())
}

// Upload uploads size bytes read from r and returns the URI of the new video.
func (u *Uploader) Upload(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	if size <= 0 {
		return "", &Error{Step: "prepare", Err: errors.New("nothing to upload")}
	}

	t, err := u.requestTicket(ctx)
	if err != nil {
		return "", err
	}
	u.logger.DebugContext(ctx, "upload ticket issued", "ticket_id", t.TicketID, "size", size)

	var offset int64
	for attempt := 1; ; attempt++ {
		if err := u.sendBytes(ctx, t.link(), r, offset, size); err != nil {
			// Interrupted transfers are recovered by the progress check below.
			if ctx.Err() != nil {
				return "", &Error{Step: "transfer", Err: ctx.Err()}
			}
			u.logger.WarnContext(ctx, "upload transfer interrupted", "attempt", attempt, "error", err)
		}

		received, err := u.verify(ctx, t.link(), size)
		if err != nil {
			return "", err
		}
		u.logger.InfoContext(ctx, "upload progress", "received", received, "size", size, "attempt", attempt)

		if received >= size {
			break
		}
		if attempt >= u.maxAttempts {
			return "", &Error{
				Step: "transfer",
				Err:  fmt.Errorf("%w: %d of %d bytes after %d attempts", ErrIncomplete, received, size, attempt),
			}
		}
		offset = received
	}

	return u.complete(ctx, t.CompleteURI)
}

func (u *Uploader) requestTicket(ctx context.Context) (*ticket, error) {
	resp, err := u.dispatcher.Post(ctx, TicketPath, transport.WithForm(url.Values{"type": {"streaming"}}))
	if err != nil {
		return nil, &Error{Step: "ticket", Err: err}
	}
	if err := apierror.Check(resp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, &Error{Step: "ticket", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var t ticket
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, &Error{Step: "ticket", Err: fmt.Errorf("decoding ticket: %w", err)}
	}
	if t.link() == "" || t.CompleteURI == "" {
		return nil, &Error{Step: "ticket", Err: errors.New("ticket is missing upload link or complete URI")}
	}

	return &t, nil
}

// sendBytes streams bytes [offset, size) to the upload link.
func (u *Uploader) sendBytes(ctx context.Context, link string, r io.ReaderAt, offset, size int64) error {
	remaining := size - offset
	body := io.NewSectionReader(r, offset, remaining)

	resp, err := u.dispatcher.Put(ctx, link,
		transport.WithBody(body, u.contentType),
		transport.WithContentLength(remaining),
		transport.WithHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, size-1, size)),
	)
	if err != nil {
		return err
	}
	if err := apierror.Check(resp, http.StatusOK, http.StatusCreated); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// verify asks the upload server how many bytes it holds. A 200 answer means
// the server holds all size bytes.
func (u *Uploader) verify(ctx context.Context, link string, size int64) (int64, error) {
	resp, err := u.dispatcher.Put(ctx, link, transport.WithHeader("Content-Range", "bytes */*"))
	if err != nil {
		return 0, &Error{Step: "verify", Err: err}
	}
	if err := apierror.Check(resp, statusResumeIncomplete, http.StatusOK); err != nil {
		return 0, &Error{Step: "verify", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return size, nil
	}

	received, err := parseRange(resp.Header.Get("Range"))
	if err != nil {
		return 0, &Error{Step: "verify", Err: err}
	}
	return received, nil
}

func (u *Uploader) complete(ctx context.Context, completeURI string) (string, error) {
	resp, err := u.dispatcher.Delete(ctx, completeURI)
	if err != nil {
		return "", &Error{Step: "complete", Err: err}
	}
	if err := apierror.Check(resp, http.StatusCreated, http.StatusOK); err != nil {
		return "", &Error{Step: "complete", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &Error{Step: "complete", Err: errors.New("response has no Location header")}
	}
	return location, nil
}

// parseRange returns the number of contiguous bytes held by the server given
// a Range header such as "bytes=0-1023". An empty header means none.
func parseRange(header string) (int64, error) {
	if header == "" {
		return 0, nil
	}

	byteRange, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, fmt.Errorf("unexpected Range header %q", header)
	}
	_, last, ok := strings.Cut(byteRange, "-")
	if !ok {
		return 0, fmt.Errorf("unexpected Range header %q", header)
	}

	end, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected Range header %q: %w", header, err)
	}
	return end + 1, nil
}
