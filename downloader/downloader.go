package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/util"
)

const chunkSize = 32 * 1024

type Status int

const (
	// Fetched means the asset has been streamed to its destination
	Fetched Status = iota
	// Satisfied means the destination was already there and was left alone
	Satisfied
)

type Options struct {
	UserAgent string
	Timeout   time.Duration
	Overwrite bool // replace existing destinations instead of keeping them
	Client    *http.Client
	Logger    *slog.Logger
}

type Downloader struct {
	client    *http.Client
	agent     string
	overwrite bool
	logger    *slog.Logger
}

func New(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout > 0 {
		client = &http.Client{
			Transport:     client.Transport,
			CheckRedirect: client.CheckRedirect,
			Jar:           client.Jar,
			Timeout:       opts.Timeout,
		}
	}
	return &Downloader{client, opts.UserAgent, opts.Overwrite, config.Or(opts.Logger)}
}

func FromConfig(cfg *config.Config, logger *slog.Logger) *Downloader {
	return New(Options{
		UserAgent: cfg.Network.UserAgent,
		Timeout:   cfg.Network.StreamTimeout,
		Logger:    logger,
	})
}

// Download streams url into dest through a temporary sibling file,
// calling onProgress with the completion percentage after each chunk
// whenever the server announces the body length.
// The final file is only ever put in place complete: on failure the
// temporary file is dropped and dest is left untouched
func (downloader *Downloader) Download(ctx context.Context, url, dest string, onProgress func(int)) (Status, error) {
	if !downloader.overwrite && util.FileExists(dest) {
		downloader.logger.Debug("destination already there", "path", dest)
		return Satisfied, nil
	}

	if err := downloader.stream(ctx, url, dest, onProgress); err != nil {
		return Fetched, &entity.FetchError{URL: url, Err: err}
	}
	return Fetched, nil
}

func (downloader *Downloader) stream(ctx context.Context, url, dest string, onProgress func(int)) error {
	request, err := util.HTTPRequest(ctx, http.MethodGet, url, downloader.agent)
	if err != nil {
		return err
	}

	response, err := downloader.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", response.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	temp := dest + entity.TempSuffix
	file, err := os.Create(temp)
	if err != nil {
		return err
	}

	written, err := copyWithProgress(file, response.Body, response.ContentLength, onProgress)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && response.ContentLength > 0 && written != response.ContentLength {
		err = fmt.Errorf("short body: %d of %d bytes", written, response.ContentLength)
	}
	if err != nil {
		util.ErrSuppress(util.FileRemoveIfExists(temp))
		return err
	}

	if err := util.FileRemoveIfExists(dest); err != nil {
		util.ErrSuppress(util.FileRemoveIfExists(temp))
		return err
	}
	if err := os.Rename(temp, dest); err != nil {
		util.ErrSuppress(util.FileRemoveIfExists(temp))
		return err
	}

	downloader.logger.Debug("asset fetched", "url", url, "path", dest, "size", util.HumanizeBytes(written))
	return nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, onProgress func(int)) (int64, error) {
	var (
		buf     = make([]byte, chunkSize)
		written int64
	)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if onProgress != nil && total > 0 {
				onProgress(int(written * 100 / total))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
