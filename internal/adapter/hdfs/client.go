// Package hdfs implements the bulk-filesystem replication sink over the
// HDFS native protocol.
package hdfs

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/colinmarc/hdfs/v2"

	"github.com/citylake/traffic-weather-etl/internal/domain"
)

// Options configures the NameNode connection.
type Options struct {
	Addresses []string
	User      string
}

// Client implements domain.BulkFS against an HDFS cluster.
type Client struct {
	fs     *hdfs.Client
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	fs, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: opts.Addresses,
		User:      opts.User,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to hdfs %v: %w", opts.Addresses, err)
	}
	return &Client{fs: fs, logger: logger}, nil
}

func (c *Client) Exists(path string) (bool, error) {
	_, err := c.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func (c *Client) MkdirAll(path string) error {
	if err := c.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// WriteFile writes data to path. With overwrite set, an existing file is
// removed first; HDFS creates are exclusive.
func (c *Client) WriteFile(path string, data []byte, overwrite bool) error {
	if overwrite {
		exists, err := c.Exists(path)
		if err != nil {
			return err
		}
		if exists {
			if err := c.fs.Remove(path); err != nil {
				return fmt.Errorf("removing %s before overwrite: %w", path, err)
			}
		}
	}

	w, err := c.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	c.logger.Debug("file replicated", "path", path, "bytes", len(data))
	return nil
}

func (c *Client) Close() error { return c.fs.Close() }

var _ domain.BulkFS = (*Client)(nil)
