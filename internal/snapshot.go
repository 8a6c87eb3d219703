package internal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PageSink receives parsed page updates
type PageSink interface {
	Observe(ctx context.Context, page *Page, added []Node) error
}

// WatchSnapshot feeds the HTML file at path to sink once, then again every time
// it is written or replaced, until ctx is done. Unparseable versions are
// skipped; a half-written file is normal while a browser saves.
func WatchSnapshot(ctx context.Context, path, rawURL string, sink PageSink) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "failed to resolve snapshot path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(err, "failed to watch snapshot directory")
	}

	if err := feedSnapshot(ctx, abs, rawURL, sink); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := feedSnapshot(ctx, abs, rawURL, sink); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("snapshot watcher error")
		}
	}
}

// feedSnapshot only fails when the sink does
func feedSnapshot(ctx context.Context, path, rawURL string, sink PageSink) error {
	f, err := os.Open(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("snapshot not readable")
		return nil
	}
	page, added, err := ParsePage(f, rawURL)
	_ = f.Close()
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("skipping unparseable snapshot")
		return nil
	}

	log.Debug().Str("path", path).Int("added", len(added)).Msg("snapshot changed")
	return sink.Observe(ctx, page, added)
}
