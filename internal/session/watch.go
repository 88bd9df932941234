package session

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-hydrates store whenever the session file at path is written, replaced or removed,
// so a dashboard process follows logins and logouts made by the console CLI. onChange, when
// non-nil, runs after a re-hydration that changed the token; callers use it to drop data
// cached for the previous session.
// The parent directory is watched because FileStorage replaces the file by rename.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, store *Store, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if store.Hydrate() && onChange != nil {
					onChange()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("session: watch %s: %v", path, err)
		}
	}
}
