package daemon

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/entrhq/cc-hotswap/pkg/logging"
	"github.com/entrhq/cc-hotswap/pkg/store"
)

// Watcher reports accounts whose snapshot appears in the state directory
// while the daemon runs, typically written by a concurrent --init.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	logger  *logging.Logger

	added    chan string
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching dir. Call Stop to release it.
func NewWatcher(dir string, logger *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		dir:     dir,
		logger:  logger,
		added:   make(chan string),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Added delivers account names as their snapshots appear. The same name
// may be delivered more than once.
func (w *Watcher) Added() <-chan string {
	return w.added
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		if err := w.watcher.Close(); err != nil {
			w.logger.Warnf("WARNING: closing account watcher: %v", err)
		}
	})
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			account, ok := accountFromEvent(event)
			if !ok {
				continue
			}
			select {
			case w.added <- account:
			case <-w.stopCh:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("WARNING: account watcher: %v", err)
		}
	}
}

// accountFromEvent picks out snapshot creations. Atomic writes land as a
// rename of a hidden temp file, which shows up as Create on the target.
func accountFromEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	return store.AccountFromSnapshot(event.Name)
}
