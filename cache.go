package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CorpusCache holds the live Matcher and rebuilds it when the corpus file changes
type CorpusCache struct {
	sync.RWMutex
	matcher     *Matcher
	lastErr     error
	corpusPath  string
	opts        []Option
	watcher     *fsnotify.Watcher
	settleDelay time.Duration
}

// NewCorpusCache creates a cache for corpusPath. opts are applied to every
// Matcher the cache builds. The cache answers with an empty corpus until Load.
func NewCorpusCache(corpusPath string, opts ...Option) *CorpusCache {
	return &CorpusCache{
		matcher:     NewMatcher(emptyCorpus(corpusPath), opts...),
		corpusPath:  corpusPath,
		opts:        opts,
		settleDelay: 100 * time.Millisecond,
	}
}

// Load performs the startup load. A failed load installs an empty corpus and
// returns the *LoadError so the host can warn; it is never fatal.
func (cc *CorpusCache) Load() error {
	corpus, err := LoadCorpus(cc.corpusPath)

	cc.Lock()
	cc.matcher = NewMatcher(corpus, cc.opts...)
	cc.lastErr = err
	cc.Unlock()

	if err != nil {
		log.Printf("Warning: %v (answering with fallback only)", err)
	}
	return err
}

// Reload re-reads the corpus file and swaps in a new Matcher.
// If the file cannot be loaded the current Matcher stays in place.
func (cc *CorpusCache) Reload() (*Corpus, error) {
	corpus, err := LoadCorpus(cc.corpusPath)
	if err != nil {
		cc.Lock()
		cc.lastErr = err
		current := cc.matcher.Corpus()
		cc.Unlock()

		log.Printf("Warning: reload failed, keeping %d categories: %v", len(current.Categories), err)
		return current, err
	}

	cc.Lock()
	cc.matcher = NewMatcher(corpus, cc.opts...)
	cc.lastErr = nil
	cc.Unlock()

	return corpus, nil
}

// Matcher returns the current Matcher.
func (cc *CorpusCache) Matcher() *Matcher {
	cc.RLock()
	defer cc.RUnlock()
	return cc.matcher
}

// LastError returns the error of the most recent load, or nil.
func (cc *CorpusCache) LastError() error {
	cc.RLock()
	defer cc.RUnlock()
	return cc.lastErr
}

// StartWatcher begins watching the directory holding the corpus file.
func (cc *CorpusCache) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(cc.corpusPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch corpus directory: %w", err)
	}

	cc.Lock()
	cc.watcher = watcher
	cc.Unlock()

	log.Printf("File watcher initialized for: %s", dir)
	return nil
}

// WatchFiles reloads the corpus whenever its file is written or replaced.
// It returns when ctx is done or the watcher is closed.
func (cc *CorpusCache) WatchFiles(ctx context.Context) {
	cc.RLock()
	watcher := cc.watcher
	cc.RUnlock()
	if watcher == nil {
		return
	}

	log.Println("File watcher started")
	target := filepath.Base(cc.corpusPath)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != target {
				continue
			}

			// Small delay to ensure file write is complete
			select {
			case <-time.After(cc.settleDelay):
			case <-ctx.Done():
				return
			}

			log.Printf("File changed: %s, reloading corpus", event.Name)
			corpus, err := cc.Reload()
			if err == nil {
				log.Printf("Corpus reloaded: %d categories", len(corpus.Categories))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

func (cc *CorpusCache) Close() {
	cc.Lock()
	defer cc.Unlock()

	if cc.watcher != nil {
		cc.watcher.Close()
		cc.watcher = nil
	}
}

// isLoadError reports whether err came from reading or parsing a corpus file
func isLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}
