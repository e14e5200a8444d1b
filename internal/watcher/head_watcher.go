package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// headWatcher implements CheckoutWatcher by watching the HEAD file of a git
// repository. Any change of the checked out ref or commit is a checkout.
type headWatcher struct {
	gitDir   string
	headPath string
	watcher  *fsnotify.Watcher
	head     string
	mu       sync.Mutex // Protects head
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewCheckoutWatcher creates a CheckoutWatcher for the repository whose
// metadata lives in gitDir (usually <root>/.git).
func NewCheckoutWatcher(gitDir string) (CheckoutWatcher, error) {
	headPath := filepath.Join(gitDir, "HEAD")
	head, err := readHead(headPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", headPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &headWatcher{
		gitDir:   gitDir,
		headPath: headPath,
		watcher:  watcher,
		head:     head,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins monitoring HEAD.
func (hw *headWatcher) Start(ctx context.Context, callback func(from, to string)) error {
	// HEAD is replaced atomically by git, so watch its directory.
	if err := hw.watcher.Add(hw.gitDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", hw.gitDir, err)
	}
	hw.started = true
	go hw.watch(ctx, callback)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (hw *headWatcher) Stop() error {
	var err error
	hw.stopOnce.Do(func() {
		close(hw.stopCh)
		if hw.started {
			<-hw.doneCh
		}
		err = hw.watcher.Close()
	})
	return err
}

func (hw *headWatcher) watch(ctx context.Context, callback func(from, to string)) {
	defer close(hw.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hw.stopCh:
			return

		case event, ok := <-hw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != hw.headPath || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			hw.check(callback)

		case err, ok := <-hw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Checkout watcher error: %v", err)
		}
	}
}

// check re-reads HEAD and reports a change.
func (hw *headWatcher) check(callback func(from, to string)) {
	head, err := readHead(hw.headPath)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", hw.headPath, err)
		return
	}
	if head == "" {
		// Caught mid-write; the next event carries the content.
		return
	}

	hw.mu.Lock()
	from := hw.head
	hw.head = head
	hw.mu.Unlock()
	if from == head {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: checkout callback panic: %v", r)
		}
	}()
	callback(from, head)
}

func readHead(headPath string) (string, error) {
	content, err := os.ReadFile(headPath)
	if err != nil {
		return "", err
	}
	return parseHead(content), nil
}

// parseHead returns the branch name for a symbolic HEAD and the commit id
// for a detached one.
func parseHead(content []byte) string {
	line := strings.TrimSpace(string(content))
	if ref, ok := strings.CutPrefix(line, "ref: "); ok {
		return strings.TrimPrefix(strings.TrimSpace(ref), "refs/heads/")
	}
	return line
}
