package main

import (
	"context"
	"fmt"
	"io"

	"github.com/campfirehq/roadsync/internal/forum"
)

// logForum is the CLI's forum backend: an in-process forum that prints
// every state-changing operation, so a sync run shows exactly what would
// happen against the chat platform.
type logForum struct {
	inner *forum.MemoryForum
	out   io.Writer
}

func newLogForum(out io.Writer) *logForum {
	return &logForum{inner: forum.NewMemoryForum(), out: out}
}

func (l *logForum) logf(format string, args ...any) {
	fmt.Fprintf(l.out, "[forum] "+format+"\n", args...)
}

func (l *logForum) CreateThread(ctx context.Context, forumID, title, body string, tagIDs []string) (string, error) {
	id, err := l.inner.CreateThread(ctx, forumID, title, body, tagIDs)
	if err == nil {
		l.logf("create thread %s in %s: %q (tags %v)", id, forumID, title, tagIDs)
	}
	return id, err
}

func (l *logForum) EditThread(ctx context.Context, threadID string, title *string, tagIDs []string) error {
	err := l.inner.EditThread(ctx, threadID, title, tagIDs)
	if err == nil {
		if title != nil {
			l.logf("edit thread %s: title %q", threadID, *title)
		}
		if tagIDs != nil {
			l.logf("edit thread %s: tags %v", threadID, tagIDs)
		}
	}
	return err
}

func (l *logForum) EditStarterMessage(ctx context.Context, threadID, body string) error {
	err := l.inner.EditStarterMessage(ctx, threadID, body)
	if err == nil {
		l.logf("edit starter message of %s (%d chars)", threadID, len(body))
	}
	return err
}

func (l *logForum) StarterAuthoredByBot(ctx context.Context, threadID string) (bool, error) {
	return l.inner.StarterAuthoredByBot(ctx, threadID)
}

func (l *logForum) SetArchived(ctx context.Context, threadID string, archived bool) error {
	err := l.inner.SetArchived(ctx, threadID, archived)
	if err == nil {
		l.logf("set archived=%v on %s", archived, threadID)
	}
	return err
}

func (l *logForum) Tags(ctx context.Context, forumID string) ([]forum.Tag, error) {
	return l.inner.Tags(ctx, forumID)
}

func (l *logForum) ThreadState(ctx context.Context, threadID string) (*forum.ThreadState, error) {
	return l.inner.ThreadState(ctx, threadID)
}

var _ forum.API = (*logForum)(nil)
