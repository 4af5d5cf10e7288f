// Package runcontext provides a context.Context that also carries a logger, so that a contextual
// logger can be passed around with type-safety alongside cancellation.
package runcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Context struct {
	context.Context
	logrus.FieldLogger
}

// Background creates an empty context that logs through the standard logrus logger.
// It is analogous to context.Background()
func Background() *Context {
	return &Context{
		Context:     context.Background(),
		FieldLogger: logrus.NewEntry(logrus.StandardLogger()),
	}
}

// New returns a context that encapsulates both a go context and a logger
func New(ctx context.Context, log logrus.FieldLogger) *Context {
	return &Context{
		Context:     ctx,
		FieldLogger: log,
	}
}

// WithCancel returns a copy of parent with a new Done channel. It is analogous to context.WithCancel()
func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return &Context{
		Context:     c,
		FieldLogger: parent.FieldLogger,
	}, cancel
}

// WithLogField returns a copy of parent with the supplied key-value added to the logger
func WithLogField(parent *Context, key string, val interface{}) *Context {
	return &Context{
		Context:     parent.Context,
		FieldLogger: parent.FieldLogger.WithField(key, val),
	}
}

// WithLogFields returns a copy of parent with the supplied key-values added to the logger
func WithLogFields(parent *Context, fields logrus.Fields) *Context {
	return &Context{
		Context:     parent.Context,
		FieldLogger: parent.FieldLogger.WithFields(fields),
	}
}

// ErrGroup returns a new Error Group and an associated Context derived from ctx.
// It is analogous to errgroup.WithContext(ctx)
func ErrGroup(ctx *Context) (*errgroup.Group, *Context) {
	group, goctx := errgroup.WithContext(ctx.Context)
	return group, &Context{
		Context:     goctx,
		FieldLogger: ctx.FieldLogger,
	}
}
