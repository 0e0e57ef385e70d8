package versync

import (
	"log/slog"
	"reflect"

	"github.com/drpcorg/versync/schema"
	"github.com/drpcorg/versync/utils"
	lru "github.com/hashicorp/golang-lru/v2"
)

type Options struct {
	// HistoryLimit is how many action log entries a set or mapping
	// keeps; older ranges get the full state.
	HistoryLimit int
	// CacheSize bounds the number of memoized replicators.
	CacheSize int
	// MaxLength bounds the sequence length a diff may ask for.
	MaxLength int
	Logger    utils.Logger
}

func (o *Options) SetDefaults() {
	if o.HistoryLimit == 0 {
		o.HistoryLimit = 64
	}
	if o.CacheSize == 0 {
		o.CacheSize = 4096
	}
	if o.MaxLength == 0 {
		o.MaxLength = 1 << 20
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
}

type memoKey struct {
	t reflect.Type
	p uintptr
}

// Context owns the schema registry and the replicators built from it.
// It is not safe for concurrent use: one goroutine produces diffs for
// a given target, apart from schema registration.
type Context struct {
	opts Options
	reg  *schema.Registry
	log  utils.Logger
	memo *lru.Cache[memoKey, Replicator]
}

func NewContext(opts Options) *Context {
	opts.SetDefaults()
	memo, _ := lru.New[memoKey, Replicator](opts.CacheSize)
	return &Context{
		opts: opts,
		reg:  schema.NewRegistry(opts.Logger),
		log:  opts.Logger,
		memo: memo,
	}
}

func (c *Context) Registry() *schema.Registry {
	return c.reg
}

// Register declares the schema of the prototype's struct type.
func (c *Context) Register(prototype any, decl schema.Decl) (*schema.Mark, error) {
	return c.reg.Register(prototype, decl)
}

func (c *Context) Logger() utils.Logger {
	return c.log
}

func (c *Context) Options() Options {
	return c.opts
}

func targetValue(target any) (reflect.Value, bool) {
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return v.Elem(), true
	case reflect.Map:
		return v, true
	}
	return reflect.Value{}, false
}

// Create builds a new replicator for target, a pointer or a map.
// It returns nil when no replicator fits: for an empty container of
// interface values without a hint, for instance.
func (c *Context) Create(target any, hint *schema.ObjectOption) Replicator {
	v, ok := targetValue(target)
	if !ok {
		c.log.Warn("create: "+ErrNotAddressable.Error(), "type", reflect.TypeOf(target))
		return nil
	}
	n := c.build(v, hint)
	if n == nil {
		return nil
	}
	return n
}

func memoOf(target any) (memoKey, bool) {
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if !v.IsNil() {
			return memoKey{t: v.Type(), p: v.Pointer()}, true
		}
	}
	return memoKey{}, false
}

// Replicator returns the replicator of target, creating it on the
// first call. Calls for the same target return the same replicator
// as long as it stays in the cache.
func (c *Context) Replicator(target any, hint ...*schema.ObjectOption) Replicator {
	var h *schema.ObjectOption
	if len(hint) > 0 {
		h = hint[0]
	}
	key, ok := memoOf(target)
	if !ok {
		return c.Create(target, h)
	}
	if rep, ok := c.memo.Get(key); ok {
		return rep
	}
	rep := c.Create(target, h)
	if rep != nil {
		c.memo.Add(key, rep)
	}
	return rep
}

// Forget drops the memoized replicator of target.
func (c *Context) Forget(target any) {
	if key, ok := memoOf(target); ok {
		c.memo.Remove(key)
	}
}
