package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MountPather is implemented by settings types that live below the root of
// the tree by default.
type MountPather interface {
	RootMountPath() string
}

// NestKeyer is implemented by settings types whose sub-tree must be wrapped
// under one more key before decoding.
type NestKeyer interface {
	SettingsNestKey() string
}

// Defaulter is implemented by settings types that fill in their own defaults
// before data is decoded onto them.
type Defaulter interface {
	SetDefaults()
}

// ExtraForbidder is implemented by settings types that reject keys without a
// matching field.
type ExtraForbidder interface {
	ForbidExtra() bool
}

// GetOption adjusts where Get reads its data from.
type GetOption func(*getOptions)

type getOptions struct {
	mountPath    string
	hasMountPath bool
	nestKey      string
	hasNestKey   bool
}

// WithMountPath reads the typed settings from the sub-tree at path instead of
// the type's own mount path. The empty path is the root.
func WithMountPath(path string) GetOption {
	return func(o *getOptions) {
		o.mountPath = path
		o.hasMountPath = true
	}
}

// WithNestKey wraps the sub-tree under key before decoding. The empty key
// disables nesting.
func WithNestKey(key string) GetOption {
	return func(o *getOptions) {
		o.nestKey = key
		o.hasNestKey = true
	}
}

type cacheKey struct {
	typ       reflect.Type
	mountPath string
	nestKey   string
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s@%s#%s", typeName(k.typ), k.mountPath, k.nestKey)
}

type resolved struct {
	root *Settings
	tree Value
}

// Resolver merges the configured sources into one settings tree and hands out
// typed views of it. Results are computed once and shared until Reset.
type Resolver struct {
	sources *Sources
	logger  *zap.Logger

	group singleflight.Group

	mu         sync.RWMutex
	state      *resolved
	typed      map[cacheKey]any
	generation uint64
}

// NewResolver creates a Resolver reading from sources.
func NewResolver(sources *Sources, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sources == nil {
		sources = NewSources(logger)
	}
	return &Resolver{
		sources: sources,
		logger:  logger.Named("config"),
		typed:   make(map[cacheKey]any),
	}
}

// Sources returns the source manager the resolver reads from.
func (r *Resolver) Sources() *Sources {
	return r.sources
}

// Root returns the root settings. Every call until Reset returns the same
// pointer; callers must treat it as read-only.
func (r *Resolver) Root() (*Settings, error) {
	st, err := r.load()
	if err != nil {
		return nil, err
	}
	return st.root, nil
}

// Tree returns the merged settings tree the root was decoded from.
func (r *Resolver) Tree() (Value, error) {
	st, err := r.load()
	if err != nil {
		return Value{}, err
	}
	return st.tree, nil
}

// Reset drops the root and every typed view, so the next call re-reads all
// sources.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nil
	r.typed = make(map[cacheKey]any)
	r.generation++
}

func (r *Resolver) load() (*resolved, error) {
	r.mu.RLock()
	st := r.state
	r.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	v, err, _ := r.group.Do("root", func() (any, error) {
		r.mu.RLock()
		st, gen := r.state, r.generation
		r.mu.RUnlock()
		if st != nil {
			return st, nil
		}

		st, err := r.build()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.generation == gen {
			r.state = st
		}
		r.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*resolved), nil
}

func (r *Resolver) build() (*resolved, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load default settings: %w", err)
	}

	order := r.sources.MergeOrder()
	names := make([]string, 0, len(order))
	for _, src := range order {
		data, err := src.Load()
		if err != nil {
			return nil, err
		}
		if err := k.Load(confmap.Provider(data, ""), nil); err != nil {
			return nil, fmt.Errorf("merge %s: %w", src.Name(), err)
		}
		names = append(names, src.Name())
	}

	tree := FromAny(k.Raw())
	root := DefaultSettings()
	if err := decode(tree.Interface(), &root, false); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, typeName(reflect.TypeFor[Settings]()), err)
	}
	if err := validateStruct(&root); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrValidation, typeName(reflect.TypeFor[Settings]()), err)
	}

	r.logger.Debug("settings resolved",
		zap.Strings("sources", names),
		zap.String("entrypoint", root.Entrypoint),
	)
	return &resolved{root: &root, tree: tree}, nil
}

// Get returns the settings of type T decoded from the merged tree. The data
// comes from the sub-tree at the type's mount path (or WithMountPath),
// optionally nested under a key, with missing parts treated as empty maps.
// Repeated calls with the same type and location return the same pointer
// until Reset. Get[Settings] always returns Root.
func Get[T any](r *Resolver, opts ...GetOption) (*T, error) {
	typ := reflect.TypeFor[T]()
	if typ == reflect.TypeFor[Settings]() {
		root, err := r.Root()
		if err != nil {
			return nil, err
		}
		return any(root).(*T), nil
	}

	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	probe := any(new(T))
	if !o.hasMountPath {
		if mp, ok := probe.(MountPather); ok {
			o.mountPath = mp.RootMountPath()
		}
	}
	if !o.hasNestKey {
		if nk, ok := probe.(NestKeyer); ok {
			o.nestKey = nk.SettingsNestKey()
		}
	}

	path, err := ParseMountPath(o.mountPath)
	if err != nil {
		return nil, err
	}
	key := cacheKey{typ: typ, mountPath: path.String(), nestKey: o.nestKey}

	r.mu.RLock()
	cached, ok := r.typed[key]
	r.mu.RUnlock()
	if ok {
		return cached.(*T), nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		r.mu.RLock()
		cached, ok := r.typed[key]
		gen := r.generation
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		st, err := r.load()
		if err != nil {
			return nil, err
		}
		out, err := decodeTyped[T](st.tree, path, o.nestKey)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.generation != gen {
			return out, nil
		}
		if existing, ok := r.typed[key]; ok {
			return existing, nil
		}
		r.typed[key] = out
		r.logger.Debug("typed settings resolved",
			zap.String("type", typeName(typ)),
			zap.String("mount_path", key.mountPath),
			zap.String("nest_key", key.nestKey),
		)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func decodeTyped[T any](tree Value, path Path, nestKey string) (*T, error) {
	sub := path.Lookup(tree)
	if sub.IsNull() {
		sub = EmptyMap()
	}
	if nestKey != "" {
		sub = Nest(nestKey, sub)
	}

	out := new(T)
	strict := false
	if d, ok := any(out).(Defaulter); ok {
		d.SetDefaults()
	}
	if f, ok := any(out).(ExtraForbidder); ok {
		strict = f.ForbidExtra()
	}

	name := typeName(reflect.TypeFor[T]())
	if err := decode(sub.Interface(), out, strict); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
	}
	if err := validateStruct(out); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrValidation, name, err)
	}
	return out, nil
}
