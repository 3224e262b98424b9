package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cfoust/odb/pkg/fspath"
	"github.com/cfoust/odb/pkg/srsc"
	"github.com/cfoust/odb/pkg/utils"

	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Handle identifies a database within the registry that loaded it.
type Handle uint32

// LoadEvent is published once for every LoadDatabasePath call that
// succeeds.
type LoadEvent struct {
	Path string
	// How many dependency hops away from the database that was asked for
	Depth int
	// Whether the database had already been loaded
	Cached bool
}

type options struct {
	logger              zerolog.Logger
	maxDatabaseVersion  uint32
	maxContainerVersion uint16
	modelSearchWindow   int
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMaxDatabaseVersion(version uint32) Option {
	return func(o *options) {
		o.maxDatabaseVersion = version
	}
}

func WithMaxContainerVersion(version uint16) Option {
	return func(o *options) {
		o.maxContainerVersion = version
	}
}

// WithModelSearchWindow sets how many directory entries after a model's name
// record are searched for its other records.
func WithModelSearchWindow(window int) Option {
	return func(o *options) {
		o.modelSearchWindow = window
	}
}

// Registry owns every database it has loaded and makes sure each physical
// definition file is loaded at most once, however its path is spelled.
type Registry struct {
	logger              zerolog.Logger
	maxDatabaseVersion  uint32
	maxContainerVersion uint16
	modelSearchWindow   int

	// Guards databases and byPath
	mutex     deadlock.RWMutex
	databases []*Database
	byPath    map[string]Handle
	closed    bool

	// Held for the whole construction of a database, including its
	// dependencies
	loadMutex deadlock.Mutex
	// Paths currently being constructed, outermost first
	chain []fspath.Path

	events *utils.Topic[LoadEvent]
}

func NewRegistry(opts ...Option) *Registry {
	settings := options{
		logger:              log.Logger,
		maxDatabaseVersion:  MAX_DATABASE_VERSION,
		maxContainerVersion: srsc.MAX_VERSION,
		modelSearchWindow:   DEFAULT_MODEL_SEARCH_WINDOW,
	}
	for _, apply := range opts {
		apply(&settings)
	}

	return &Registry{
		logger:              settings.logger,
		maxDatabaseVersion:  settings.maxDatabaseVersion,
		maxContainerVersion: settings.maxContainerVersion,
		modelSearchWindow:   settings.modelSearchWindow,
		byPath:              make(map[string]Handle),
		events:              utils.NewTopic[LoadEvent](64),
	}
}

// Events reports every successful load. Subscribers that fall behind miss
// events rather than stalling loads.
func (r *Registry) Events() *utils.Subscriber[LoadEvent] {
	return r.events.Subscribe()
}

// DroppedEvents counts load events a subscriber missed because its buffer
// was full.
func (r *Registry) DroppedEvents() int64 {
	return r.events.Dropped()
}

// identify turns a path into the key databases are registered under.
func identify(path fspath.Path) (fspath.Path, error) {
	absolute, err := path.Absolute()
	if err != nil {
		return fspath.Path{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	return absolute.AdjustCase(), nil
}

func (r *Registry) lookup(path fspath.Path) opt.Option[*Database] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	handle, ok := r.byPath[path.Key()]
	if !ok {
		return opt.None[*Database]()
	}
	return opt.Some(r.databases[handle])
}

// Lookup returns the database registered for path without loading it.
func (r *Registry) Lookup(path string) opt.Option[*Database] {
	identity, err := identify(fspath.New(path))
	if err != nil {
		return opt.None[*Database]()
	}
	return r.lookup(identity)
}

func (r *Registry) Get(handle Handle) (*Database, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if int(handle) >= len(r.databases) {
		return nil, fmt.Errorf("%w: no database with handle %d", ErrNotFound, handle)
	}
	return r.databases[handle], nil
}

// Databases returns every loaded database in load order.
func (r *Registry) Databases() []*Database {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*Database, len(r.databases))
	copy(result, r.databases)
	return result
}

// Logger is the logger the registry and its databases write to.
func (r *Registry) Logger() zerolog.Logger {
	return r.logger
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.databases)
}

// LoadDatabase loads the definition file at path along with its
// dependencies, or returns the instance loaded earlier.
func (r *Registry) LoadDatabase(path string) (*Database, error) {
	return r.LoadDatabasePath(fspath.New(path), 0)
}

// LoadDatabasePath is LoadDatabase for an already parsed path. depth is only
// reported in load events.
func (r *Registry) LoadDatabasePath(path fspath.Path, depth int) (*Database, error) {
	identity, err := identify(path)
	if err != nil {
		return nil, err
	}

	if existing := r.lookup(identity); !opt.IsNone(existing) {
		r.publish(existing.Value, depth, true)
		return existing.Value, nil
	}

	r.loadMutex.Lock()
	defer r.loadMutex.Unlock()

	return r.load(identity, depth)
}

// load must be called with loadMutex held.
func (r *Registry) load(identity fspath.Path, depth int) (*Database, error) {
	// Someone may have loaded it while we waited for the lock
	if existing := r.lookup(identity); !opt.IsNone(existing) {
		r.publish(existing.Value, depth, true)
		return existing.Value, nil
	}

	r.mutex.RLock()
	closed := r.closed
	r.mutex.RUnlock()
	if closed {
		return nil, fmt.Errorf("%w: registry is closed", ErrIO)
	}

	for _, loading := range r.chain {
		if loading.Equal(identity) {
			return nil, fmt.Errorf("%w: dependency cycle: %s", ErrMalformed, r.describeCycle(identity))
		}
	}

	r.chain = append(r.chain, identity)
	defer func() {
		r.chain = r.chain[:len(r.chain)-1]
	}()

	database, err := r.construct(identity, depth)
	if err != nil {
		return nil, fmt.Errorf("could not load database %s: %w", identity, err)
	}

	r.mutex.Lock()
	database.handle = Handle(len(r.databases))
	r.databases = append(r.databases, database)
	r.byPath[identity.Key()] = database.handle
	r.mutex.Unlock()

	r.logger.Debug().
		Str("path", identity.String()).
		Int("depth", depth).
		Int("dependencies", len(database.dependencies)).
		Msg("loaded database")

	r.publish(database, depth, false)
	return database, nil
}

func (r *Registry) describeCycle(identity fspath.Path) string {
	names := make([]string, 0, len(r.chain)+1)
	for _, path := range r.chain {
		names = append(names, path.File())
	}
	names = append(names, identity.File())
	return strings.Join(names, " -> ")
}

func (r *Registry) publish(database *Database, depth int, cached bool) {
	r.events.Publish(LoadEvent{
		Path:   database.path.String(),
		Depth:  depth,
		Cached: cached,
	})
}

// construct parses the definition file, loads its dependencies and opens
// whichever per-kind containers exist.
func (r *Registry) construct(path fspath.Path, depth int) (*Database, error) {
	file, err := os.Open(path.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	definition, err := ParseDefinition(file)
	file.Close()
	if err != nil {
		return nil, err
	}

	if definition.Version > r.maxDatabaseVersion {
		return nil, fmt.Errorf(
			"%w: database version %d, newest supported is %d",
			ErrUnsupported,
			definition.Version,
			r.maxDatabaseVersion,
		)
	}

	database := &Database{
		registry:     r,
		path:         path,
		version:      definition.Version,
		dependencies: make(map[uint16]Handle),
		logger:       r.logger.With().Str("database", path.File()).Logger(),
	}

	dir := path.Dir()
	for _, line := range definition.Dependencies {
		dependencyPath := fspath.NewRelative(line.Path, dir).AdjustCase()

		// Counted towards the declared total, but never loaded
		if dependencyPath.Equal(path) {
			database.logger.Warn().
				Int("line", line.Line).
				Uint16("index", line.Index).
				Msg("database lists itself as a dependency, skipping")
			continue
		}

		dependency, err := r.load(dependencyPath, depth+1)
		if err != nil {
			database.close()
			return nil, fmt.Errorf("dependency %d (%s): %w", line.Index, line.Path, err)
		}

		database.logger.Debug().
			Uint16("index", line.Index).
			Str("dependency", dependency.ShortName()).
			Msg("dependency")
		database.dependencies[line.Index] = dependency.handle
	}

	for _, kind := range Kinds() {
		containerPath := path.WithExt(kind.Extension()).AdjustCase()
		found, err := srsc.TryOpen(
			containerPath.String(),
			srsc.WithMaxVersion(r.maxContainerVersion),
		)
		if err != nil {
			database.close()
			return nil, wrapContainer(err)
		}

		if opt.IsNone(found) {
			database.logger.Debug().Str("kind", kind.String()).Msg("no container")
			continue
		}

		database.logger.Debug().
			Str("kind", kind.String()).
			Int("records", found.Value.Len()).
			Msg("opened container")

		database.attach(kind, found.Value)
	}

	return database, nil
}

// Close closes every container of every loaded database. Assets that were
// already loaded stay usable, but nothing new can be loaded.
func (r *Registry) Close() error {
	r.loadMutex.Lock()
	defer r.loadMutex.Unlock()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, database := range r.databases {
		errs = append(errs, database.close())
	}
	r.events.Close()

	return errors.Join(errs...)
}
