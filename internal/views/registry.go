// Package views keeps mounted expense managers addressable by an opaque view
// ID so that follow-up requests reach the same state.
package views

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	"exptracker/internal/cache"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
	"exptracker/internal/manager"
	"exptracker/internal/session"
)

// Config bounds how many views are kept and for how long an idle view lives.
type Config struct {
	MaxViews int
	TTL      time.Duration
}

// Registry creates and looks up mounted managers.
type Registry struct {
	api    expenses.API
	logger *log.Logger
	views  *cache.LRUCache[*view]
}

// view binds a manager to the session that mounted it. owner is the SHA-256
// of the token, or zero for a view mounted without one.
type view struct {
	manager *manager.Manager
	owner   [sha256.Size]byte
}

func ownerOf(storage session.Storage) [sha256.Size]byte {
	var owner [sha256.Size]byte
	if storage == nil {
		return owner
	}
	if token, ok := storage.Get(session.TokenKey); ok {
		owner = sha256.Sum256([]byte(token))
	}
	return owner
}

func (v *view) ownedBy(storage session.Storage) bool {
	owner := ownerOf(storage)
	return subtle.ConstantTimeCompare(v.owner[:], owner[:]) == 1
}

func NewRegistry(api expenses.API, cfg Config, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxViews < 1 {
		cfg.MaxViews = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	r := &Registry{
		api:    api,
		logger: logger.WithComponent(log.ComponentViews),
		views:  cache.NewLRUCache[*view](cfg.MaxViews, cfg.TTL),
	}
	r.views.OnEvict(func(id string, _ *view) {
		r.logger.Debug("View evicted", log.FieldViewID, id)
	})
	return r
}

// Mount creates a manager, mounts it against storage and registers it.
func (r *Registry) Mount(ctx context.Context, storage session.Storage) (string, *manager.Manager) {
	id := uuid.NewString()
	m := manager.New(r.api, r.logger)
	m.Mount(ctx, storage)
	r.views.Set(id, &view{manager: m, owner: ownerOf(storage)})

	r.logger.DebugContext(ctx, "View mounted",
		log.FieldViewID, id, log.FieldOperation, log.OpMount)
	return id, m
}

// Get returns the manager registered under id, refreshing its TTL. A view
// is only visible to the session that mounted it: a missing or different
// token in storage is reported as a miss.
func (r *Registry) Get(id string, storage session.Storage) (*manager.Manager, bool) {
	v, ok := r.lookup(id, storage)
	if !ok {
		return nil, false
	}
	return v.manager, true
}

// Drop forgets a view owned by storage's session, e.g. on logout.
func (r *Registry) Drop(id string, storage session.Storage) {
	if _, ok := r.lookup(id, storage); ok {
		r.views.Delete(id)
	}
}

func (r *Registry) lookup(id string, storage session.Storage) (*view, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	v, ok := r.views.Get(id)
	if !ok {
		return nil, false
	}
	if !v.ownedBy(storage) {
		r.logger.Debug("View requested by another session", log.FieldViewID, id)
		return nil, false
	}
	return v, true
}

// Len reports the number of live views.
func (r *Registry) Len() int {
	return r.views.Size()
}

// Cleaner exposes the underlying cache for periodic expiry.
func (r *Registry) Cleaner() cache.Cleaner {
	return r.views
}
