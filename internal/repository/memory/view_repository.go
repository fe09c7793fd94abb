package memory

import (
	"time"

	"athena-be/pkg/athena/conversation"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ViewRepository keeps one conversation controller per user. Views are
// disposable: an expired view is rebuilt from the store on next use.
type ViewRepository struct {
	cache *cache.Cache
}

func NewViewRepository(ttl time.Duration) *ViewRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ViewRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// GetOrCreate returns the user's controller, building it with create when
// none is cached. Each access extends the view's lifetime.
func (r *ViewRepository) GetOrCreate(userId uuid.UUID, create func() *conversation.Controller) *conversation.Controller {
	key := userId.String()
	if x, found := r.cache.Get(key); found {
		ctrl := x.(*conversation.Controller)
		r.cache.Set(key, ctrl, cache.DefaultExpiration)
		return ctrl
	}

	ctrl := create()
	if err := r.cache.Add(key, ctrl, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent create
		if x, found := r.cache.Get(key); found {
			return x.(*conversation.Controller)
		}
		r.cache.Set(key, ctrl, cache.DefaultExpiration)
	}
	return ctrl
}
