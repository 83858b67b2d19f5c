package animal

import (
	"context"
	"net/http"
	"strconv"

	"github.com/clipinski/animal-service/internal/api"
	"github.com/clipinski/animal-service/internal/guard"
	"github.com/clipinski/animal-service/internal/types"
)

const (
	Route       = "animals"
	notFoundMsg = "Requested animal not found."
)

type Collection = guard.Guard[[]Animal]

// Handlers serves the animals route from a guarded collection.
type Handlers struct {
	animals *Collection
}

func NewHandlers(animals *Collection) *Handlers {
	return &Handlers{animals: animals}
}

// Register adds the animal routes to router.
func (h *Handlers) Register(router *api.Router) error {
	return router.RegisterFunc(http.MethodGet, Route, h.Get)
}

// Get serves GET /animals and GET /animals/{id}. Encoding happens while the
// collection is locked so the body is a consistent snapshot.
func (h *Handlers) Get(ctx context.Context, req types.Request) (types.Response, error) {
	switch len(req.Segments) {
	case 2:
		return guard.Do(ctx, h.animals, func(animals *[]Animal) (types.Response, error) {
			return types.JSON(http.StatusOK, *animals)
		})
	case 3:
		id, err := strconv.Atoi(req.Segments[2])
		if err != nil {
			return types.Response{}, types.NotFound(notFoundMsg)
		}
		return guard.Do(ctx, h.animals, func(animals *[]Animal) (types.Response, error) {
			a, ok := find(*animals, id)
			if !ok {
				return types.Response{}, types.NotFound(notFoundMsg)
			}
			return types.JSON(http.StatusOK, a)
		})
	default:
		return types.Response{}, types.NotFound(notFoundMsg)
	}
}
