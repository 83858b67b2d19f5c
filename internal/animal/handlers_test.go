package animal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipinski/animal-service/internal/api"
	"github.com/clipinski/animal-service/internal/guard"
	"github.com/clipinski/animal-service/internal/types"
)

func newDispatcher(t *testing.T, animals *Collection) *api.Dispatcher {
	t.Helper()
	router := api.NewRouter()
	require.NoError(t, NewHandlers(animals).Register(router))
	return api.NewDispatcher(router, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetAllAnimals(t *testing.T) {
	d := newDispatcher(t, guard.New(Seed()))

	resp := d.Dispatch(context.Background(), types.NewRequest(http.MethodGet, "/animals", nil, nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)

	var got []Animal
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	assert.Len(t, got, 4)
	assert.Equal(t, Seed(), got)
}

func TestGetAnimalByID(t *testing.T) {
	d := newDispatcher(t, guard.New(Seed()))

	resp := d.Dispatch(context.Background(), types.NewRequest(http.MethodGet, "/animals/2", nil, nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.ContentTypeJSON, resp.ContentType)
	assert.JSONEq(t, `{"ID":2,"Name":"Whiskers","Species":"Cat","Age":2}`, string(resp.Body))
}

func TestGetAnimalNotFound(t *testing.T) {
	d := newDispatcher(t, guard.New(Seed()))
	const page = "<HTML><BODY><span>Requested animal not found.</span></BODY></HTML>"

	for _, target := range []string{"/animals/99", "/animals/abc", "/animals/-1", "/animals/2/extra"} {
		t.Run(target, func(t *testing.T) {
			resp := d.Dispatch(context.Background(), types.NewRequest(http.MethodGet, target, nil, nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, page, string(resp.Body))
		})
	}
}

func TestOtherMethodsNotRouted(t *testing.T) {
	d := newDispatcher(t, guard.New(Seed()))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		resp := d.Dispatch(context.Background(), types.NewRequest(method, "/animals", nil, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
		assert.Empty(t, resp.Body, method)
	}
}

func TestGetReflectsMutations(t *testing.T) {
	animals := guard.New(Seed())
	d := newDispatcher(t, animals)

	require.NoError(t, animals.WithLock(context.Background(), func(v *[]Animal) error {
		*v = append(*v, Animal{ID: 5, Name: "Shelly", Species: "Turtle", Age: 30})
		return nil
	}))

	resp := d.Dispatch(context.Background(), types.NewRequest(http.MethodGet, "/animals/5", nil, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "Shelly")
}

func TestGetGivesUpWhenCollectionIsBusy(t *testing.T) {
	animals := guard.New(Seed())
	d := newDispatcher(t, animals)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = animals.WithLock(context.Background(), func(v *[]Animal) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp := d.Dispatch(ctx, types.NewRequest(http.MethodGet, "/animals", nil, nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
