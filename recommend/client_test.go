package recommend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binrewards/loyalty-engine/recommend"
)

func testRequest() recommend.Request {
	return recommend.Request{Name: "Eco Enthusiast", Tier: "BRONZE", LifetimeEarned: 750, Balance: 750}
}

func newClient(url string) *recommend.Client {
	return recommend.NewClient(url, "test-key", "test-model", 2*time.Second, zerolog.Nop())
}

func TestGenerate_LiveResponse(t *testing.T) {
	// GIVEN: A service returning a well-formed suggestion
	// THEN: The suggestion comes back verbatim, marked live

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recommend.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Eco Enthusiast", req.Name)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(recommend.Reward{
			Title:       "Priority Bin Pick-up",
			Description: "Your bins collected first on route day.",
			Cost:        900,
			Reasoning:   "You scan more than anyone on your street.",
		})
	}))
	defer srv.Close()

	reward, live, err := newClient(srv.URL).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "Priority Bin Pick-up", reward.Title)
	assert.EqualValues(t, 900, reward.Cost)
}

func TestGenerate_FallbackPaths(t *testing.T) {
	// Every failure mode degrades to the literal fixed fallback.
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title": "oops"`))
		},
		"missing field": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title": "X", "description": "Y", "cost": 800}`))
		},
		"cost below range": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title": "X", "description": "Y", "cost": 100, "reasoning": "Z"}`))
		},
		"cost above range": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title": "X", "description": "Y", "cost": 9000, "reasoning": "Z"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			reward, live, err := newClient(srv.URL).Generate(context.Background(), testRequest())
			require.NoError(t, err)
			assert.False(t, live)
			assert.Equal(t, recommend.Fallback, reward)
		})
	}
}

func TestGenerate_FallbackIsRedeemable(t *testing.T) {
	// The fallback is a valid reward in its own right.
	assert.Equal(t, "Rare Eco-Seeds Kit", recommend.Fallback.Title)
	assert.EqualValues(t, 1200, recommend.Fallback.Cost)
	assert.NotEmpty(t, recommend.Fallback.Description)
	assert.NotEmpty(t, recommend.Fallback.Reasoning)
}

func TestGenerate_NoServiceConfigured(t *testing.T) {
	reward, live, err := newClient("").Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, live)
	assert.Equal(t, recommend.Fallback, reward)
}

func TestGenerate_CancelledContextPropagates(t *testing.T) {
	// A cancelled fetch (sign-out) must not deliver anything, not even
	// the fallback.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, _, err := newClient(srv.URL).Generate(ctx, testRequest())
	assert.ErrorIs(t, err, context.Canceled)
}
