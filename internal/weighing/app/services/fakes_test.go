package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
)

type fakeRecipes struct {
	mu      sync.Mutex
	recipes map[string]models.Recipe
	fail    map[string]error
	calls   int
}

func newFakeRecipes() *fakeRecipes {
	return &fakeRecipes{
		recipes: map[string]models.Recipe{
			"1001": {Code: "1001", Name: "Paracetamol 500mg", Materials: []models.MaterialQuantity{
				{Material: "AMIDO", Quantity: 1.1},
				{Material: "LACTOSE (200)", Quantity: 2.25},
				{Material: "ESTEARATO DE MAGNESIO", Quantity: 0.0125},
			}},
			"1002": {Code: "1002", Name: "Dipirona 1g", Materials: []models.MaterialQuantity{
				{Material: "AMIDO", Quantity: 0.2},
				{Material: "TALCO", Quantity: 0.333},
			}},
			"1003": {Code: "1003", Name: "Ibuprofeno 400mg", Materials: []models.MaterialQuantity{
				{Material: "CELULOSE MIC (TIPO200)", Quantity: 3.0004},
				{Material: "TALCO", Quantity: 0.1},
				{Material: "Dosagem Automática B", Quantity: 0.5},
			}},
		},
		fail: map[string]error{},
	}
}

func (f *fakeRecipes) LookupRecipe(ctx context.Context, code string) (models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err := ctx.Err(); err != nil {
		return models.Recipe{}, err
	}
	if err, ok := f.fail[code]; ok {
		return models.Recipe{}, err
	}
	r, ok := f.recipes[code]
	if !ok {
		return models.Recipe{}, core.ErrRecipeNotFound
	}
	return r, nil
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
	failGet bool
	sets    int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", false, errors.New("store unavailable")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failSet {
		return errors.New("store unavailable")
	}
	s.sets++
	s.data[key] = value
	return nil
}

func (s *memStore) Close() error { return nil }

type sentNotification struct {
	title     string
	body      string
	fireAfter time.Duration
	immediate bool
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	denied  bool
	failNow bool
}

func (n *fakeNotifier) RequestPermission(context.Context) (bool, error) {
	return !n.denied, nil
}

func (n *fakeNotifier) Notify(_ context.Context, title, body string, fireAfter time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{title: title, body: body, fireAfter: fireAfter})
	return nil
}

func (n *fakeNotifier) NotifyNow(_ context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNow {
		return errors.New("broker down")
	}
	n.sent = append(n.sent, sentNotification{title: title, body: body, immediate: true})
	return nil
}

func (n *fakeNotifier) Close() error { return nil }

func (n *fakeNotifier) immediate() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.immediate {
			out = append(out, s)
		}
	}
	return out
}

func (n *fakeNotifier) scheduled() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if !s.immediate {
			out = append(out, s)
		}
	}
	return out
}
