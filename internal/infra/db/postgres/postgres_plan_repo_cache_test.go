//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
	red "medcontent-subscription/internal/infra/redis"
)

type mockRedisClient struct {
	red.RedisClient
	GetFunc func(ctx context.Context, key string) (string, error)
	DelFunc func(ctx context.Context, keys ...string) error
	sets    []string
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", red.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.sets = append(m.sets, key)
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

type mockInnerPlanRepo struct {
	repository.PlanRepository
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error)
	SaveFunc     func(ctx context.Context, tx repository.Tx, plan *model.Plan) error
	DeleteFunc   func(ctx context.Context, tx repository.Tx, id int64) error
}

func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

func (m *mockInnerPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	return m.SaveFunc(ctx, tx, plan)
}

func (m *mockInnerPlanRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	return m.DeleteFunc(ctx, tx, id)
}

func TestPlanRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: 123, Name: "Monthly", DurationDays: 30, Price: 150000, IsActive: true}
	planJSON, _ := json.Marshal(plan)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		// --- Arrange ---
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				assert.Equal(t, "plan:123", key)
				return string(planJSON), nil
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, nil)

		// --- Act ---
		result, err := decorator.FindByID(ctx, nil, 123)

		// --- Assert ---
		require.NoError(t, err)
		assert.False(t, innerRepoCalled, "inner repository should not be called on a cache hit")
		assert.Equal(t, int64(150000), result.Price)
	})

	t.Run("FindByID should fill the cache on miss", func(t *testing.T) {
		// --- Arrange ---
		mockRedis := &mockRedisClient{}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
				return plan, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, nil)

		// --- Act ---
		result, err := decorator.FindByID(ctx, nil, 123)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, plan.Name, result.Name)
		assert.NotSame(t, plan, result, "callers must not share the loaded plan")
		assert.Equal(t, []string{"plan:123"}, mockRedis.sets)
	})

	t.Run("FindByID should bypass the cache inside a transaction", func(t *testing.T) {
		// --- Arrange ---
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				t.Fatal("cache must not be read inside a transaction")
				return "", nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
				return plan, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, nil)

		// --- Act ---
		_, err := decorator.FindByID(ctx, struct{}{}, 123)

		// --- Assert ---
		require.NoError(t, err)
		assert.Empty(t, mockRedis.sets)
	})

	t.Run("Save should invalidate the cache", func(t *testing.T) {
		// --- Arrange ---
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
				return nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, nil)

		// --- Act ---
		err := decorator.Save(ctx, nil, plan)

		// --- Assert ---
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"plan:123", "plans:active"}, deletedKeys)
	})

	t.Run("Delete should keep the cache when the plan is in use", func(t *testing.T) {
		// --- Arrange ---
		delCalled := false
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				delCalled = true
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			DeleteFunc: func(ctx context.Context, tx repository.Tx, id int64) error {
				return domain.ErrPlanInUse
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, nil)

		// --- Act ---
		err := decorator.Delete(ctx, nil, 123)

		// --- Assert ---
		assert.ErrorIs(t, err, domain.ErrPlanInUse)
		assert.False(t, delCalled)
	})
}
