//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/usecase"
)

func TestDiscountUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should generate a code when none is given", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.NewDiscountUseCase(f.discounts, nil)

		d, err := uc.Create(ctx, usecase.DiscountInput{Percent: 15, MaxUsage: 3})

		require.NoError(t, err)
		assert.Len(t, d.Code, 8)
		got, err := uc.Get(ctx, d.Code)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Percent)
		assert.Equal(t, 3, got.RemainingUsage())
	})

	t.Run("duplicate explicit code", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.NewDiscountUseCase(f.discounts, nil)
		_, err := uc.Create(ctx, usecase.DiscountInput{Code: "WELCOME", Percent: 10, MaxUsage: 1})
		require.NoError(t, err)

		_, err = uc.Create(ctx, usecase.DiscountInput{Code: "welcome", Percent: 10, MaxUsage: 1})

		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("invalid percent", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.NewDiscountUseCase(f.discounts, nil)

		_, err := uc.Create(ctx, usecase.DiscountInput{Code: "X", Percent: 0, MaxUsage: 1})

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
