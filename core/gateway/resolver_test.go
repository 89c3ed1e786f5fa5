package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tablegate/core/csql"
)

func resolveTarget(t *testing.T, r *Resolver, table string) (csql.Target, error) {
	t.Helper()
	h, err := r.Resolve(context.Background(), table)
	if err != nil {
		return "", err
	}
	defer h.Release()
	return h.Target, nil
}

func TestResolvePriority(t *testing.T) {
	f := newFixture(t)
	r := f.gateway.Resolver()

	target, err := resolveTarget(t, r, "Teaching_staff")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetG3, target)

	target, err = resolveTarget(t, r, "courses")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetCIMS, target)

	// members exists in both, the higher priority target always wins
	for i := 0; i < 3; i++ {
		target, err = resolveTarget(t, r, "members")
		require.NoError(t, err)
		assert.Equal(t, csql.TargetG3, target)
	}

	_, err = resolveTarget(t, r, "students")
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Equal(t, "Table 'students' not found in either database.", err.Error())

	// exact match only
	_, err = resolveTarget(t, r, "member")
	assert.ErrorIs(t, err, ErrTableNotFound)

	f.requireBalanced(t)
}

func TestResolveCustomPriority(t *testing.T) {
	f := newFixture(t, func(b *Builder) {
		b.Priority = []csql.Target{csql.TargetCIMS, csql.TargetG3}
	})
	target, err := resolveTarget(t, f.gateway.Resolver(), "members")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetCIMS, target)
	f.requireBalanced(t)
}

func TestResolveUnreachableTargets(t *testing.T) {
	f := newFixture(t)
	r := f.gateway.Resolver()

	f.provider.setDown(csql.TargetG3, true)
	target, err := resolveTarget(t, r, "members")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetCIMS, target, "an unreachable target counts as not found there")

	_, err = resolveTarget(t, r, "Teaching_staff")
	assert.ErrorIs(t, err, ErrTableNotFound)

	f.provider.setDown(csql.TargetCIMS, true)
	_, err = resolveTarget(t, r, "members")
	assert.ErrorIs(t, err, ErrDatabaseUnavailable)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.ErrorIs(t, e, csql.ErrUnavailable)

	f.requireBalanced(t)
}

func TestResolveAllowList(t *testing.T) {
	f := newFixture(t, func(b *Builder) {
		b.TableAllowList = []string{"members"}
	})
	_, err := resolveTarget(t, f.gateway.Resolver(), "members")
	assert.NoError(t, err)
	_, err = resolveTarget(t, f.gateway.Resolver(), "courses")
	assert.ErrorIs(t, err, ErrTableNotFound)

	acquired, _ := f.provider.counts(csql.TargetCIMS)
	assert.Equal(t, 0, acquired, "refused tables never touch a target")
	f.requireBalanced(t)
}

func TestResolveCache(t *testing.T) {
	f := newFixture(t, func(b *Builder) {
		b.CatalogCacheTTL = time.Minute
	})
	r := f.gateway.Resolver()

	target, err := resolveTarget(t, r, "courses")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetCIMS, target)
	g3Before, _ := f.provider.counts(csql.TargetG3)

	target, err = resolveTarget(t, r, "courses")
	require.NoError(t, err)
	assert.Equal(t, csql.TargetCIMS, target)
	g3After, _ := f.provider.counts(csql.TargetG3)
	assert.Equal(t, g3Before, g3After, "cached resolution skips the catalog of G3")

	// an unreachable cached target falls back to full resolution
	f.provider.setDown(csql.TargetCIMS, true)
	_, err = resolveTarget(t, r, "courses")
	assert.ErrorIs(t, err, ErrTableNotFound)

	f.requireBalanced(t)
}
