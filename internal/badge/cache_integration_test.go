//go:build integration

package badge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"hookwarden/internal/badge"
	platformredis "hookwarden/internal/platform/redis"
	"hookwarden/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *badge.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	client := &platformredis.Client{Client: s.redis.Client}
	s.cache = badge.NewRedisCache(client, time.Minute)
}

func (s *RedisCacheSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestMissOnUnknownProgram() {
	_, found, err := s.cache.Get(context.Background(), "never-cached")
	s.Require().NoError(err)
	s.False(found)
}

func (s *RedisCacheSuite) TestSetAndGetRoundTrip() {
	ctx := context.Background()

	s.Require().NoError(s.cache.Set(ctx, "approved-program", true))
	approved, found, err := s.cache.Get(ctx, "approved-program")
	s.Require().NoError(err)
	s.True(found)
	s.True(approved)

	s.Require().NoError(s.cache.Set(ctx, "rejected-program", false))
	approved, found, err = s.cache.Get(ctx, "rejected-program")
	s.Require().NoError(err)
	s.True(found)
	s.False(approved)
}

func (s *RedisCacheSuite) TestSetOverwritesPreviousAnswer() {
	ctx := context.Background()

	s.Require().NoError(s.cache.Set(ctx, "flip-program", true))
	s.Require().NoError(s.cache.Set(ctx, "flip-program", false))

	approved, found, err := s.cache.Get(ctx, "flip-program")
	s.Require().NoError(err)
	s.True(found)
	s.False(approved)
}

func (s *RedisCacheSuite) TestInvalidate() {
	ctx := context.Background()

	s.Require().NoError(s.cache.Set(ctx, "gone-program", true))
	s.Require().NoError(s.cache.Invalidate(ctx, "gone-program"))

	_, found, err := s.cache.Get(ctx, "gone-program")
	s.Require().NoError(err)
	s.False(found)
}

func (s *RedisCacheSuite) TestEntriesExpireAfterTTL() {
	ctx := context.Background()
	shortLived := badge.NewRedisCache(&platformredis.Client{Client: s.redis.Client}, 100*time.Millisecond)

	s.Require().NoError(shortLived.Set(ctx, "ephemeral-program", true))
	_, found, err := shortLived.Get(ctx, "ephemeral-program")
	s.Require().NoError(err)
	s.True(found)

	require.Eventually(s.T(), func() bool {
		_, found, err := shortLived.Get(ctx, "ephemeral-program")
		return err == nil && !found
	}, 5*time.Second, 50*time.Millisecond)
}
