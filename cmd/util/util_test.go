package util

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := "LogLevel is the level at which logs will be output (debug, info, warn, error)"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(wrapped))
	assert.Equal(t, "", WrapString("   "))
}

func TestGetBackendConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("backend", "http")
	viper.Set("proxy-endpoints", " http://a:3001, ,http://b:3001 ")
	viper.Set("proxy-timeout", 5)
	viper.Set("proxy-retries", 2)

	conf, err := GetBackendConfig()
	require.NoError(t, err)
	assert.Equal(t, common.BackendHTTP, conf.Kind)
	assert.Equal(t, []string{"http://a:3001", "http://b:3001"}, conf.Endpoints)
	assert.Equal(t, 5, conf.TimeoutSecond)
	assert.Equal(t, 2, conf.RetryCount)

	viper.Set("backend", "floppy")
	_, err = GetBackendConfig()
	assert.Error(t, err)
}

func TestGetStoreConfigRejectsZeroFanout(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("backend", "memory")
	viper.Set("fanout", 0)
	_, err := GetStoreConfig()
	assert.Error(t, err)

	viper.Set("fanout", 4)
	viper.Set("cache-ttl", time.Minute)
	conf, err := GetStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, conf.Fanout)
	assert.Equal(t, time.Minute, conf.CacheTTL)
}

func TestOpenStoreOnMemory(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, &common.StoreConfig{
		Backend:  common.BackendConfig{Kind: common.BackendMemory},
		CacheTTL: time.Minute,
		Fanout:   2,
	})
	require.NoError(t, err)
	defer st.Close()

	p := &model.Profile{ID: "p1", Callsign: "7700", Name: "n", Role: model.RoleApplicant, Status: model.ProfileActive}
	require.NoError(t, st.CreateEntity(ctx, "7700", p))

	owners, err := st.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7700"}, owners)
}
