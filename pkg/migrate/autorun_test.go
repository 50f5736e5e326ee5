package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
)

func TestAutoUpDecision(t *testing.T) {
	build := func(env, driver string, flag bool) *config.Config {
		return &config.Config{
			App:          config.AppConfig{Env: env},
			DB:           config.DBConfig{Driver: driver},
			FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: flag},
		}
	}

	cases := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{"dev with flag", build("dev", "postgres", true), true},
		{"flag off", build("dev", "postgres", false), false},
		{"prod never", build("prod", "postgres", true), false},
		{"sqlite skipped", build("dev", "sqlite", true), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := autoUpDecision(tc.cfg)
			assert.Equal(t, tc.want, ok)
			if !ok {
				assert.NotEmpty(t, reason)
			}
		})
	}
}
