package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EntitlementPolicy names the grant-resolution rules in one place so the
// resolver and both enforcement paths read the same constants.
//
// Precedence is subscription > trial > implicit free tier. Trials can be
// switched off entirely, and the free tier can be disabled to fail closed
// when no paid grant is active.
type EntitlementPolicy struct {
	ConsiderTrials   bool `mapstructure:"considerTrials"`
	ImplicitFreeTier bool `mapstructure:"implicitFreeTier"`

	// Per-day defaults applied for the implicit free tier and substituted
	// whenever a resolved cap is exactly zero (misconfigured plan safety valve).
	DefaultWordsPerDay    int64 `mapstructure:"defaultWordsPerDay"`
	DefaultImagesPerDay   int64 `mapstructure:"defaultImagesPerDay"`
	DefaultRequestsPerDay int64 `mapstructure:"defaultRequestsPerDay"`
}

func DefaultEntitlementPolicy() EntitlementPolicy {
	return EntitlementPolicy{
		ConsiderTrials:        true,
		ImplicitFreeTier:      true,
		DefaultWordsPerDay:    500,
		DefaultImagesPerDay:   3,
		DefaultRequestsPerDay: 10,
	}
}

type EntitlementPolicyHolder struct {
	current atomic.Value // holds EntitlementPolicy
}

func NewEntitlementPolicyHolder() (*EntitlementPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("entitlement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/scribe/config")
	v.AddConfigPath("/etc/scribe")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEntitlementPolicy()
	v.SetDefault("entitlement.considerTrials", defaults.ConsiderTrials)
	v.SetDefault("entitlement.implicitFreeTier", defaults.ImplicitFreeTier)
	v.SetDefault("entitlement.defaultWordsPerDay", defaults.DefaultWordsPerDay)
	v.SetDefault("entitlement.defaultImagesPerDay", defaults.DefaultImagesPerDay)
	v.SetDefault("entitlement.defaultRequestsPerDay", defaults.DefaultRequestsPerDay)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy EntitlementPolicy
	if err := v.UnmarshalKey("entitlement", &policy); err != nil {
		return nil, err
	}
	if err := validateEntitlementPolicy(policy); err != nil {
		return nil, err
	}

	holder := &EntitlementPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EntitlementPolicy
		if err := v.UnmarshalKey("entitlement", &updated); err != nil {
			log.Printf("[entitlement-policy] reload failed: %v", err)
			return
		}
		if err := validateEntitlementPolicy(updated); err != nil {
			log.Printf("[entitlement-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[entitlement-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticEntitlementPolicyHolder wraps a fixed policy, for tests.
func NewStaticEntitlementPolicyHolder(policy EntitlementPolicy) *EntitlementPolicyHolder {
	holder := &EntitlementPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *EntitlementPolicyHolder) Get() EntitlementPolicy {
	return h.current.Load().(EntitlementPolicy)
}

func validateEntitlementPolicy(policy EntitlementPolicy) error {
	if policy.DefaultWordsPerDay <= 0 {
		return errors.New("entitlement.defaultWordsPerDay must be positive")
	}
	if policy.DefaultImagesPerDay <= 0 {
		return errors.New("entitlement.defaultImagesPerDay must be positive")
	}
	if policy.DefaultRequestsPerDay <= 0 {
		return errors.New("entitlement.defaultRequestsPerDay must be positive")
	}
	return nil
}
