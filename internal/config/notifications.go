package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NotificationPolicy controls per-type delivery behavior. Types are plain
// strings here so the holder stays a leaf; the notification domain validates
// them against its closed enum.
type NotificationPolicy struct {
	// PreferenceGated lists types a recipient may disable.
	PreferenceGated []string `mapstructure:"preferenceGated"`
	// EventBound maps a type to the correlation field forming its
	// idempotency key (e.g. challenge_ended -> challengeId).
	EventBound map[string]string `mapstructure:"eventBound"`
	// SweepInterval is the cadence of the challenge-end sweep.
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		PreferenceGated: []string{
			"challenge_created",
			"challenge_ended",
			"monthly_recap",
		},
		EventBound: map[string]string{
			"challenge_ended":            "challengeId",
			"player_challenge_submitted": "challengeId",
			"monthly_recap":              "monthName",
		},
		SweepInterval: 5 * time.Minute,
	}
}

func (p NotificationPolicy) IsPreferenceGated(typ string) bool {
	for _, t := range p.PreferenceGated {
		if t == typ {
			return true
		}
	}
	return false
}

// CorrelationField returns the idempotency correlation field for an
// event-bound type, or "" when the type is not event-bound.
func (p NotificationPolicy) CorrelationField(typ string) string {
	return p.EventBound[typ]
}

// NotificationPolicyHolder hot-reloads notifications.yml and serves the
// current policy without locking readers.
type NotificationPolicyHolder struct {
	current atomic.Value // holds NotificationPolicy
}

func NewNotificationPolicyHolder() (*NotificationPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("notifications")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/clubsync/config")
	v.AddConfigPath("/etc/clubsync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults are seeded unconditionally so a config file that sets only
	// some keys still gets the built-in policy for the rest; a file omitting
	// eventBound must not silently disable idempotency.
	defaults := DefaultNotificationPolicy()
	v.SetDefault("notifications.preferenceGated", defaults.PreferenceGated)
	v.SetDefault("notifications.eventBound", defaults.EventBound)
	v.SetDefault("notifications.sweepInterval", defaults.SweepInterval)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	policy := policyFromViper(v)
	if err := validateNotificationPolicy(policy); err != nil {
		return nil, err
	}

	holder := &NotificationPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := policyFromViper(v)
		if err := validateNotificationPolicy(updated); err != nil {
			log.Printf("[notification-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[notification-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// policyFromViper reads each key individually so a key missing from the file
// falls back to its default even when the notifications section is present.
func policyFromViper(v *viper.Viper) NotificationPolicy {
	return NotificationPolicy{
		PreferenceGated: v.GetStringSlice("notifications.preferenceGated"),
		EventBound:      v.GetStringMapString("notifications.eventBound"),
		SweepInterval:   v.GetDuration("notifications.sweepInterval"),
	}
}

// NewStaticNotificationPolicyHolder wraps a fixed policy, for tests.
func NewStaticNotificationPolicyHolder(policy NotificationPolicy) *NotificationPolicyHolder {
	holder := &NotificationPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *NotificationPolicyHolder) Get() NotificationPolicy {
	return h.current.Load().(NotificationPolicy)
}

func validateNotificationPolicy(p NotificationPolicy) error {
	if p.SweepInterval < 0 {
		return errors.New("sweepInterval must not be negative")
	}
	for typ, field := range p.EventBound {
		if strings.TrimSpace(typ) == "" || strings.TrimSpace(field) == "" {
			return errors.New("eventBound entries require type and correlation field")
		}
	}
	return nil
}
