package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WorkflowConfig holds approval-workflow tunables that operators may
// adjust without redeploying.
type WorkflowConfig struct {
	// StrictOrdering requires approvals to arrive in ascending step order.
	StrictOrdering bool `mapstructure:"strictOrdering"`
	// MaxApprovalSteps caps the number of step templates a policy may carry.
	MaxApprovalSteps int `mapstructure:"maxApprovalSteps"`
}

func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		StrictOrdering:   true,
		MaxApprovalSteps: 10,
	}
}

type WorkflowConfigHolder struct {
	current atomic.Value // holds WorkflowConfig
}

func NewWorkflowConfigHolder() (*WorkflowConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("workflow")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/expenso/config") // Volume-mounted config
	v.AddConfigPath("/etc/expenso")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("EXPENSO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultWorkflowConfig()
		v.SetDefault("workflow.strictOrdering", defaults.StrictOrdering)
		v.SetDefault("workflow.maxApprovalSteps", defaults.MaxApprovalSteps)
	}

	var cfg WorkflowConfig
	if err := v.UnmarshalKey("workflow", &cfg); err != nil {
		return nil, err
	}
	if err := validateWorkflowConfig(cfg); err != nil {
		return nil, err
	}

	holder := &WorkflowConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated WorkflowConfig
		if err := v.UnmarshalKey("workflow", &updated); err != nil {
			log.Printf("[workflow-config] reload failed: %v", err)
			return
		}
		if err := validateWorkflowConfig(updated); err != nil {
			log.Printf("[workflow-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[workflow-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *WorkflowConfigHolder) Get() WorkflowConfig {
	return h.current.Load().(WorkflowConfig)
}

// NewStaticWorkflowConfigHolder returns a holder pinned to the given config.
// Intended for tests.
func NewStaticWorkflowConfigHolder(cfg WorkflowConfig) *WorkflowConfigHolder {
	holder := &WorkflowConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateWorkflowConfig(cfg WorkflowConfig) error {
	if cfg.MaxApprovalSteps <= 0 {
		return errors.New("workflow.maxApprovalSteps must be positive")
	}
	return nil
}
