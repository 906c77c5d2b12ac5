package config

import (
	"errors"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config/types"
	"github.com/docker/go-units"
)

var _ Defaults = (*CoreConfig)(nil)
var _ Validator = (*CoreConfig)(nil)

type CoreConfig struct {
	DB              DatabaseConfig `mapstructure:"db"`
	Domain          string         `mapstructure:"domain"`
	PortalName      string         `mapstructure:"portal_name"`
	Identity        types.Identity `mapstructure:"identity"`
	Log             LogConfig      `mapstructure:"log"`
	Port            uint           `mapstructure:"port"`
	PostUploadLimit uint64         `mapstructure:"post_upload_limit"`
	Storage         StorageConfig  `mapstructure:"storage"`
	Mail            MailConfig     `mapstructure:"mail"`
	Cron            CronConfig     `mapstructure:"cron"`
	Pipeline        PipelineConfig `mapstructure:"pipeline"`
	Clustered       *ClusterConfig `mapstructure:"clustered"`
	NodeID          types.UUID     `mapstructure:"node_id"`
}

func (c CoreConfig) Validate() error {
	if c.Domain == "" {
		return errors.New("core.domain is required")
	}
	if c.PortalName == "" {
		return errors.New("core.portal_name is required")
	}
	if c.Port == 0 {
		return errors.New("core.port is required")
	}
	if !c.Identity.Valid() {
		return errors.New("core.identity is not a valid seed")
	}

	return nil
}

func (c CoreConfig) Defaults() map[string]any {
	return map[string]any{
		"post_upload_limit": units.MiB * 2048,
		"node_id":           types.NewUUID(),
		"identity":          types.NewIdentity(),
	}
}

func (c CoreConfig) ClusterEnabled() bool {
	return c.Clustered != nil && c.Clustered.Enabled
}
