package cli

import (
	"fmt"
	"os"

	"github.com/yungbote/groupcart-backend/internal/app"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

// exportEnv lets flags take part in the normal config layering.
func (o *RootOptions) exportEnv() error {
	if o.ConfigFile != "" {
		if err := os.Setenv("CONFIG_FILE", o.ConfigFile); err != nil {
			return err
		}
	}
	if o.LogMode != "" {
		if err := os.Setenv("LOG_MODE", o.LogMode); err != nil {
			return err
		}
	}
	return nil
}

func bootstrap() (*logger.Logger, app.Config, error) {
	log, err := app.NewLogger(os.Getenv("LOG_MODE"))
	if err != nil {
		return nil, app.Config{}, err
	}
	log.Info("Loading configuration...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, app.Config{}, fmt.Errorf("load config: %w", err)
	}
	return log, cfg, nil
}
