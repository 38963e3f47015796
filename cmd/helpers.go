package cmd

import (
	"fmt"

	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/session"
	"github.com/cybercompass/compass/internal/store"
	"github.com/cybercompass/compass/internal/syncclient"
	"github.com/cybercompass/compass/internal/syncer"
)

// openStore opens the local progress store in the workspace directory.
func openStore() (*store.Store, error) {
	st, err := store.Open(getBaseDir())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// currentSession returns the active session, failing if compass init has
// not run yet.
func currentSession() (*session.Session, error) {
	return session.Get(getBaseDir())
}

// newRemote builds the API client from the stored server URL, credentials,
// and device ID.
func newRemote() (*syncclient.Client, error) {
	deviceID, err := config.DeviceID()
	if err != nil {
		return nil, err
	}

	apiKey := ""
	if creds, err := config.LoadAuth(); err == nil && creds != nil {
		apiKey = creds.APIKey
	}

	return syncclient.New(config.ServerURL(), apiKey, deviceID), nil
}

// processorOptions maps the user config onto syncer options.
func processorOptions(cfg *config.Config) syncer.Options {
	return syncer.Options{
		Interval:    cfg.Interval(),
		Debounce:    cfg.Debounce(),
		MaxRetries:  cfg.MaxRetries(),
		BeaconLimit: cfg.BeaconLimit(),
	}
}
