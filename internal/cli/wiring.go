package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/credential"
	"github.com/nhle/vibratodo/internal/logging"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/recordapi"
	"github.com/nhle/vibratodo/internal/session"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/store/remote"
)

// ErrSignedOut is returned by commands that need the remote store while no
// session token is stored.
var ErrSignedOut = errors.New("not signed in: run `vibratodo login --token <token>`")

// openCredentials opens the secret store. Tests replace it with an
// in-memory keyring.
var openCredentials = credential.Open

// env is everything a command needs to talk to the configured store.
type env struct {
	cfg        *model.AppConfig
	log        *logrus.Entry
	categories *category.Registry
	store      store.TaskStore

	// session is nil for the local backend.
	session *session.Manager

	closers []io.Closer
}

// Close releases the store and the log file.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

// loadEnv reads the config, opens the log and builds the store it selects.
func loadEnv(opts *options) (*env, error) {
	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logging.Init("vibratodo", cfg.Log)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:        cfg,
		log:        log,
		categories: category.NewRegistry(),
		closers:    []io.Closer{logCloser},
	}
	if err := e.openStore(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) openStore() error {
	switch e.cfg.Store.Backend {
	case model.BackendLocal:
		s, err := store.NewLocalStore(e.cfg.Store.Local.Path, e.log)
		if err != nil {
			return fmt.Errorf("opening local store: %w", err)
		}
		e.store = s
		e.closers = append(e.closers, s)
		return nil

	case model.BackendRemote:
		creds, err := openCredentials()
		if err != nil {
			return err
		}
		publicKey, err := creds.Get(credential.KeyPublicKey)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			return err
		}

		e.session = session.NewManager(creds)
		rc := e.cfg.Store.Remote
		client := recordapi.NewClient(recordapi.Config{
			BaseURL:   rc.BaseURL,
			ProjectID: rc.ProjectID,
			PublicKey: publicKey,
			Token:     e.session.Token(),
			Timeout:   time.Duration(rc.TimeoutSec) * time.Second,
		}, e.log)
		e.store = remote.New(client, rc.Collection, e.categories, e.log)
		return nil
	}
	return fmt.Errorf("unknown store backend %q", e.cfg.Store.Backend)
}

// requireSession fails when the remote backend has no usable session.
func (e *env) requireSession() error {
	if e.session != nil && !e.session.IsAuthenticated() {
		return ErrSignedOut
	}
	return nil
}
