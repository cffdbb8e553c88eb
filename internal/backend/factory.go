package backend

import (
	"context"
	"errors"
	"fmt"

	"confeitaria/internal/amqp"
	"confeitaria/internal/log"
	"confeitaria/internal/services"
	"confeitaria/internal/sheets"
	gsheet "confeitaria/internal/sheets/google"
	"confeitaria/internal/sheets/memory"
	"confeitaria/internal/store"
	"confeitaria/internal/store/snapshot"
	"confeitaria/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// dial opens the broker connection; replaced in tests.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.WithComponent(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger, dial: amqp.NewClient}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateStore opens the record store and, when AMQP is configured, the
// broker used to announce changes. A broker that cannot be reached only
// disables announcements.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	st, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: st, Publisher: services.NopPublisher{}}
	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Broker = client
			res.Publisher = client
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.Broker != nil {
			errs = append(errs, res.Broker.Close())
		}
		errs = append(errs, st.Close())
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized record store",
		"backend", config.Type.String(),
		"amqp_enabled", res.Broker != nil)
	return res, nil
}

func (f *DefaultFactory) openStore(config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.NewRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case SnapshotBackend:
		s, err := snapshot.Open(config.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		return s, nil
	case MemoryBackend:
		s, err := snapshot.Open("")
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror builds the spreadsheet mirror; nil means mirroring is off.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error) {
	switch config.Mirror {
	case NoMirror, "":
		return nil, nil
	case MemoryMirror:
		f.logger.InfoContext(ctx, "Using in-memory mirror")
		return memory.New(), nil
	case GoogleMirror:
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.Mirror)
	}
}
