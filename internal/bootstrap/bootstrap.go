// Package bootstrap turns a Config into a ready ChatService.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-responder/internal/config"
	"chat-responder/internal/domain"
	"chat-responder/internal/integrations/paramstore"
	"chat-responder/internal/knowledge"
	"chat-responder/internal/repository"
	"chat-responder/internal/repository/memory"
	"chat-responder/internal/repository/sqlite"
	"chat-responder/internal/usecase"
)

// App owns the service and the resources behind it.
type App struct {
	Service *usecase.ChatService

	closers []func() error
}

// Close releases databases opened by Open.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type builder struct {
	cfg     *config.Config
	logger  *slog.Logger
	app     *App
	sqlite  map[string]*sqlite.DB
	awsCfg  *aws.Config
	loadAWS func(ctx context.Context) (aws.Config, error)
}

// Open builds stores for the configured backends, seeds the knowledge store
// and returns the service.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	return open(ctx, cfg, logger, func(ctx context.Context) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
}

func open(ctx context.Context, cfg *config.Config, logger *slog.Logger, loadAWS func(context.Context) (aws.Config, error)) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &builder{
		cfg:     cfg,
		logger:  logger,
		app:     &App{},
		sqlite:  make(map[string]*sqlite.DB),
		loadAWS: loadAWS,
	}

	app, err := b.build(ctx)
	if err != nil {
		_ = b.app.Close()
		return nil, err
	}
	return app, nil
}

func (b *builder) build(ctx context.Context) (*App, error) {
	seed, err := b.seed(ctx)
	if err != nil {
		return nil, err
	}
	store, err := b.knowledgeStore(ctx, seed)
	if err != nil {
		return nil, err
	}
	if err := store.Seed(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: seed knowledge: %w", err)
	}
	history, err := b.historyLog(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := usecase.NewChatService(store, history, b.cfg.Responder.MaxSessions,
		usecase.WithRandom(usecase.NewRandom(b.cfg.Responder.Seed)),
		usecase.WithPersonalizer(usecase.SuffixPersonalizer(b.cfg.Responder.PersonalizeRate)),
		usecase.WithLogger(b.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create chat service: %w", err)
	}
	b.app.Service = svc

	b.logger.Info("chat service ready",
		"knowledge_backend", b.cfg.Knowledge.Backend,
		"history_backend", b.cfg.History.Backend,
		"seed_entries", len(seed),
	)
	return b.app, nil
}

func (b *builder) seed(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	seed := knowledge.Curated()
	if b.cfg.Knowledge.ParamPrefix == "" {
		return seed, nil
	}
	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, err
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create SSM client: %w", err)
	}
	extra, err := knowledge.LoadParamSeed(ctx, params, b.cfg.Knowledge.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return append(seed, extra...), nil
}

func (b *builder) knowledgeStore(ctx context.Context, seed []domain.KnowledgeEntry) (usecase.KnowledgeStore, error) {
	switch b.cfg.Knowledge.Backend {
	case config.BackendSQLite:
		db, err := b.openSQLite(ctx, b.cfg.Knowledge.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db.Knowledge(seed), nil
	default:
		return memory.NewKnowledgeStore(seed), nil
	}
}

func (b *builder) historyLog(ctx context.Context) (usecase.HistoryLog, error) {
	switch b.cfg.History.Backend {
	case config.BackendSQLite:
		db, err := b.openSQLite(ctx, b.cfg.History.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db.History(), nil
	case config.BackendDynamoDB:
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(b.cfg.History.TTLDays) * 24 * time.Hour
		client, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), b.cfg.History.Table, ttl)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create history client: %w", err)
		}
		return client, nil
	default:
		return memory.NewHistoryLog(), nil
	}
}

// openSQLite shares one handle per path between the two stores.
func (b *builder) openSQLite(ctx context.Context, path string) (*sqlite.DB, error) {
	if db, ok := b.sqlite[path]; ok {
		return db, nil
	}
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	b.sqlite[path] = db
	b.app.closers = append(b.app.closers, db.Close)
	return db, nil
}

func (b *builder) aws(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	cfg, err := b.loadAWS(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load AWS config: %w", err)
	}
	b.awsCfg = &cfg
	return cfg, nil
}
