package handlers

import (
	"github.com/jmoiron/sqlx"

	"litledger/internal/config"
	"litledger/internal/conversation"
	"litledger/internal/report"
	"litledger/internal/repos"
	"litledger/internal/services"
)

type Deps struct {
	UpdateHandler *UpdateHandler
	ReportHandler *ReportHandler

	Access    *services.AccessService
	Ledger    *services.LedgerService
	Analytics *services.AnalyticsService
	Engine    *conversation.Engine
	Sessions  *conversation.Sessions

	// TokenHash is the bcrypt hash every API request must match.
	TokenHash string
	// NoToken opens the API when TokenHash is empty. Local use only.
	NoToken   bool
}

// NewDeps wires stores, services and the conversation engine. alerts may be nil.
func NewDeps(db *sqlx.DB, cfg config.Config, alerts services.Alerter) (*Deps, error) {
	itemRepo := repos.NewItemRepo(db)
	snapRepo := repos.NewSnapshotRepo(db)
	actorRepo := repos.NewActorRepo(db)

	accessSvc := services.NewAccessService(actorRepo)
	ledgerSvc := services.NewLedgerService(itemRepo, snapRepo, alerts)
	analyticsSvc := services.NewAnalyticsService(itemRepo, snapRepo)

	renderer, err := report.New(cfg.Currency)
	if err != nil {
		return nil, err
	}
	sessions := conversation.NewSessions(cfg.ConversationTTL)
	engine := conversation.New(accessSvc, ledgerSvc, analyticsSvc, renderer, sessions, cfg.PricePageSize)

	return &Deps{
		UpdateHandler: &UpdateHandler{Engine: engine},
		ReportHandler: &ReportHandler{Access: accessSvc, Analytics: analyticsSvc, Render: renderer, PageSize: cfg.PricePageSize},
		Access:        accessSvc,
		Ledger:        ledgerSvc,
		Analytics:     analyticsSvc,
		Engine:        engine,
		Sessions:      sessions,
		TokenHash:     cfg.WebhookTokenHash,
		NoToken:       cfg.InsecureNoToken,
	}, nil
}
