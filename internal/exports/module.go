package exports

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the exports module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler: NewHandler(repo, val, log),
		repo:    repo,
	}
}

// SetArchiver injects the optional export archive store, wired in the
// composition root.
func (m *Module) SetArchiver(archiver Archiver) {
	m.handler.SetArchiver(archiver)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the provided router context.
// The CSV feed is API-key authenticated so ad platforms can poll it
// without a user session; key management is admin only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/exports")
	public.Use(APIKeyAuthMiddleware(m.repo))
	public.GET("/conversions.csv", m.handler.ExportConversionsCSV)

	admin := ctx.Admin.Group("/exports/keys")
	admin.POST("", m.handler.CreateAPIKey)
	admin.GET("", m.handler.ListAPIKeys)
	admin.DELETE("/:keyId", m.handler.RevokeAPIKey)
}

var _ apphttp.Module = (*Module)(nil)
